package engine

import (
	"sync"
	"time"

	"github.com/chase3718/moogate/internal/note"
)

// Status is a point-in-time snapshot of everything externally observable:
// settings for the LED blinker, voicing state for the monitor.
type Status struct {
	Priority   note.Priority `json:"-"`
	PriorityS  string        `json:"priority"`
	Cleanup    bool          `json:"cleanup"`
	Gate       bool          `json:"gate"`
	Sounding   string        `json:"sounding,omitempty"`
	Held       []string      `json:"held"`
	WindowOpen bool          `json:"window_open"`
	GlideMs    uint16        `json:"glide_ms"`
	Seq        byte          `json:"seq"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// statusFanout delivers the latest Status to every subscriber without ever
// blocking the engine: each subscriber owns a capacity-one channel and a
// stale pending value is replaced, not queued behind.
type statusFanout struct {
	mu   sync.Mutex
	subs []chan Status
}

// Subscribe returns a channel that always eventually carries the most recent
// snapshot. Subscribe before the engine runs; late subscribers only see
// updates from then on.
func (f *statusFanout) Subscribe() <-chan Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := make(chan Status, 1)
	f.subs = append(f.subs, c)
	return c
}

func (f *statusFanout) publish(s Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.subs {
		sendLatest(c, s)
	}
}

// sendLatest never blocks: a pending undelivered snapshot is displaced.
func sendLatest(c chan Status, s Status) {
	for {
		select {
		case c <- s:
			return
		default:
			select {
			case <-c:
			default:
			}
		}
	}
}
