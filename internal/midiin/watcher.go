// Package midiin feeds the engine from a MIDI keyboard. A Watcher keeps a
// connection to the preferred input device alive across hot-plug and
// hot-unplug, decodes note and portamento messages into engine events, and
// fires a panic release when the device vanishes mid-performance.
package midiin

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/chase3718/moogate/internal/engine"
	"github.com/chase3718/moogate/internal/note"
)

// ccPortamentoTime is MIDI controller 5; its 0..127 value scales linearly to
// glide milliseconds.
const (
	ccPortamentoTime = 5
	glideMsPerStep   = 16
)

// Sink receives decoded events. *engine.Engine satisfies it.
type Sink interface {
	Enqueue(ev any) bool
}

// Config selects which input devices the watcher connects to.
type Config struct {
	// Preferred: devices matching any of these patterns are picked first.
	Preferred []string
	// Excluded: virtual/system ports that are never auto-connected.
	Excluded []string
	// Rescan is the minimum time between device scans.
	Rescan time.Duration
}

// Watcher monitors available MIDI inputs and maintains a connection to the
// preferred device. It handles hot-plug (new device appears) and hot-unplug
// (device disappears) transparently; on loss it enqueues a Reset so the
// engine releases the synth immediately.
type Watcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	cfg    Config
	clk    clock.Clock
	log    *slog.Logger
	events Sink
}

// NewWatcher creates a watcher and initialises the underlying rtmidi
// driver. Call Close() when done.
func NewWatcher(cfg Config, events Sink, clk clock.Clock, log *slog.Logger) (*Watcher, error) {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Rescan <= 0 {
		cfg.Rescan = time.Second
	}
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Watcher{
		drv:    drv,
		cfg:    cfg,
		clk:    clk,
		log:    log,
		events: events,
	}, nil
}

// Close shuts down the active MIDI connection and the rtmidi driver.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeConn()
	w.drv.Close()
}

// Connected reports whether an input device is currently attached.
func (w *Watcher) Connected() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selectedName, w.connected
}

// Tick should be called on a regular interval (e.g. every second) from the
// run loop. It scans for devices, auto-connects to a preferred one, and
// detects disappearances.
func (w *Watcher) Tick() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clk.Now()
	if !w.lastRescanAt.IsZero() && now.Sub(w.lastRescanAt) < w.cfg.Rescan {
		return
	}
	w.lastRescanAt = now

	inputs := w.listInputs()

	if w.connected {
		// Verify the selected device is still present.
		for _, n := range inputs {
			if n == w.selectedName {
				return // still there, nothing to do
			}
		}
		// Device disappeared.
		w.log.Warn("midi: device disappeared", "device", w.selectedName)
		w.closeConn()
		w.lastRescanAt = time.Time{} // rescan immediately next tick
		w.events.Enqueue(engine.Reset{})
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := pickPreferred(inputs, w.cfg.Preferred)
	if !ok {
		return
	}
	if err := w.openByName(cand); err != nil {
		w.log.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// -------------------- internal --------------------

func (w *Watcher) listInputs() []string {
	ins, err := w.drv.Ins()
	if err != nil {
		w.log.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		names = append(names, in.String())
	}
	kept := filterInputs(names, w.cfg.Excluded)
	w.log.Debug("midi: inputs found", "count", len(kept), "devices", strings.Join(kept, ", "))
	return kept
}

func (w *Watcher) closeConn() {
	if w.stopFn != nil {
		w.stopFn()
		w.stopFn = nil
	}
	if w.inPort != nil {
		_ = w.inPort.Close()
		w.inPort = nil
	}
	w.connected = false
	w.selectedName = ""
}

func (w *Watcher) openByName(name string) error {
	ins, err := w.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		w.dispatch(msg)
	}, midi.HandleError(func(listenErr error) {
		w.log.Warn("midi: listener error", "device", name, "err", listenErr)
		// Must not call closeConn from within the listener goroutine, so
		// we dispatch to a new goroutine and re-acquire the mutex.
		go func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.connected && w.selectedName == name {
				w.closeConn()
				w.lastRescanAt = time.Time{} // trigger immediate rescan
				w.events.Enqueue(engine.Reset{})
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	w.inPort = found
	w.stopFn = stop
	w.connected = true
	w.selectedName = name
	w.log.Info("midi: connected", "device", name)
	return nil
}

// dispatch decodes one MIDI message into engine events. All channels are
// accepted and velocity is ignored; the instrument has no dynamics input.
func (w *Watcher) dispatch(msg midi.Message) {
	var ch, key, vel uint8
	if msg.GetNoteStart(&ch, &key, &vel) {
		w.log.Debug("midi: note on", "ch", ch, "key", key, "vel", vel)
		w.events.Enqueue(engine.NoteOn{Pitch: note.Pitch(key), At: w.clk.Now()})
		return
	}
	if msg.GetNoteEnd(&ch, &key) {
		w.log.Debug("midi: note off", "ch", ch, "key", key)
		w.events.Enqueue(engine.NoteOff{Pitch: note.Pitch(key), At: w.clk.Now()})
		return
	}
	var ctrl, val uint8
	if msg.GetControlChange(&ch, &ctrl, &val) {
		if ctrl == ccPortamentoTime {
			w.log.Debug("midi: portamento time", "value", val)
			w.events.Enqueue(engine.SetGlide{Ms: uint16(val) * glideMsPerStep})
		}
		return
	}
	w.log.Debug("midi: unhandled message", "msg", msg.String())
}

// -------------------- selection helpers --------------------

// filterInputs drops excluded port names.
func filterInputs(names, excluded []string) []string {
	var kept []string
	for _, name := range names {
		skip := false
		for _, pat := range excluded {
			if containsCI(name, pat) {
				skip = true
				break
			}
		}
		if !skip {
			kept = append(kept, name)
		}
	}
	return kept
}

// pickPreferred chooses a device: the first preferred-pattern match, or the
// only device present when nothing matches.
func pickPreferred(inputs, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
