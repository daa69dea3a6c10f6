package panel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// virtualLatch is how long a virtual press holds its line high: comfortably
// longer than the debounce hold, shorter than a human double-tap.
const virtualLatch = 60 * time.Millisecond

// Virtual is a software front panel. Press latches the button line high for
// a moment so the ordinary sampler and debouncer see a hardware-like
// contact, and LED changes are reported through the log. It backs signal- or
// keyboard-driven control when no physical panel is wired.
type Virtual struct {
	mu    sync.Mutex
	clk   clock.Clock
	log   *slog.Logger
	until [numButtons]time.Time
	leds  [numLEDs]bool
}

func NewVirtual(clk clock.Clock, log *slog.Logger) *Virtual {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Virtual{clk: clk, log: log}
}

// Press simulates one physical button push.
func (v *Virtual) Press(b Button) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.until[b] = v.clk.Now().Add(virtualLatch)
	v.log.Debug("panel: virtual press", "button", b.String())
}

func (v *Virtual) ReadButton(b Button) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.clk.Now().Before(v.until[b])
}

func (v *Virtual) SetLED(l LED, on bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.leds[l] == on {
		return
	}
	v.leds[l] = on
	v.log.Info("panel: led", "led", l.String(), "on", on)
}

// LED reports the current level of an indicator.
func (v *Virtual) LED(l LED) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.leds[l]
}
