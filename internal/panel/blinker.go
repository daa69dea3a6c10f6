package panel

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// ledTick is the LED refresh rate. The shortest animation frame is
// half-period/7 (four blinks), so a few milliseconds is plenty.
const ledTick = 5 * time.Millisecond

// Indication is what the blinker renders: the priority mode's blink count
// and the cleanup flag's solid level.
type Indication struct {
	Blinks  int
	Cleanup bool
}

// Blinker drives both status LEDs. The priority LED repeats a rolling cycle
// of one dark half-period followed by Blinks flashes spread across the
// second half-period; the cleanup LED is set solid on every change. Updates
// arrive on a capacity-one latest-wins channel and take effect immediately
// (the blink count folds into the rolling cycle at the next refresh).
type Blinker struct {
	clk        clock.Clock
	log        *slog.Logger
	lines      Lines
	updates    <-chan Indication
	halfPeriod time.Duration
}

func NewBlinker(lines Lines, updates <-chan Indication, halfPeriod time.Duration, clk clock.Clock, log *slog.Logger) *Blinker {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	if halfPeriod <= 0 {
		halfPeriod = time.Second
	}
	return &Blinker{
		clk:        clk,
		log:        log,
		lines:      lines,
		updates:    updates,
		halfPeriod: halfPeriod,
	}
}

// Run animates until ctx ends, then darkens both LEDs.
func (b *Blinker) Run(ctx context.Context) {
	tick := b.clk.Ticker(ledTick)
	defer tick.Stop()

	start := b.clk.Now()
	var cur Indication
	var prioOn bool
	var cleanKnown, cleanOn bool

	for {
		select {
		case <-ctx.Done():
			b.lines.SetLED(LEDPriority, false)
			b.lines.SetLED(LEDCleanup, false)
			return
		case ind := <-b.updates:
			if !cleanKnown || ind.Cleanup != cleanOn {
				b.lines.SetLED(LEDCleanup, ind.Cleanup)
				cleanOn = ind.Cleanup
				cleanKnown = true
			}
			cur = ind
		case now := <-tick.C:
			on := blinkLevel(cur.Blinks, b.halfPeriod, now.Sub(start))
			if on != prioOn {
				b.lines.SetLED(LEDPriority, on)
				prioOn = on
			}
		}
	}
}

// blinkLevel is the priority LED level at elapsed time into the rolling
// cycle: dark for the first half, then 2*blinks-1 equal animation frames
// alternating on/off (so exactly blinks flashes) across the second half.
func blinkLevel(blinks int, half, elapsed time.Duration) bool {
	if blinks <= 0 || half <= 0 {
		return false
	}
	phase := elapsed % (2 * half)
	if phase < half {
		return false
	}
	frames := 2*blinks - 1
	idx := int((phase - half) * time.Duration(frames) / half)
	if idx >= frames {
		idx = frames - 1
	}
	return idx%2 == 0
}
