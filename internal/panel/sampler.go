package panel

import (
	"context"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
)

// Sampler polls the button lines on a fixed tick and reports debounced
// presses through a callback. It owns one Debouncer per button; the tick
// interval bounds press-detection latency at interval+hold.
type Sampler struct {
	clk      clock.Clock
	log      *slog.Logger
	lines    Lines
	onPress  func(Button)
	interval time.Duration
	debs     [numButtons]*Debouncer
}

func NewSampler(lines Lines, onPress func(Button), interval, hold time.Duration, clk clock.Clock, log *slog.Logger) *Sampler {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 2 * time.Millisecond
	}
	if hold <= 0 {
		hold = 20 * time.Millisecond
	}
	s := &Sampler{
		clk:      clk,
		log:      log,
		lines:    lines,
		onPress:  onPress,
		interval: interval,
	}
	for b := range s.debs {
		s.debs[b] = NewDebouncer(hold)
	}
	return s
}

// Run polls until ctx ends.
func (s *Sampler) Run(ctx context.Context) {
	t := s.clk.Ticker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.scan(now)
		}
	}
}

// scan samples every button line once.
func (s *Sampler) scan(now time.Time) {
	for b := Button(0); b < numButtons; b++ {
		if s.debs[b].Sample(s.lines.ReadButton(b), now) {
			s.log.Info("panel: button pressed", "button", b.String())
			s.onPress(b)
		}
	}
}
