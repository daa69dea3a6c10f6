package panel

import "time"

// Debouncer filters one contact line. A press registers only after the raw
// level has sat high for the hold time; the release re-arms the same way. A
// held button therefore yields exactly one press, and sub-hold glitches in
// either direction vanish without a trace.
type Debouncer struct {
	hold     time.Duration
	raw      bool
	rawSince time.Time
	stable   bool
}

func NewDebouncer(hold time.Duration) *Debouncer {
	return &Debouncer{hold: hold}
}

// Sample feeds one raw reading taken at now. It returns true exactly when a
// debounced press (stable low-to-high transition) registers.
func (d *Debouncer) Sample(level bool, now time.Time) bool {
	if level != d.raw {
		d.raw = level
		d.rawSince = now
		return false
	}
	if d.raw != d.stable && now.Sub(d.rawSince) >= d.hold {
		d.stable = d.raw
		return d.stable
	}
	return false
}
