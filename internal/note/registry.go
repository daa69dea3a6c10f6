package note

import "time"

// Held is one currently-down key: its pitch and when it arrived.
type Held struct {
	Pitch Pitch
	At    time.Time
}

// Registry tracks the currently-held notes in arrival order. A pitch is
// present iff a note-on for it was accepted and no matching note-off has
// arrived since. It performs no range checking; callers gate on Range before
// touching it.
//
// Registry is not safe for concurrent use; it is owned by the single
// decision-engine goroutine.
type Registry struct {
	held []Held
}

// NoteOn records a key press. A pitch already present is left untouched
// (its original arrival stands) and false is returned.
func (r *Registry) NoteOn(p Pitch, at time.Time) bool {
	for _, h := range r.held {
		if h.Pitch == p {
			return false
		}
	}
	r.held = append(r.held, Held{Pitch: p, At: at})
	return true
}

// NoteOff records a key release. Releasing a pitch that is not held is a
// no-op and returns false.
func (r *Registry) NoteOff(p Pitch) bool {
	for i, h := range r.held {
		if h.Pitch == p {
			r.held = append(r.held[:i], r.held[i+1:]...)
			return true
		}
	}
	return false
}

// Holds reports whether p is currently down.
func (r *Registry) Holds(p Pitch) bool {
	for _, h := range r.held {
		if h.Pitch == p {
			return true
		}
	}
	return false
}

// Clear drops every held note (device reset / panic release).
func (r *Registry) Clear() { r.held = r.held[:0] }

func (r *Registry) Len() int    { return len(r.held) }
func (r *Registry) Empty() bool { return len(r.held) == 0 }

// Pitches returns the held pitches in arrival order.
func (r *Registry) Pitches() []Pitch {
	out := make([]Pitch, len(r.held))
	for i, h := range r.held {
		out[i] = h.Pitch
	}
	return out
}

// Resolve picks the single sounding note under the given priority mode.
// Returns false when nothing is held. Pure: no side effects.
//
// Equal-timestamp ties under first/last resolve to the lowest pitch, so the
// outcome never depends on internal ordering.
func (r *Registry) Resolve(mode Priority) (Pitch, bool) {
	if len(r.held) == 0 {
		return 0, false
	}
	best := r.held[0]
	for _, h := range r.held[1:] {
		if better(mode, h, best) {
			best = h
		}
	}
	return best.Pitch, true
}

func better(mode Priority, a, b Held) bool {
	switch mode {
	case PriorityFirst:
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
	case PriorityLast:
		if !a.At.Equal(b.At) {
			return a.At.After(b.At)
		}
	case PriorityLow:
		return a.Pitch < b.Pitch
	case PriorityHigh:
		if a.Pitch != b.Pitch {
			return a.Pitch > b.Pitch
		}
	}
	return a.Pitch < b.Pitch
}
