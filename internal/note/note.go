// Package note models MIDI pitches, the playable keyboard range of the
// target instrument, and the set of currently-held notes with its
// priority-based resolution to a single sounding pitch.
package note

import (
	"fmt"
	"strconv"
	"strings"
)

// Pitch is a MIDI note number (middle C = 60).
type Pitch uint8

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// String renders the pitch in scientific notation, e.g. 53 -> "F3".
func (p Pitch) String() string {
	return fmt.Sprintf("%s%d", noteNames[p%12], (int(p)/12)-1)
}

// ParsePitch accepts either a scientific pitch name ("F3", "c#4") or a raw
// MIDI number ("53").
func ParsePitch(s string) (Pitch, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("pitch %d outside MIDI range 0-127", n)
		}
		return Pitch(n), nil
	}
	up := strings.ToUpper(s)
	for i := len(noteNames) - 1; i >= 0; i-- {
		if strings.HasPrefix(up, noteNames[i]) {
			oct, err := strconv.Atoi(up[len(noteNames[i]):])
			if err != nil {
				return 0, fmt.Errorf("bad pitch %q: %w", s, err)
			}
			n := (oct+1)*12 + i
			if n < 0 || n > 127 {
				return 0, fmt.Errorf("pitch %q outside MIDI range", s)
			}
			return Pitch(n), nil
		}
	}
	return 0, fmt.Errorf("bad pitch %q", s)
}

// Range is the closed interval of pitches the instrument's keyboard circuit
// can voice. Events outside it are dropped before they touch any state.
type Range struct {
	Low  Pitch
	High Pitch
}

// Contains reports whether p is voiceable.
func (r Range) Contains(p Pitch) bool { return p >= r.Low && p <= r.High }

// Semitones returns p's offset above the bottom of the range, the "nth key"
// used for control-voltage scaling.
func (r Range) Semitones(p Pitch) int { return int(p) - int(r.Low) }

// Width returns the number of keys in the range.
func (r Range) Width() int { return int(r.High) - int(r.Low) + 1 }

func (r Range) String() string {
	return fmt.Sprintf("%s..%s", r.Low, r.High)
}
