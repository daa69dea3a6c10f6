package engine

import (
	"time"

	"github.com/chase3718/moogate/internal/note"
)

// Inbound events. Producers (MIDI listener, panel sampler, watchers) enqueue
// these; only the engine goroutine touches decision state. Events from one
// source keep their arrival order on the single queue.

// NoteOn is a decoded key press.
type NoteOn struct {
	Pitch note.Pitch
	At    time.Time
}

// NoteOff is a decoded key release.
type NoteOff struct {
	Pitch note.Pitch
	At    time.Time
}

// CyclePriority steps the priority mode (panel button A).
type CyclePriority struct{}

// ToggleCleanup flips the chord-cleanup flag (panel button B).
type ToggleCleanup struct{}

// SetGlide updates the portamento time applied to note changes (MIDI CC 5).
type SetGlide struct {
	Ms uint16
}

// Reset releases everything: held notes cleared, window closed, gate down.
// Sent on MIDI device loss and at shutdown so the synth is never left keyed.
type Reset struct{}
