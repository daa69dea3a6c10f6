package engine

import "fmt"

// envState is the envelope trigger line's logical state: the S-Trig is
// asserted exactly while the state is sounding.
type envState uint8

const (
	envResting envState = iota
	envSounding
)

func (s envState) String() string {
	if s == envSounding {
		return "sounding"
	}
	return "resting"
}

// RetrigMode selects when the envelope re-strikes.
type RetrigMode uint8

const (
	// RetrigBreakEnd re-strikes only after a full release: the gate edges
	// solely on empty/non-empty transitions and legato never retriggers.
	// This is the original instrument's behavior and the default.
	RetrigBreakEnd RetrigMode = iota

	// RetrigNoteChange additionally requests a short gate re-strike whenever
	// the sounding note changes while keys stay held.
	RetrigNoteChange
)

func (m RetrigMode) String() string {
	if m == RetrigNoteChange {
		return "note-change"
	}
	return "break-end"
}

// ParseRetrigMode reads the config-file spelling of a retrigger mode.
func ParseRetrigMode(s string) (RetrigMode, error) {
	switch s {
	case "break-end", "":
		return RetrigBreakEnd, nil
	case "note-change":
		return RetrigNoteChange, nil
	}
	return 0, fmt.Errorf("unknown retrigger mode %q (want break-end or note-change)", s)
}
