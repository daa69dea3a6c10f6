package note

import "fmt"

// Priority selects which held note a monophonic instrument voices.
type Priority uint8

const (
	PriorityFirst Priority = iota // earliest still-held key wins
	PriorityLast                  // most recent key wins
	PriorityLow                   // lowest pitch wins
	PriorityHigh                  // highest pitch wins

	numPriorities
)

// DefaultPriority matches the instrument's power-on behavior.
const DefaultPriority = PriorityLow

// Next cycles First -> Last -> Low -> High -> First, the order the panel
// button steps through.
func (p Priority) Next() Priority {
	return (p + 1) % numPriorities
}

// BlinkCount is the number of flashes the status LED shows for this mode.
func (p Priority) BlinkCount() int { return int(p) + 1 }

func (p Priority) String() string {
	switch p {
	case PriorityFirst:
		return "first"
	case PriorityLast:
		return "last"
	case PriorityLow:
		return "low"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", uint8(p))
}

// ParsePriority reads the config-file spelling of a priority mode.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "first":
		return PriorityFirst, nil
	case "last":
		return PriorityLast, nil
	case "low":
		return PriorityLow, nil
	case "high":
		return PriorityHigh, nil
	}
	return 0, fmt.Errorf("unknown priority %q (want first, last, low or high)", s)
}
