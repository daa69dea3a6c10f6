// Package panel handles the two-button, two-LED front panel: debounced
// button sampling feeding the engine, and the status LEDs (priority mode as
// a repeating blink count, chord cleanup as a solid indicator). Hardware is
// reached through the Lines capability interface; real GPIO implementations
// live outside this module, and Virtual provides a software panel.
package panel

// Button identifies a panel button.
type Button uint8

const (
	ButtonPriority Button = iota // cycles the priority mode
	ButtonCleanup                // toggles chord cleanup

	numButtons
)

func (b Button) String() string {
	switch b {
	case ButtonPriority:
		return "priority"
	case ButtonCleanup:
		return "cleanup"
	}
	return "button?"
}

// LED identifies a panel indicator.
type LED uint8

const (
	LEDPriority LED = iota // blink count shows the mode
	LEDCleanup             // solid while cleanup is on

	numLEDs
)

func (l LED) String() string {
	switch l {
	case LEDPriority:
		return "priority"
	case LEDCleanup:
		return "cleanup"
	}
	return "led?"
}

// Lines is the electrical surface of the panel: raw button levels in, LED
// levels out. Implementations must be safe for concurrent use (the sampler
// and blinker run in separate goroutines).
type Lines interface {
	ReadButton(b Button) bool
	SetLED(l LED, on bool)
}
