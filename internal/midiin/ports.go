package midiin

import (
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

// Ports lists the names of all MIDI input devices currently visible,
// without filtering. Used by the CLI to help users pick match patterns.
func Ports() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, err
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}
