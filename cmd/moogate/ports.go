package main

import (
	"github.com/spf13/cobra"

	"github.com/chase3718/moogate/internal/midiin"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List MIDI input devices",
	Long:  "Lists every MIDI input currently visible, for use as midi.preferred patterns in the config file.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		names, err := midiin.Ports()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			cmd.Println("no MIDI inputs found")
			return nil
		}
		for _, n := range names {
			cmd.Println(n)
		}
		return nil
	},
}
