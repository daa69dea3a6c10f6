// Command moogate turns a MIDI keyboard into note decisions for a vintage
// single-voice analog synthesizer. It tracks every held key, resolves which
// one sounds under the selected priority mode, collects near-simultaneous
// chord presses, and streams the result as pitch/gate frames to a hardware
// serial link, a soundcard emulation, or the console.
package main

import (
	"os"

	"log/slog"

	"github.com/spf13/cobra"
)

var (
	cfgPath   string
	debugMode bool
)

var rootCmd = &cobra.Command{
	Use:   "moogate",
	Short: "MIDI note decision controller for single-voice analog synths",
	Long: `moogate drives a monophonic synthesizer from a MIDI keyboard.

It keeps the full set of held keys, picks the sounding note by priority
(first, last, lowest or highest), folds accidental chord presses into a
single decision, and emits pitch and gate frames over the configured
output driver.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Connect to the MIDI keyboard and drive the synth",
	RunE:  runController,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "moogate.yaml", "path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "verbose logging with source locations")
	runCmd.Flags().StringVar(&driverFlag, "driver", "", "override the output driver (serial, audio, console)")
	runCmd.Flags().StringVar(&portFlag, "port", "", "override the serial port")
	runCmd.Flags().StringVar(&httpFlag, "http", "", "serve /status on this address, e.g. :8090")
	rootCmd.AddCommand(runCmd, portsCmd)
}

func initLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if debugMode {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(log)
	return log
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
