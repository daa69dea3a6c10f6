// Package config loads the controller's YAML configuration file and
// validates it. Every field has a sensible default; a missing file is not an
// error, and a partial file only overrides what it names.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chase3718/moogate/internal/engine"
	"github.com/chase3718/moogate/internal/note"
)

// MIDI selects and paces input device scanning.
type MIDI struct {
	// Preferred device name patterns, matched case-insensitively in order.
	Preferred []string `yaml:"preferred"`
	// Excluded device name patterns, never auto-connected.
	Excluded []string `yaml:"excluded"`
	// RescanMs is the device rescan interval in milliseconds.
	RescanMs int `yaml:"rescan_ms"`
}

// Serial configures the hardware frame link.
type Serial struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// Audio configures the soundcard CV/gate emulation.
type Audio struct {
	SampleRate int `yaml:"sample_rate"`
	// CVSpanVolts maps full-scale output to this many volts of CV.
	CVSpanVolts float64 `yaml:"cv_span_volts"`
}

// Output selects which driver receives voice frames.
type Output struct {
	// Driver is one of "serial", "audio" or "console".
	Driver string `yaml:"driver"`
	Serial Serial `yaml:"serial"`
	Audio  Audio  `yaml:"audio"`
}

// Instrument describes the connected synthesizer.
type Instrument struct {
	Name string `yaml:"name"`
	// LowNote/HighNote bound the playable keyboard span, inclusive. Note
	// names ("F3") and MIDI numbers ("53") are both accepted.
	LowNote        string  `yaml:"low_note"`
	HighNote       string  `yaml:"high_note"`
	VoltsPerOctave float64 `yaml:"volts_per_octave"`
	// HoldLastNote keeps the pitch line at the last played note after all
	// keys are released, as the original keyboard circuit does.
	HoldLastNote bool `yaml:"hold_last_note"`
}

// Engine holds the note-decision defaults applied at startup.
type Engine struct {
	// Priority is one of "first", "last", "low" or "high".
	Priority string `yaml:"priority"`
	// Cleanup enables chord suppression at startup.
	Cleanup bool `yaml:"cleanup"`
	// WindowMs is the chord collection window in milliseconds.
	WindowMs float64 `yaml:"window_ms"`
	// Retrigger is "break-end" or "note-change".
	Retrigger string `yaml:"retrigger"`
}

// Panel tunes the front-panel buttons and LEDs.
type Panel struct {
	DebounceMs        int `yaml:"debounce_ms"`
	SampleMs          int `yaml:"sample_ms"`
	BlinkHalfPeriodMs int `yaml:"blink_half_period_ms"`
}

// Monitor configures the status HTTP endpoint and console reporting.
type Monitor struct {
	// HTTPAddr is the listen address for /status, empty to disable.
	HTTPAddr string `yaml:"http_addr"`
	// QuietMs batches console status lines during busy passages.
	QuietMs int `yaml:"quiet_ms"`
}

// Config is the full configuration tree.
type Config struct {
	MIDI       MIDI       `yaml:"midi"`
	Output     Output     `yaml:"output"`
	Instrument Instrument `yaml:"instrument"`
	Engine     Engine     `yaml:"engine"`
	Panel      Panel      `yaml:"panel"`
	Monitor    Monitor    `yaml:"monitor"`
}

// Default returns the configuration used when no file is present. The
// instrument defaults describe a Micromoog: F3..C6 keyboard, 1 V/octave.
func Default() Config {
	return Config{
		MIDI: MIDI{
			Excluded: []string{"through", "rtmidi"},
			RescanMs: 1000,
		},
		Output: Output{
			Driver: "audio",
			Serial: Serial{Port: "/dev/ttyUSB0", Baud: 115200},
			Audio:  Audio{SampleRate: 48000, CVSpanVolts: 5.0},
		},
		Instrument: Instrument{
			Name:           "Micromoog",
			LowNote:        "F3",
			HighNote:       "C6",
			VoltsPerOctave: 1.0,
			HoldLastNote:   true,
		},
		Engine: Engine{
			Priority:  note.DefaultPriority.String(),
			Cleanup:   false,
			WindowMs:  62.5,
			Retrigger: "break-end",
		},
		Panel: Panel{
			DebounceMs:        20,
			SampleMs:          2,
			BlinkHalfPeriodMs: 1000,
		},
		Monitor: Monitor{
			HTTPAddr: "",
			QuietMs:  150,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults unchanged; a present but invalid file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every field that Load cannot check structurally.
func (c Config) Validate() error {
	if _, err := c.Range(); err != nil {
		return err
	}
	if _, err := c.Priority(); err != nil {
		return err
	}
	if _, err := c.RetrigMode(); err != nil {
		return err
	}
	switch c.Output.Driver {
	case "serial", "audio", "console":
	default:
		return fmt.Errorf("output.driver %q: want serial, audio or console", c.Output.Driver)
	}
	if c.Output.Serial.Baud <= 0 {
		return fmt.Errorf("output.serial.baud %d: must be positive", c.Output.Serial.Baud)
	}
	if c.Output.Audio.SampleRate < 8000 {
		return fmt.Errorf("output.audio.sample_rate %d: too low", c.Output.Audio.SampleRate)
	}
	if c.Output.Audio.CVSpanVolts <= 0 {
		return fmt.Errorf("output.audio.cv_span_volts %v: must be positive", c.Output.Audio.CVSpanVolts)
	}
	if c.Instrument.VoltsPerOctave <= 0 {
		return fmt.Errorf("instrument.volts_per_octave %v: must be positive", c.Instrument.VoltsPerOctave)
	}
	if c.Engine.WindowMs <= 0 {
		return fmt.Errorf("engine.window_ms %v: must be positive", c.Engine.WindowMs)
	}
	if c.Panel.DebounceMs <= 0 || c.Panel.SampleMs <= 0 {
		return fmt.Errorf("panel debounce_ms/sample_ms must be positive")
	}
	if c.Panel.SampleMs > c.Panel.DebounceMs {
		return fmt.Errorf("panel.sample_ms %d exceeds debounce_ms %d", c.Panel.SampleMs, c.Panel.DebounceMs)
	}
	if c.MIDI.RescanMs <= 0 {
		return fmt.Errorf("midi.rescan_ms %d: must be positive", c.MIDI.RescanMs)
	}
	if c.Monitor.QuietMs < 0 {
		return fmt.Errorf("monitor.quiet_ms %d: must not be negative", c.Monitor.QuietMs)
	}
	return nil
}

// Range resolves the instrument's low and high notes.
func (c Config) Range() (note.Range, error) {
	low, err := note.ParsePitch(c.Instrument.LowNote)
	if err != nil {
		return note.Range{}, fmt.Errorf("instrument.low_note: %w", err)
	}
	high, err := note.ParsePitch(c.Instrument.HighNote)
	if err != nil {
		return note.Range{}, fmt.Errorf("instrument.high_note: %w", err)
	}
	if low >= high {
		return note.Range{}, fmt.Errorf("instrument range %s..%s is empty", low, high)
	}
	return note.Range{Low: low, High: high}, nil
}

// Priority resolves the startup note priority mode.
func (c Config) Priority() (note.Priority, error) {
	p, err := note.ParsePriority(c.Engine.Priority)
	if err != nil {
		return 0, fmt.Errorf("engine.priority: %w", err)
	}
	return p, nil
}

// RetrigMode resolves the retrigger style.
func (c Config) RetrigMode() (engine.RetrigMode, error) {
	m, err := engine.ParseRetrigMode(c.Engine.Retrigger)
	if err != nil {
		return 0, fmt.Errorf("engine.retrigger: %w", err)
	}
	return m, nil
}

// Window returns the chord collection window as a duration.
func (c Config) Window() time.Duration {
	return time.Duration(c.Engine.WindowMs * float64(time.Millisecond))
}

// Rescan returns the MIDI rescan interval as a duration.
func (c Config) Rescan() time.Duration {
	return time.Duration(c.MIDI.RescanMs) * time.Millisecond
}
