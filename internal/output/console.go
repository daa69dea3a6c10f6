package output

import "log/slog"

// ConsoleDriver logs frames instead of driving hardware. Used for dry runs
// and as the fallback when no output device is configured.
type ConsoleDriver struct {
	log  *slog.Logger
	last Frame
	any  bool
}

func NewConsoleDriver(log *slog.Logger) *ConsoleDriver {
	if log == nil {
		log = slog.Default()
	}
	return &ConsoleDriver{log: log}
}

func (c *ConsoleDriver) Apply(f Frame) error {
	switch {
	case f.Retrig:
		c.log.Info("console: retrig", "pitch", f.Pitch.String(), "glide_ms", f.GlideMs, "seq", f.Seq)
	case f.Gate && (!c.any || !c.last.Gate):
		c.log.Info("console: gate on", "pitch", f.Pitch.String(), "seq", f.Seq)
	case !f.Gate && c.any && c.last.Gate:
		c.log.Info("console: gate off", "seq", f.Seq)
	case f.Voiced && c.any && c.last.Voiced && f.Pitch != c.last.Pitch:
		c.log.Info("console: note change", "pitch", f.Pitch.String(), "glide_ms", f.GlideMs, "seq", f.Seq)
	default:
		c.log.Debug("console: frame", "frame", f.String())
	}
	c.last = f
	c.any = true
	return nil
}

func (c *ConsoleDriver) Close() error {
	c.log.Debug("console: driver closed")
	return nil
}
