package output

import (
	"fmt"
	"log/slog"

	"go.bug.st/serial"
)

// SerialDriver ships frames to the control board (DAC + trigger transistor)
// over a framed serial link.
type SerialDriver struct {
	port serial.Port
	log  *slog.Logger
}

// OpenSerial opens the named serial device at the given baud rate.
func OpenSerial(name string, baud int, log *slog.Logger) (*SerialDriver, error) {
	if log == nil {
		log = slog.Default()
	}
	mode := &serial.Mode{BaudRate: baud}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, fmt.Errorf("serial open %s: %w", name, err)
	}
	log.Info("serial: port opened", "device", name, "baud", baud)
	return &SerialDriver{port: p, log: log}, nil
}

// Apply encodes and writes one frame.
func (s *SerialDriver) Apply(f Frame) error {
	data := f.Encode()
	n, err := s.port.Write(data)
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	s.log.Debug("serial: frame sent", "bytes", n, "frame", f.String())
	return nil
}

// Close closes the underlying serial port.
func (s *SerialDriver) Close() error {
	s.log.Info("serial: closing port")
	return s.port.Close()
}
