// Package output carries voicing decisions to the synthesizer. A Frame is a
// full-state snapshot of both control lines (KBD pitch + S-Trig gate); a
// Driver renders frames electrically. The engine hands frames to a
// capacity-one coalescing Outbox so it never blocks on a slow driver, and a
// single writer goroutine owns the driver end.
package output

import "log/slog"

// Driver renders voicing frames on real or simulated hardware.
//
// The electrical encoding of the note-control line is entirely the driver's:
// drivers are free to hold the last voiced pitch when a frame is unvoiced,
// which matches the original instrument (the KBD line retains its level when
// all keys lift; only the gate drops).
type Driver interface {
	Apply(f Frame) error
	Close() error
}

// Outbox is the single-producer frame mailbox between the decision engine
// and the writer goroutine. Puts never block: when the writer is behind, the
// pending frame is replaced by the newer one. Frames are full-state, so
// latest-wins is electrically correct; a pending retrigger request is the
// one edge that must survive, so it carries over onto the replacing frame.
type Outbox struct {
	frames chan Frame
}

func NewOutbox() *Outbox {
	return &Outbox{frames: make(chan Frame, 1)}
}

// Put enqueues f, displacing any undelivered frame.
func (o *Outbox) Put(f Frame) {
	for {
		select {
		case o.frames <- f:
			return
		default:
			select {
			case old := <-o.frames:
				f.Retrig = f.Retrig || old.Retrig
			default:
			}
		}
	}
}

// Close ends the stream. Only the producer may call it, after its final Put;
// the writer drains remaining frames before exiting.
func (o *Outbox) Close() { close(o.frames) }

// Write delivers frames to drv until the outbox closes and is drained.
// Driver errors are logged and the stream continues; a failed write must not
// stall or kill the decision path.
func Write(drv Driver, o *Outbox, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	for f := range o.frames {
		if err := drv.Apply(f); err != nil {
			log.Error("output: apply failed", "seq", f.Seq, "err", err)
		}
	}
	log.Debug("output: writer drained")
}
