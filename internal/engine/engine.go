// Package engine is the decision core: it owns the held-note registry, the
// chord-cleanup window, the priority mode and the envelope trigger state,
// and turns inbound key/panel events into full-state output frames. All
// mutable state lives in one goroutine; everything else talks to it through
// the event queue.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/chase3718/moogate/internal/note"
	"github.com/chase3718/moogate/internal/output"
)

// FrameSink receives the engine's voicing frames. *output.Outbox satisfies
// it; tests use a recording sink.
type FrameSink interface {
	Put(f output.Frame)
}

// Config carries the engine's tunables. Window and QueueSize fall back to
// defaults when zero.
type Config struct {
	Range     note.Range
	Priority  note.Priority
	Cleanup   bool
	Window    time.Duration // chord window span
	Retrigger RetrigMode
	QueueSize int
}

// DefaultWindow is a 32nd note at 120 BPM, the span the original instrument
// used for chord cleanup.
const DefaultWindow = 62500 * time.Microsecond

// Engine is the single owner of all voicing decision state.
type Engine struct {
	clk clock.Clock
	log *slog.Logger
	out FrameSink
	fan statusFanout

	events chan any

	rng    note.Range
	window time.Duration
	retrig RetrigMode

	reg      note.Registry
	priority note.Priority
	cleanup  bool
	env      envState
	glideMs  uint16
	seq      byte

	buf        []note.Held // chord window buffer, arrival order
	windowOpen bool
	deadline   time.Time
	timer      *clock.Timer

	voiced   note.Pitch // last resolved sounding note
	isVoiced bool
}

func New(cfg Config, out FrameSink, clk clock.Clock, log *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	e := &Engine{
		clk:      clk,
		log:      log,
		out:      out,
		events:   make(chan any, cfg.QueueSize),
		rng:      cfg.Range,
		window:   cfg.Window,
		retrig:   cfg.Retrigger,
		priority: cfg.Priority,
		cleanup:  cfg.Cleanup,
	}
	e.timer = e.clk.Timer(time.Hour)
	e.stopTimer()
	return e
}

// Enqueue hands an event to the engine without blocking the caller. A full
// queue drops the event with a warning; same-source ordering is preserved by
// the single queue.
func (e *Engine) Enqueue(ev any) bool {
	select {
	case e.events <- ev:
		return true
	default:
		e.log.Warn("engine: event queue full, dropping", "event", fmt.Sprintf("%T", ev))
		return false
	}
}

// Subscribe registers a status consumer. Subscribe before Run.
func (e *Engine) Subscribe() <-chan Status {
	return e.fan.Subscribe()
}

// Run processes events until ctx ends. On exit it performs a final reset so
// the synth is left unkeyed; the caller then closes the outbox and driver.
func (e *Engine) Run(ctx context.Context) {
	// Put both lines in a known state before the first key arrives.
	e.emitFrame(false)
	e.publish()
	e.log.Info("engine: running",
		"range", e.rng.String(),
		"priority", e.priority.String(),
		"cleanup", e.cleanup,
		"window_ms", float64(e.window.Microseconds())/1000.0,
		"retrigger", e.retrig.String(),
	)

	for {
		select {
		case <-ctx.Done():
			e.reset()
			e.publish()
			e.log.Info("engine: stopped")
			return
		case ev := <-e.events:
			e.handle(ev)
			e.publish()
		case <-e.timer.C:
			e.windowExpired()
			e.publish()
		}
	}
}

func (e *Engine) handle(ev any) {
	switch m := ev.(type) {
	case NoteOn:
		e.noteOn(m.Pitch, m.At)
	case NoteOff:
		e.noteOff(m.Pitch)
	case CyclePriority:
		e.cyclePriority()
	case ToggleCleanup:
		e.toggleCleanup()
	case SetGlide:
		e.glideMs = m.Ms
		e.log.Debug("engine: glide time set", "glide_ms", m.Ms)
	case Reset:
		e.reset()
	default:
		e.log.Warn("engine: unknown event dropped", "event", fmt.Sprintf("%T", ev))
	}
}

// -------------------- note events --------------------

func (e *Engine) noteOn(p note.Pitch, at time.Time) {
	if !e.rng.Contains(p) {
		e.log.Warn("engine: note-on outside keyboard range, dropped", "pitch", int(p), "range", e.rng.String())
		return
	}
	if e.cleanup {
		e.bufferNoteOn(p, at)
		return
	}
	wasEmpty := e.reg.Empty()
	if !e.reg.NoteOn(p, at) {
		e.log.Debug("engine: duplicate note-on ignored", "pitch", p.String())
		return
	}
	e.log.Debug("engine: note on", "pitch", p.String(), "held", e.reg.Len())
	e.settle(wasEmpty)
}

func (e *Engine) noteOff(p note.Pitch) {
	if !e.rng.Contains(p) {
		e.log.Warn("engine: note-off outside keyboard range, dropped", "pitch", int(p))
		return
	}
	if e.windowOpen {
		for i, h := range e.buf {
			if h.Pitch == p {
				// Withdrawn before it ever sounded.
				e.buf = append(e.buf[:i], e.buf[i+1:]...)
				e.log.Debug("engine: buffered note withdrawn", "pitch", p.String(), "pending", len(e.buf))
				if len(e.buf) == 0 {
					e.closeWindow()
					e.log.Debug("engine: chord window closed early, nothing pending")
				}
				return
			}
		}
	}
	wasEmpty := e.reg.Empty()
	if !e.reg.NoteOff(p) {
		e.log.Debug("engine: unmatched note-off ignored", "pitch", p.String())
		return
	}
	e.log.Debug("engine: note off", "pitch", p.String(), "held", e.reg.Len())
	e.settle(wasEmpty)
}

// -------------------- chord window --------------------

func (e *Engine) bufferNoteOn(p note.Pitch, at time.Time) {
	if e.reg.Holds(p) {
		e.log.Debug("engine: duplicate note-on ignored", "pitch", p.String())
		return
	}
	for _, h := range e.buf {
		if h.Pitch == p {
			return
		}
	}
	e.buf = append(e.buf, note.Held{Pitch: p, At: at})
	if e.windowOpen {
		// Later arrivals never extend the deadline, bounding added latency
		// to one window span.
		e.log.Debug("engine: note buffered in open window", "pitch", p.String(), "pending", len(e.buf))
		return
	}
	e.windowOpen = true
	e.deadline = at.Add(e.window)
	e.log.Debug("engine: chord window opened", "pitch", p.String(), "span_ms", float64(e.window.Microseconds())/1000.0)
	if d := e.deadline.Sub(e.clk.Now()); d > 0 {
		e.timer.Reset(d)
	} else {
		e.flushWindow()
	}
}

// windowExpired runs when the chord timer fires. A fire that raced an early
// closure finds the window already closed and does nothing.
func (e *Engine) windowExpired() {
	if !e.windowOpen {
		e.log.Debug("engine: stale window expiry ignored")
		return
	}
	e.flushWindow()
}

// flushWindow applies the buffered note-ons in their original arrival order
// as a single batch: the envelope sees one transition and the resolver runs
// once over the final set.
func (e *Engine) flushWindow() {
	e.stopTimer()
	e.windowOpen = false
	wasEmpty := e.reg.Empty()
	for _, h := range e.buf {
		e.reg.NoteOn(h.Pitch, h.At)
	}
	e.log.Debug("engine: chord window flushed", "count", len(e.buf), "held", e.reg.Len())
	e.buf = e.buf[:0]
	e.settle(wasEmpty)
}

func (e *Engine) closeWindow() {
	e.stopTimer()
	e.windowOpen = false
	e.buf = e.buf[:0]
}

func (e *Engine) stopTimer() {
	if !e.timer.Stop() {
		select {
		case <-e.timer.C:
		default:
		}
	}
}

// -------------------- settings events --------------------

func (e *Engine) cyclePriority() {
	e.priority = e.priority.Next()
	e.log.Info("engine: priority mode changed", "mode", e.priority.String())
	if !e.reg.Empty() {
		e.settle(false)
	}
}

func (e *Engine) toggleCleanup() {
	e.cleanup = !e.cleanup
	e.log.Info("engine: chord cleanup toggled", "enabled", e.cleanup)
	if !e.cleanup && e.windowOpen {
		// Nothing buffered may be lost when the feature turns off.
		e.flushWindow()
	}
}

// reset is the panic release: held notes dropped, window closed, gate down.
// A bare gate-down frame goes out even if nothing appeared to be sounding.
func (e *Engine) reset() {
	if e.windowOpen {
		e.closeWindow()
	}
	e.reg.Clear()
	e.env = envResting
	e.isVoiced = false
	e.log.Info("engine: reset, all notes released")
	e.emitFrame(false)
}

// -------------------- decision output --------------------

// settle recomputes the sounding note after a mutation batch and emits what
// the outside world must see: an envelope edge, a legato note change, or
// nothing (churn that began and ended empty).
func (e *Engine) settle(wasEmpty bool) {
	isEmpty := e.reg.Empty()
	cur, ok := e.reg.Resolve(e.priority)

	retrig := false
	changed := false
	switch {
	case wasEmpty && !isEmpty:
		e.env = envSounding
		changed = true
		e.log.Debug("engine: trigger assert", "pitch", cur.String())
	case !wasEmpty && isEmpty:
		e.env = envResting
		changed = true
		e.log.Debug("engine: trigger deassert")
	case !wasEmpty && !isEmpty:
		if ok && (!e.isVoiced || cur != e.voiced) {
			changed = true
			retrig = e.retrig == RetrigNoteChange
			e.log.Debug("engine: sounding note changed", "pitch", cur.String(), "retrig", retrig)
		}
	}
	e.voiced, e.isVoiced = cur, ok
	if changed {
		e.emitFrame(retrig)
	}
}

func (e *Engine) emitFrame(retrig bool) {
	f := output.Frame{
		Gate:    e.env == envSounding,
		Retrig:  retrig,
		GlideMs: e.glideMs,
		Seq:     e.seq,
	}
	if e.isVoiced {
		f.Pitch = e.voiced
		f.Voiced = true
	}
	e.out.Put(f)
	e.seq++
}

func (e *Engine) publish() {
	held := e.reg.Pitches()
	names := make([]string, len(held))
	for i, p := range held {
		names[i] = p.String()
	}
	s := Status{
		Priority:   e.priority,
		PriorityS:  e.priority.String(),
		Cleanup:    e.cleanup,
		Gate:       e.env == envSounding,
		Held:       names,
		WindowOpen: e.windowOpen,
		GlideMs:    e.glideMs,
		Seq:        e.seq,
		UpdatedAt:  e.clk.Now(),
	}
	if e.isVoiced {
		s.Sounding = e.voiced.String()
	}
	e.fan.publish(s)
}
