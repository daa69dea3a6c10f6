package midiin

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"gitlab.com/gomidi/midi/v2"

	"github.com/chase3718/moogate/internal/engine"
	"github.com/chase3718/moogate/internal/note"
)

type recordSink struct {
	events []any
}

func (r *recordSink) Enqueue(ev any) bool {
	r.events = append(r.events, ev)
	return true
}

func newTestWatcher() (*Watcher, *recordSink, *clock.Mock) {
	mock := clock.NewMock()
	rec := &recordSink{}
	w := &Watcher{
		clk:    mock,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		events: rec,
	}
	return w, rec, mock
}

func TestDispatchNoteOnAndOff(t *testing.T) {
	w, rec, mock := newTestWatcher()

	w.dispatch(midi.NoteOn(0, 60, 100))
	mock.Add(10 * time.Millisecond)
	w.dispatch(midi.NoteOff(0, 60))

	if len(rec.events) != 2 {
		t.Fatalf("got %d events, want 2", len(rec.events))
	}
	on, ok := rec.events[0].(engine.NoteOn)
	if !ok || on.Pitch != note.Pitch(60) {
		t.Fatalf("first event = %#v, want NoteOn C4", rec.events[0])
	}
	off, ok := rec.events[1].(engine.NoteOff)
	if !ok || off.Pitch != note.Pitch(60) {
		t.Fatalf("second event = %#v, want NoteOff C4", rec.events[1])
	}
	if !off.At.After(on.At) {
		t.Fatalf("timestamps not ordered: on %v, off %v", on.At, off.At)
	}
}

func TestDispatchZeroVelocityNoteOnIsRelease(t *testing.T) {
	w, rec, _ := newTestWatcher()

	w.dispatch(midi.NoteOn(3, 64, 0))

	if len(rec.events) != 1 {
		t.Fatalf("got %d events, want 1", len(rec.events))
	}
	if _, ok := rec.events[0].(engine.NoteOff); !ok {
		t.Fatalf("event = %#v, want NoteOff", rec.events[0])
	}
}

func TestDispatchAcceptsAllChannels(t *testing.T) {
	w, rec, _ := newTestWatcher()

	for ch := uint8(0); ch < 16; ch++ {
		w.dispatch(midi.NoteOn(ch, 60, 100))
		w.dispatch(midi.NoteOff(ch, 60))
	}
	if len(rec.events) != 32 {
		t.Fatalf("got %d events, want 32", len(rec.events))
	}
}

func TestDispatchPortamentoTime(t *testing.T) {
	w, rec, _ := newTestWatcher()

	cases := []struct {
		val  uint8
		want uint16
	}{
		{0, 0},
		{1, 16},
		{64, 1024},
		{127, 2032},
	}
	for _, c := range cases {
		w.dispatch(midi.ControlChange(0, ccPortamentoTime, c.val))
	}
	if len(rec.events) != len(cases) {
		t.Fatalf("got %d events, want %d", len(rec.events), len(cases))
	}
	for i, c := range cases {
		sg, ok := rec.events[i].(engine.SetGlide)
		if !ok {
			t.Fatalf("event %d = %#v, want SetGlide", i, rec.events[i])
		}
		if sg.Ms != c.want {
			t.Errorf("cc value %d: glide = %dms, want %dms", c.val, sg.Ms, c.want)
		}
	}
}

func TestDispatchIgnoresOtherControllers(t *testing.T) {
	w, rec, _ := newTestWatcher()

	w.dispatch(midi.ControlChange(0, 1, 64))  // mod wheel
	w.dispatch(midi.ControlChange(0, 7, 100)) // volume
	w.dispatch(midi.ControlChange(0, 64, 127))

	if len(rec.events) != 0 {
		t.Fatalf("got %d events, want 0", len(rec.events))
	}
}

func TestFilterInputs(t *testing.T) {
	names := []string{
		"Midi Through Port-0",
		"Arturia KeyStep 32",
		"RtMidi Output Client",
	}
	kept := filterInputs(names, []string{"through", "rtmidi"})
	if len(kept) != 1 || kept[0] != "Arturia KeyStep 32" {
		t.Fatalf("kept = %v, want only the KeyStep", kept)
	}
}

func TestPickPreferred(t *testing.T) {
	inputs := []string{"Midi Through Port-0", "Arturia KeyStep 32"}

	name, ok := pickPreferred(inputs, []string{"keystep"})
	if !ok || name != "Arturia KeyStep 32" {
		t.Fatalf("got %q ok=%v, want KeyStep", name, ok)
	}

	// No pattern match and multiple devices: stay disconnected.
	if name, ok := pickPreferred(inputs, []string{"moog"}); ok {
		t.Fatalf("unexpected pick %q with no match among several devices", name)
	}

	// Single device: connect even without a match.
	name, ok = pickPreferred([]string{"Some Keyboard"}, []string{"moog"})
	if !ok || name != "Some Keyboard" {
		t.Fatalf("got %q ok=%v, want the only device", name, ok)
	}

	// Preferred order wins over input order.
	name, ok = pickPreferred([]string{"B Keys", "A Keys"}, []string{"a keys", "b keys"})
	if !ok || name != "A Keys" {
		t.Fatalf("got %q, want first preferred pattern to win", name)
	}
}
