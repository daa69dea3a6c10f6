package note

import (
	"testing"
	"time"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestRegistryHoldsArrivalOrder(t *testing.T) {
	var r Registry
	r.NoteOn(64, at(0)) // E4
	r.NoteOn(60, at(1)) // C4
	r.NoteOn(67, at(2)) // G4

	got := r.Pitches()
	want := []Pitch{64, 60, 67}
	if len(got) != len(want) {
		t.Fatalf("held count: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("held[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRegistryDuplicateNoteOnIgnored(t *testing.T) {
	var r Registry
	if !r.NoteOn(60, at(0)) {
		t.Fatal("first note-on should be accepted")
	}
	if r.NoteOn(60, at(50)) {
		t.Error("duplicate note-on should be ignored")
	}
	if r.Len() != 1 {
		t.Fatalf("held count after duplicate: got %d, want 1", r.Len())
	}

	// Original arrival must survive the duplicate: first-priority still sees
	// 60 as the earliest note even after a later key arrives.
	r.NoteOn(64, at(10))
	p, ok := r.Resolve(PriorityFirst)
	if !ok || p != 60 {
		t.Errorf("resolve first: got %v ok=%v, want 60 true", p, ok)
	}
}

func TestRegistryNoteOffRemovesAndIsIdempotent(t *testing.T) {
	var r Registry
	r.NoteOn(60, at(0))
	r.NoteOn(64, at(1))

	if !r.NoteOff(60) {
		t.Error("note-off of held pitch should report a change")
	}
	if r.NoteOff(60) {
		t.Error("repeated note-off should be a no-op")
	}
	if r.NoteOff(72) {
		t.Error("note-off of never-held pitch should be a no-op")
	}
	if r.Len() != 1 {
		t.Errorf("held count: got %d, want 1", r.Len())
	}
}

func TestRegistryClear(t *testing.T) {
	var r Registry
	r.NoteOn(60, at(0))
	r.NoteOn(64, at(1))
	r.Clear()
	if !r.Empty() {
		t.Errorf("after Clear: %d notes still held", r.Len())
	}
	if _, ok := r.Resolve(PriorityLow); ok {
		t.Error("resolve on empty registry should report no note")
	}
}

func TestResolveModes(t *testing.T) {
	var r Registry
	r.NoteOn(67, at(0))  // G4 first
	r.NoteOn(60, at(10)) // C4
	r.NoteOn(64, at(20)) // E4 last

	cases := []struct {
		mode Priority
		want Pitch
	}{
		{PriorityFirst, 67},
		{PriorityLast, 64},
		{PriorityLow, 60},
		{PriorityHigh, 67},
	}
	for _, c := range cases {
		p, ok := r.Resolve(c.mode)
		if !ok || p != c.want {
			t.Errorf("resolve %v: got %v ok=%v, want %v true", c.mode, p, ok, c.want)
		}
	}
}

func TestResolveEqualTimestampTieBreaksLow(t *testing.T) {
	var r Registry
	r.NoteOn(64, at(0))
	r.NoteOn(60, at(0)) // same instant

	if p, _ := r.Resolve(PriorityFirst); p != 60 {
		t.Errorf("first with tied arrivals: got %v, want 60 (lowest pitch)", p)
	}
	if p, _ := r.Resolve(PriorityLast); p != 60 {
		t.Errorf("last with tied arrivals: got %v, want 60 (lowest pitch)", p)
	}
}

func TestResolveTracksReleases(t *testing.T) {
	var r Registry
	r.NoteOn(60, at(0))
	r.NoteOn(64, at(10))

	if p, _ := r.Resolve(PriorityLast); p != 64 {
		t.Fatalf("resolve last: got %v, want 64", p)
	}
	r.NoteOff(64)
	if p, _ := r.Resolve(PriorityLast); p != 60 {
		t.Errorf("resolve last after release: got %v, want 60", p)
	}
}
