package output

import (
	"fmt"

	"github.com/chase3718/moogate/internal/note"
)

const (
	SOF0          = 0xAA
	SOF1          = 0x55
	CmdVoiceFrame = 0x01

	flagGate   = 0x01
	flagVoiced = 0x02
	flagRetrig = 0x04
)

// UnvoicedPitch is the on-wire pitch byte of an unvoiced frame.
const UnvoicedPitch = 0xFF

// Frame is a full-state snapshot of the two control lines plus glide, sent
// whole so a dropped predecessor can never leave the synth half-updated.
type Frame struct {
	Pitch   note.Pitch // KBD pitch; meaningful only when Voiced
	Voiced  bool       // false = no key held (driver may hold last level)
	Gate    bool       // S-Trig: true while the envelope should run
	Retrig  bool       // one-shot: re-strike the envelope without a release
	GlideMs uint16     // portamento time to reach Pitch
	Seq     byte
}

// Encode builds the on-wire representation:
//
//	[SOF0][SOF1][LEN][CMD][pitch][flags][glideLo][glideHi][seq][CKS]
func (f *Frame) Encode() []byte {
	pitch := byte(UnvoicedPitch)
	if f.Voiced {
		pitch = byte(f.Pitch)
	}
	var flags byte
	if f.Gate {
		flags |= flagGate
	}
	if f.Voiced {
		flags |= flagVoiced
	}
	if f.Retrig {
		flags |= flagRetrig
	}
	payload := []byte{pitch, flags, byte(f.GlideMs), byte(f.GlideMs >> 8), f.Seq}

	length := byte(len(payload) + 1) // +1 for CMD byte
	cks := length ^ CmdVoiceFrame
	for _, b := range payload {
		cks ^= b
	}

	out := []byte{SOF0, SOF1, length, CmdVoiceFrame}
	out = append(out, payload...)
	out = append(out, cks)
	return out
}

func (f Frame) String() string {
	p := "-"
	if f.Voiced {
		p = f.Pitch.String()
	}
	return fmt.Sprintf("pitch=%s gate=%v retrig=%v glide=%dms seq=%d", p, f.Gate, f.Retrig, f.GlideMs, f.Seq)
}
