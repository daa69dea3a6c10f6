package output

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/chase3718/moogate/internal/note"
)

// retrigPulseMs is how long the gate dips on a re-strike request. Long enough
// for an envelope generator to see a release, short enough to stay inaudible
// as a gap.
const retrigPulseMs = 3

// AudioConfig shapes the DC stream an AudioDriver produces.
type AudioConfig struct {
	SampleRate  int     // output rate, e.g. 48000
	CVSpanVolts float64 // volts mapped to digital full scale (interface-dependent)
	// HoldLastNote keeps the CV at the last voiced pitch while unvoiced,
	// like the original keyboard circuit; false snaps it back to 0 V.
	HoldLastNote bool
}

// levels is the per-sample state of both output lines. Left channel carries
// the KBD control voltage, right channel the gate level; glide moves the CV
// linearly toward its target, and a retrigger forces the gate low for a few
// milliseconds before letting it back up.
type levels struct {
	cv         float32
	target     float32
	glideLeft  int
	glideStep  float32
	gate       bool
	retrigLeft int
}

func (l *levels) set(target float32, glideSamples int, gate, retrig bool, retrigSamples int) {
	l.target = target
	if glideSamples > 0 && target != l.cv {
		l.glideLeft = glideSamples
		l.glideStep = (target - l.cv) / float32(glideSamples)
	} else {
		l.glideLeft = 0
		l.cv = target
	}
	l.gate = gate
	if retrig {
		l.retrigLeft = retrigSamples
	}
}

// next advances one sample and returns the (cv, gate) pair to emit.
func (l *levels) next() (float32, float32) {
	if l.glideLeft > 0 {
		l.cv += l.glideStep
		l.glideLeft--
		if l.glideLeft == 0 {
			l.cv = l.target
		}
	}
	g := float32(0)
	if l.gate && l.retrigLeft == 0 {
		g = 1
	}
	if l.retrigLeft > 0 {
		l.retrigLeft--
	}
	return l.cv, g
}

// AudioDriver renders the control lines as a stereo DC stream for a
// DC-coupled audio interface used as a CV source: left = KBD (volts/octave
// scaled into digital full scale), right = gate. AC-coupled consumer cards
// will high-pass this into uselessness; that is the interface's problem, not
// ours to detect.
type AudioDriver struct {
	mu sync.Mutex
	lv levels

	rng        note.Range
	vPerOct    float64
	sampleRate int
	scale      float32 // sample units per volt
	holdLast   bool

	player *oto.Player
	log    *slog.Logger
}

// NewAudioDriver opens the system audio device and starts streaming silence
// (0 V, gate low) until frames arrive.
func NewAudioDriver(cfg AudioConfig, rng note.Range, voltsPerOctave float64, log *slog.Logger) (*AudioDriver, error) {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.CVSpanVolts <= 0 {
		cfg.CVSpanVolts = 5.0
	}
	d := &AudioDriver{
		rng:        rng,
		vPerOct:    voltsPerOctave,
		sampleRate: cfg.SampleRate,
		scale:      float32(1.0 / cfg.CVSpanVolts),
		holdLast:   cfg.HoldLastNote,
		log:        log,
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   10 * time.Millisecond,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio context: %w", err)
	}
	<-ready
	d.player = ctx.NewPlayer(d)
	d.player.Play()
	log.Info("audio: cv stream started", "rate", cfg.SampleRate, "span_volts", cfg.CVSpanVolts)
	return d, nil
}

// Apply retargets the stream. With HoldLastNote an unvoiced frame leaves
// the CV at its last level and only drops the gate, like the original
// keyboard circuit; otherwise the CV snaps back to 0 V.
func (d *AudioDriver) Apply(f Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	target := d.lv.target
	glideSamples := 0
	if f.Voiced {
		volts := float64(d.rng.Semitones(f.Pitch)) / 12.0 * d.vPerOct
		target = clamp1(float32(volts) * d.scale)
		glideSamples = int(f.GlideMs) * d.sampleRate / 1000
	} else if !d.holdLast {
		target = 0
	}
	d.lv.set(target, glideSamples, f.Gate, f.Retrig, retrigPulseMs*d.sampleRate/1000)
	return nil
}

// Read streams interleaved float32 LE samples; called by the audio backend.
func (d *AudioDriver) Read(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	frames := len(p) / 8
	if frames == 0 {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}
	for i := 0; i < frames; i++ {
		cv, gate := d.lv.next()
		binary.LittleEndian.PutUint32(p[i*8:], math.Float32bits(cv))
		binary.LittleEndian.PutUint32(p[i*8+4:], math.Float32bits(gate))
	}
	return frames * 8, nil
}

// Close zeroes both lines and stops the stream.
func (d *AudioDriver) Close() error {
	d.mu.Lock()
	d.lv.set(0, 0, false, false, 0)
	d.mu.Unlock()
	// Give the backend one buffer to emit the zero levels before closing.
	time.Sleep(20 * time.Millisecond)
	d.log.Info("audio: cv stream closing")
	return d.player.Close()
}

func clamp1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
