package radio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sync"
)

// Carrier is a constant tone at an absolute frequency.
type Carrier struct {
	Hz        uint64  `json:"hz" yaml:"hz"`
	Amplitude float64 `json:"amplitude" yaml:"amplitude"`
}

// Synth is a deterministic software tuner that renders carriers and
// gaussian noise into u8 I/Q the way an RTL dongle delivers it.
type Synth struct {
	Carriers []Carrier
	Noise    float64
	// OscillatorPPM is the simulated crystal error the PPM setting must cancel.
	OscillatorPPM float64
	// DC is a constant offset at the tuned center, as LO leakage gives.
	DC complex128

	rng *rand.Rand
	cfg TuneConfig
	src *synthSource
	mu  sync.Mutex
}

const synthChunk = 16384

func NewSynth(seed uint64, noise float64, carriers ...Carrier) *Synth {
	return &Synth{
		Carriers: carriers,
		Noise:    noise,
		rng:      rand.New(rand.NewPCG(seed, seed^0x5eed)),
	}
}

func (s *Synth) Info() HWInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HWInfo{
		Id:            "synth",
		Tuner:         "synthetic",
		MinHz:         0,
		MaxHz:         6000000000,
		MinSampleRate: 1,
		MaxSampleRate: 20000000,
		SDRFormat: SDRFormat{
			BitDepth:   8,
			CenterHz:   s.cfg.CenterHz,
			SampleRate: s.cfg.SampleRate,
		},
	}
}

func (s *Synth) Configure(ctx context.Context, cfg TuneConfig) error {
	if err := s.Info().Check(cfg); err != nil {
		return err
	}
	if cfg.SampleRate == 0 {
		return fmt.Errorf("%w: zero sample rate", ErrRateOutOfRange)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	return nil
}

func (s *Synth) StartCapture(ctx context.Context) (*IQReader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		return nil, fmt.Errorf("%w: capture already running", ErrUnsupportedParameter)
	}
	if s.cfg.SampleRate == 0 {
		return nil, fmt.Errorf("%w: not configured", ErrUnsupportedParameter)
	}
	// The oscillator error shifts the real LO; the PPM setting pulls it back.
	lo := float64(s.cfg.CenterHz) * (1 + (s.OscillatorPPM-float64(s.cfg.PPM))/1e6)
	var tones []tone
	for _, c := range s.Carriers {
		off := float64(c.Hz) - lo
		if math.Abs(off) >= float64(s.cfg.SampleRate)/2 {
			continue
		}
		tones = append(tones, tone{
			step: 2 * math.Pi * off / float64(s.cfg.SampleRate),
			amp:  c.Amplitude,
		})
	}
	s.src = &synthSource{tones: tones, dc: s.DC, noise: s.Noise, rng: s.rng}
	return NewIQReader(s.src), nil
}

func (s *Synth) StopCapture() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.src != nil {
		s.src.close()
		s.src = nil
	}
	return nil
}

func (s *Synth) Close() error { return s.StopCapture() }

type tone struct {
	step float64
	amp  float64
}

// synthSource is an endless u8 I/Q stream until closed.
type synthSource struct {
	tones []tone
	dc    complex128
	noise float64
	rng   *rand.Rand
	n     int

	buf    bytes.Buffer
	closed bool
	mu     sync.Mutex
}

func (src *synthSource) Read(p []byte) (int, error) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if src.closed {
		return 0, io.EOF
	}
	if src.buf.Len() == 0 {
		src.render(synthChunk)
	}
	return src.buf.Read(p)
}

func (src *synthSource) render(samps int) {
	out := make([]complex64, samps)
	for i := range out {
		re, im := real(src.dc), imag(src.dc)
		for _, t := range src.tones {
			ph := t.step * float64(src.n)
			re += t.amp * math.Cos(ph)
			im += t.amp * math.Sin(ph)
		}
		if src.noise > 0 {
			re += src.noise * src.rng.NormFloat64()
			im += src.noise * src.rng.NormFloat64()
		}
		out[i] = complex(float32(re), float32(im))
		src.n++
	}
	NewIQWriter(&src.buf).Write64(out)
}

func (src *synthSource) close() {
	src.mu.Lock()
	defer src.mu.Unlock()
	src.closed = true
}
