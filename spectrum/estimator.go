package spectrum

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/window"
)

var (
	ErrShortCapture = errors.New("capture ended before a full frame")
	ErrBadConfig    = errors.New("bad estimator config")
)

// Vector is a power spectrum in dB, lowest frequency first.
type Vector []float64

// Config describes one spectrum estimate. FFTSize is SampleRate/BinSize
// and Bins the number of centre bins kept, Bandwidth/BinSize.
type Config struct {
	SampleRate uint64  `json:"sample_rate"`
	FFTSize    int     `json:"fft_size"`
	Bins       int     `json:"bins"`
	Alpha      float64 `json:"alpha"`
	// FrameRate is the number of frames per second fed into the
	// average. Zero keeps every frame.
	FrameRate float64 `json:"frame_rate"`
	// RefScale is the full scale reference amplitude; 2 gives 0 dB
	// correction for samples in [-1, 1].
	RefScale float64 `json:"ref_scale"`
	// KeepDC skips removing each frame's mean. The mean is mostly LO
	// leakage, which would otherwise show as a peak at the tuned center.
	KeepDC bool `json:"keep_dc"`
}

func (c Config) validate() error {
	switch {
	case c.SampleRate == 0:
		return fmt.Errorf("%w: zero sample rate", ErrBadConfig)
	case c.FFTSize < 1:
		return fmt.Errorf("%w: fft size %d", ErrBadConfig, c.FFTSize)
	case c.Bins < 1 || c.Bins > c.FFTSize:
		return fmt.Errorf("%w: %d bins not in [1, %d]", ErrBadConfig, c.Bins, c.FFTSize)
	case !(c.Alpha > 0 && c.Alpha <= 1):
		return fmt.Errorf("%w: alpha %v not in (0, 1]", ErrBadConfig, c.Alpha)
	case c.FrameRate < 0:
		return fmt.Errorf("%w: frame rate %v", ErrBadConfig, c.FrameRate)
	case c.RefScale < 0:
		return fmt.Errorf("%w: ref scale %v", ErrBadConfig, c.RefScale)
	}
	return nil
}

// Estimator turns complex samples into an averaged, calibrated power
// spectrum. It is built once per sweep and is not safe for concurrent use.
type Estimator struct {
	cfg    Config
	win    []float64
	fft    powerFFT
	pow    []float64
	frame  []complex64
	offset float64
	decim  int
}

func New(cfg Config) (*Estimator, error) {
	if cfg.RefScale == 0 {
		cfg.RefScale = 2
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	n := cfg.FFTSize
	win := make([]float64, n)
	for i := range win {
		win[i] = 1
	}
	win = window.BlackmanHarris(win)
	winPow := 0.0
	for _, w := range win {
		winPow += w * w
	}
	decim := 1
	if cfg.FrameRate > 0 {
		decim = max(1, int(float64(cfg.SampleRate)/float64(n)/cfg.FrameRate))
	}
	offset := -20*math.Log10(float64(n)) -
		10*math.Log10(winPow/float64(n)) -
		20*math.Log10(cfg.RefScale/2)
	return &Estimator{
		cfg:    cfg,
		win:    win,
		fft:    newPowerFFT(n),
		pow:    make([]float64, n),
		frame:  make([]complex64, n),
		offset: offset,
		decim:  decim,
	}, nil
}

func (e *Estimator) Config() Config { return e.cfg }

// Decimation is how many frames pass per frame averaged.
func (e *Estimator) Decimation() int { return e.decim }

// Estimate computes the spectrum of a finished capture. Trailing samples
// that do not fill a frame are ignored.
func (e *Estimator) Estimate(samps []complex64) (Vector, error) {
	a := e.newAccum()
	a.push(samps)
	return a.vector()
}

// Measure consumes sample batches until ch closes.
func (e *Estimator) Measure(ch <-chan []complex64) (Vector, error) {
	a := e.newAccum()
	for samps := range ch {
		a.push(samps)
	}
	return a.vector()
}

type accum struct {
	e      *Estimator
	filled int
	frames int
	kept   int
	avg    []float64
}

func (e *Estimator) newAccum() *accum {
	return &accum{e: e, avg: make([]float64, e.cfg.Bins)}
}

func (a *accum) push(samps []complex64) {
	n := len(a.e.frame)
	for len(samps) > 0 {
		c := copy(a.e.frame[a.filled:], samps)
		a.filled, samps = a.filled+c, samps[c:]
		if a.filled == n {
			a.frameDone()
			a.filled = 0
		}
	}
}

func (a *accum) frameDone() {
	e := a.e
	defer func() { a.frames++ }()
	if a.frames%e.decim != 0 {
		return
	}
	var dc complex64
	if !e.cfg.KeepDC {
		var sum complex128
		for _, v := range e.frame {
			sum += complex128(v)
		}
		dc = complex64(sum / complex(float64(len(e.frame)), 0))
	}
	for i, w := range e.win {
		e.frame[i] = (e.frame[i] - dc) * complex(float32(w), 0)
	}
	e.fft.power(e.frame, e.pow)
	n, bins := len(e.pow), len(a.avg)
	// shifted index k holds unshifted (k - n/2) mod n; keep the centre bins
	first := n/2 - bins/2
	alpha := e.cfg.Alpha
	for j := range a.avg {
		p := e.pow[(first+j-n/2+n)%n]
		if a.kept == 0 {
			a.avg[j] = p
		} else {
			a.avg[j] = alpha*p + (1-alpha)*a.avg[j]
		}
	}
	a.kept++
}

func (a *accum) vector() (Vector, error) {
	if a.kept == 0 {
		return nil, fmt.Errorf("%w: %d of %d samples", ErrShortCapture, a.filled, a.e.cfg.FFTSize)
	}
	v := make(Vector, len(a.avg))
	for i, p := range a.avg {
		v[i] = 10*math.Log10(max(p, 1e-20)) + a.e.offset
	}
	return v, nil
}

// Centre returns the n bins around DC, the same crop the estimator makes,
// so a narrower window tuned on the same bin grid lines up with v.
func (v Vector) Centre(n int) Vector {
	if n >= len(v) {
		return v
	}
	first := len(v)/2 - n/2
	return v[first : first+n]
}
