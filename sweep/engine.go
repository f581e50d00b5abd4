package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/radio"
	"github.com/chzchzchz/sweeprx/spectrum"
)

const (
	DefaultSettle         = 50 * time.Millisecond
	DefaultCaptureTimeout = 10 * time.Second
)

// Engine sweeps a tuner across the windows of a request. It owns the
// tuner for the duration of Run and is not safe for concurrent use.
type Engine struct {
	tuner radio.Tuner
	det   peak.Detector
	id    uuid.UUID

	settle         time.Duration
	captureTimeout time.Duration
	alpha          float64
	frameRate      float64
	keepSpectrum   bool
	keepDC         bool
	listeners      []chan<- WindowResult
	metrics        *Metrics
}

type Option func(*Engine)

// WithSettle is how long to wait after retuning before capturing.
func WithSettle(d time.Duration) Option { return func(e *Engine) { e.settle = d } }

// WithCaptureTimeout bounds one window beyond its settle and capture time.
func WithCaptureTimeout(d time.Duration) Option {
	return func(e *Engine) { e.captureTimeout = d }
}

// WithAveraging sets the exponential averaging factor and the number of
// frames per second that are averaged.
func WithAveraging(alpha, frameRate float64) Option {
	return func(e *Engine) { e.alpha, e.frameRate = alpha, frameRate }
}

func WithKeepSpectrum(keep bool) Option { return func(e *Engine) { e.keepSpectrum = keep } }

// WithKeepDC leaves each frame's DC component in place instead of
// removing it before the transform.
func WithKeepDC(keep bool) Option { return func(e *Engine) { e.keepDC = keep } }

// WithListeners receives a copy of every window result. The next Run
// closes the channels when it returns.
func WithListeners(ls ...chan<- WindowResult) Option {
	return func(e *Engine) { e.listeners = append(e.listeners, ls...) }
}

func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// WithID names the report of the next Run, so exporters started before
// the sweep can tag their output with it.
func WithID(id uuid.UUID) Option { return func(e *Engine) { e.id = id } }

func NewEngine(tuner radio.Tuner, det peak.Detector, opts ...Option) *Engine {
	e := &Engine{
		tuner:          tuner,
		det:            det,
		settle:         DefaultSettle,
		captureTimeout: DefaultCaptureTimeout,
		alpha:          1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run sweeps every window of req. Cancelling ctx stops the sweep once the
// current window is finished; the report then holds every finished
// window and the error is ctx.Err(). Tuner failures abort the sweep.
func (e *Engine) Run(ctx context.Context, req Request) (Report, error) {
	id, ls := e.id, e.listeners
	e.id, e.listeners = uuid.Nil, nil
	if id == uuid.Nil {
		id = uuid.New()
	}
	return e.run(ctx, id, req, e.det, ls)
}

func (e *Engine) run(ctx context.Context, id uuid.UUID, req Request, det peak.Detector, ls []chan<- WindowResult) (Report, error) {
	rep := NewReporter(id, req, ls...)
	defer rep.Close()
	plan, err := NewPlan(req)
	if err != nil {
		return rep.Finalize(), err
	}
	est, err := spectrum.New(spectrum.Config{
		SampleRate: req.SampleRate,
		FFTSize:    req.FFTSize(),
		Bins:       req.Bins(),
		Alpha:      e.alpha,
		FrameRate:  e.frameRate,
		KeepDC:     e.keepDC,
	})
	if err != nil {
		return rep.Finalize(), fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	e.metrics.running(1)
	defer e.metrics.running(-1)

	total := plan.Len()
	glog.Infof("sweeping %s to %s in %d windows, fft size %d",
		humanize.SIWithDigits(float64(req.Start), 3, "Hz"),
		humanize.SIWithDigits(float64(req.Stop), 3, "Hz"),
		total, req.FFTSize())
	for w := range plan.Windows() {
		if err := ctx.Err(); err != nil {
			glog.Infof("sweep stopped after %d of %d windows", w.Index, total)
			return rep.Finalize(), err
		}
		start := time.Now()
		res, err := e.window(ctx, est, det, req, w)
		if err != nil {
			e.metrics.failed()
			return rep.Finalize(), fmt.Errorf("window %d at %d Hz: %w", w.Index, w.Center, err)
		}
		rep.Record(res)
		e.metrics.observe(res, time.Since(start))
		glog.Infof("window %d/%d %s: %d peaks",
			w.Index+1, total, humanize.SIWithDigits(float64(w.Center), 6, "Hz"), len(res.Peaks))
	}
	return rep.Finalize(), nil
}

// window runs one configure, settle, capture and analyze cycle. It is not
// interrupted by ctx so that a started window always completes.
func (e *Engine) window(ctx context.Context, est *spectrum.Estimator, det peak.Detector, req Request, w Window) (WindowResult, error) {
	wctx, cancel := context.WithTimeout(
		context.WithoutCancel(ctx),
		e.settle+req.CaptureDuration+e.captureTimeout)
	defer cancel()

	cfg := radio.TuneConfig{
		CenterHz:    w.Center,
		SampleRate:  uint32(req.SampleRate),
		BandwidthHz: w.Bandwidth,
		PPM:         req.PPM,
	}
	if err := e.tuner.Configure(wctx, cfg); err != nil {
		return WindowResult{}, err
	}
	select {
	case <-time.After(e.settle):
	case <-wctx.Done():
		return WindowResult{}, wctx.Err()
	}

	iqr, err := e.tuner.StartCapture(wctx)
	if err != nil {
		return WindowResult{}, err
	}
	defer e.tuner.StopCapture()
	// unblock a stalled read once the window runs out of time
	stop := context.AfterFunc(wctx, func() { e.tuner.StopCapture() })
	defer stop()

	fftSize := est.Config().FFTSize
	frames := req.Samples() / fftSize
	glog.V(1).Infof("window %d: capturing %d frames of %d at %s",
		w.Index, frames, fftSize, humanize.SIWithDigits(float64(w.Center), 6, "Hz"))
	v, err := est.Measure(iqr.BatchStream64(wctx, fftSize, frames))
	// a source stopped by the timeout may end with a clean EOF
	if wctx.Err() != nil {
		return WindowResult{}, fmt.Errorf("%w: capture timed out", radio.ErrDeviceUnavailable)
	}
	if rerr := iqr.Err(); rerr != nil {
		return WindowResult{}, fmt.Errorf("%w: %v", radio.ErrDeviceUnavailable, rerr)
	}
	if err != nil {
		return WindowResult{}, fmt.Errorf("%w: %v", radio.ErrDeviceUnavailable, err)
	}
	v = v.Centre(w.Bins())

	res := WindowResult{Window: w, Peaks: []PeakRecord{}}
	for _, p := range det.Detect(v) {
		res.Peaks = append(res.Peaks, PeakRecord{Peak: p, Frequency: w.Freq(p.Bin)})
	}
	if e.keepSpectrum {
		res.Spectrum = v
	}
	return res, nil
}
