package radio

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/kr/pty"
)

const (
	defaultDialTimeout = 5 * time.Second
	spawnRetries       = 30
	spawnRetryDelay    = 100 * time.Millisecond
)

// RTLTCP is a Tuner backed by an rtl_tcp server.
type RTLTCP struct {
	addr        string
	dialTimeout time.Duration
	gain        int
	ifStage     uint16
	ifGain      int

	conn *RTLTCPConn
	info HWInfo

	cfg       TuneConfig
	tunedAt   time.Time
	capturing bool

	// set when rtl_tcp was started by this process
	cmd  *exec.Cmd
	fpty *os.File

	mu sync.Mutex
}

type RTLTCPOption func(*RTLTCP)

// WithDialTimeout bounds connecting and reading the dongle header.
func WithDialTimeout(d time.Duration) RTLTCPOption {
	return func(r *RTLTCP) { r.dialTimeout = d }
}

// WithGain sets a manual tuner gain in tenths of dB; zero selects automatic gain.
func WithGain(tenthsDB int) RTLTCPOption {
	return func(r *RTLTCP) { r.gain = tenthsDB }
}

// WithIFGain sets the gain of one tuner IF stage in tenths of dB. Only
// tuners with IF stages (E4000) honor it.
func WithIFGain(stage uint16, tenthsDB int) RTLTCPOption {
	return func(r *RTLTCP) { r.ifStage, r.ifGain = stage, tenthsDB }
}

// NewRTLTCP connects to the rtl_tcp server at addr and reads the device limits.
func NewRTLTCP(ctx context.Context, addr string, opts ...RTLTCPOption) (*RTLTCP, error) {
	r := &RTLTCP{addr: addr, dialTimeout: defaultDialTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.dial(ctx); err != nil {
		return nil, err
	}
	r.info = infoFromDongle(addr, r.conn.Info)
	glog.V(1).Infof("rtl_tcp %s: tuner %s, %d gains", addr, r.info.Tuner, r.conn.Info.GainCount)
	return r, nil
}

// SpawnRTLTCP starts a local rtl_tcp for the dongle with the given serial
// or index and connects to it once it listens.
func SpawnRTLTCP(ctx context.Context, serial, addr string, opts ...RTLTCPOption) (*RTLTCP, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	cmd := exec.CommandContext(ctx, "rtl_tcp", "-a", host, "-p", port, "-d", serial)
	fpty, err := pty.Start(cmd)
	if err != nil {
		return nil, fmt.Errorf("%w: starting rtl_tcp: %v", ErrDeviceUnavailable, err)
	}
	go io.Copy(glogWriter{}, fpty)

	var r *RTLTCP
	for i := 0; i < spawnRetries; i++ {
		if r, err = NewRTLTCP(ctx, addr, opts...); err == nil {
			break
		}
		select {
		case <-time.After(spawnRetryDelay):
		case <-ctx.Done():
			err = ctx.Err()
			i = spawnRetries
		}
	}
	if err != nil {
		fpty.Close()
		cmd.Wait()
		return nil, err
	}
	r.info.Id = serial
	r.cmd, r.fpty = cmd, fpty
	return r, nil
}

type glogWriter struct{}

func (glogWriter) Write(p []byte) (int, error) {
	glog.V(2).Infof("rtl_tcp: %s", p)
	return len(p), nil
}

func (r *RTLTCP) Info() HWInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	info := r.info
	info.CenterHz, info.SampleRate = r.cfg.CenterHz, r.cfg.SampleRate
	return info
}

// Configure reconnects, so the server drops samples buffered under the
// previous tuning, and sends the whole configuration. Nothing is sent to
// the server after it returns, so the caller's settle wait covers every
// tuning command.
func (r *RTLTCP) Configure(ctx context.Context, cfg TuneConfig) error {
	if err := r.info.Check(cfg); err != nil {
		return err
	}
	if !isValidRate(cfg.SampleRate) {
		return fmt.Errorf("%w: %d", ErrRateOutOfRange, cfg.SampleRate)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capturing {
		return fmt.Errorf("%w: retune while capturing", ErrUnsupportedParameter)
	}
	r.stop()
	if err := r.dial(ctx); err != nil {
		return err
	}
	r.cfg = cfg
	if err := r.apply(); err != nil {
		r.stop()
		return err
	}
	r.tunedAt = time.Now()
	return nil
}

func (r *RTLTCP) apply() error {
	if err := r.conn.SetGainMode(r.gain == 0); err != nil {
		return err
	}
	if r.gain != 0 {
		if err := r.conn.SetGain(uint32(r.gain)); err != nil {
			return err
		}
	}
	if err := r.conn.SetAGCMode(r.gain == 0); err != nil {
		return err
	}
	if r.ifGain != 0 {
		if err := r.conn.SetTunerIfGain(r.ifStage, uint16(int16(r.ifGain))); err != nil {
			return err
		}
	}
	if err := r.conn.SetFreqCorrection(int32(r.cfg.PPM)); err != nil {
		return err
	}
	if err := r.conn.SetSampleRate(r.cfg.SampleRate); err != nil {
		return err
	}
	return r.conn.SetCenterFreq(uint32(r.cfg.CenterHz))
}

// StartCapture streams from the connection Configure opened. Samples the
// server produced since tuning, while the hardware settled, are dropped.
func (r *RTLTCP) StartCapture(ctx context.Context) (*IQReader, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.capturing {
		return nil, fmt.Errorf("%w: capture already running", ErrUnsupportedParameter)
	}
	if r.conn == nil || r.tunedAt.IsZero() {
		return nil, fmt.Errorf("%w: not configured", ErrUnsupportedParameter)
	}
	elapsed := time.Since(r.tunedAt)
	stale := 2 * int64(elapsed.Seconds()*float64(r.cfg.SampleRate))
	r.conn.SetReadDeadline(time.Now().Add(elapsed + r.dialTimeout))
	_, err := io.CopyN(io.Discard, r.conn, stale)
	r.conn.SetReadDeadline(time.Time{})
	if err != nil {
		r.stop()
		return nil, fmt.Errorf("%w: dropping settle samples: %v", ErrDeviceUnavailable, err)
	}
	glog.V(2).Infof("rtl_tcp %s: dropped %d bytes streamed while settling", r.addr, stale)
	r.capturing = true
	return NewIQReader(r.conn), nil
}

func (r *RTLTCP) StopCapture() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capturing = false
	r.tunedAt = time.Time{}
	return r.stop()
}

func (r *RTLTCP) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.capturing = false
	err := r.stop()
	if r.cmd != nil {
		r.fpty.Close()
		if r.cmd.Process != nil {
			r.cmd.Process.Kill()
		}
		r.cmd.Wait()
		r.cmd, r.fpty = nil, nil
	}
	return err
}

func (r *RTLTCP) stop() error {
	if r.conn == nil {
		return nil
	}
	err := r.conn.Close()
	r.conn = nil
	return err
}

func (r *RTLTCP) dial(ctx context.Context) (err error) {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.conn, err = DialRTLTCP(r.addr, r.dialTimeout)
	return err
}
