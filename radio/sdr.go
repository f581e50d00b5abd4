package radio

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDeviceUnavailable means the receiver could not be reached or stopped responding.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrUnsupportedParameter means the receiver rejected a tuning parameter.
	ErrUnsupportedParameter = errors.New("unsupported parameter")

	ErrRateOutOfRange      = fmt.Errorf("%w: sample rate out of range", ErrUnsupportedParameter)
	ErrFrequencyOutOfRange = fmt.Errorf("%w: frequency out of range", ErrUnsupportedParameter)
	ErrBandwidthOutOfRange = fmt.Errorf("%w: bandwidth exceeds sample rate", ErrUnsupportedParameter)
)

// TuneConfig is one complete receiver configuration. It is applied as a
// whole rather than field by field.
type TuneConfig struct {
	CenterHz    uint64 `json:"center_hz"`
	SampleRate  uint32 `json:"sample_rate"`
	BandwidthHz uint64 `json:"bandwidth_hz"`
	PPM         int    `json:"ppm"`
}

// Tuner is a receiver that produces complex baseband samples.
type Tuner interface {
	// Configure retunes the receiver. Samples captured before the
	// hardware settles may be garbage; callers wait before capturing.
	Configure(ctx context.Context, cfg TuneConfig) error
	// StartCapture begins sample flow for the current configuration.
	StartCapture(ctx context.Context) (*IQReader, error)
	StopCapture() error
	Info() HWInfo
	Close() error
}

type SDRFormat struct {
	BitDepth   uint   `json:"bit_depth"`
	CenterHz   uint64 `json:"center_hz"`
	SampleRate uint32 `json:"sample_rate"`
}

type HWInfo struct {
	Id    string `json:"id"`
	Tuner string `json:"tuner"`

	MinHz         uint64 `json:"min_hz"`
	MaxHz         uint64 `json:"max_hz"`
	MinSampleRate uint32 `json:"min_sample_rate"`
	MaxSampleRate uint32 `json:"max_sample_rate"`

	SDRFormat
}

// Check validates a configuration against the device-reported limits.
func (info HWInfo) Check(cfg TuneConfig) error {
	if cfg.CenterHz < info.MinHz || cfg.CenterHz > info.MaxHz {
		return fmt.Errorf("%w: %d Hz not in [%d, %d]", ErrFrequencyOutOfRange, cfg.CenterHz, info.MinHz, info.MaxHz)
	}
	if cfg.SampleRate < info.MinSampleRate || cfg.SampleRate > info.MaxSampleRate {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrRateOutOfRange, cfg.SampleRate, info.MinSampleRate, info.MaxSampleRate)
	}
	if cfg.BandwidthHz > uint64(cfg.SampleRate) {
		return fmt.Errorf("%w: %d > %d", ErrBandwidthOutOfRange, cfg.BandwidthHz, cfg.SampleRate)
	}
	return nil
}
