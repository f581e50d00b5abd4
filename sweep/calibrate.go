package sweep

import (
	"context"
	"fmt"

	"github.com/golang/glog"
	"github.com/google/uuid"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/radio"
)

// Calibration is the oscillator error found from a known carrier.
type Calibration struct {
	Observed  uint64 `json:"observed_hz"`
	Reference uint64 `json:"reference_hz"`
	// PPM is the total correction to use, including the request's own.
	PPM   float64 `json:"ppm"`
	Power float64 `json:"power_db"`
}

// Calibrate sweeps req, takes the strongest bin found and compares it
// with the nearest of refs.
func (e *Engine) Calibrate(ctx context.Context, req Request, refs []uint64) (Calibration, error) {
	if len(refs) == 0 {
		return Calibration{}, fmt.Errorf("%w: no reference carriers", ErrInvalidRequest)
	}
	rep, err := e.run(ctx, uuid.New(), req, peak.Single{}, nil)
	if err != nil {
		return Calibration{}, err
	}
	var best *PeakRecord
	for _, res := range rep.Results {
		for i := range res.Peaks {
			if best == nil || res.Peaks[i].Power > best.Power {
				best = &res.Peaks[i]
			}
		}
	}
	if best == nil {
		return Calibration{}, fmt.Errorf("%w: no signal", radio.ErrDeviceUnavailable)
	}
	ref := radio.NearestReference(best.Frequency, refs)
	c := Calibration{
		Observed:  best.Frequency,
		Reference: ref,
		PPM:       float64(req.PPM) + radio.PPMError(best.Frequency, ref),
		Power:     best.Power,
	}
	glog.Infof("carrier %d Hz seen at %d Hz (%.1f dB): %.2f ppm", c.Reference, c.Observed, c.Power, c.PPM)
	return c, nil
}
