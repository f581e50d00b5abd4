package sweep

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRequest = errors.New("invalid sweep request")

// Mode selects how windows tile the swept range.
type Mode int

const (
	// Disjoint windows sit back to back.
	Disjoint Mode = iota
	// Overlap windows advance by half a bandwidth over a range padded by
	// half a bandwidth on each side, so no frequency only ever sits at a
	// window edge.
	Overlap
)

func (m Mode) String() string {
	switch m {
	case Disjoint:
		return "disjoint"
	case Overlap:
		return "overlap"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "disjoint":
		*m = Disjoint
	case "overlap":
		*m = Overlap
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRequest, b)
	}
	return nil
}

// Request is one sweep over [Start, Stop].
type Request struct {
	Start      uint64 `json:"start_hz"`
	Stop       uint64 `json:"stop_hz"`
	Bandwidth  uint64 `json:"bandwidth_hz"`
	BinSize    uint64 `json:"bin_size_hz"`
	SampleRate uint64 `json:"sample_rate"`
	PPM        int    `json:"ppm"`

	CaptureDuration time.Duration `json:"capture_duration"`
	Mode            Mode          `json:"mode"`
}

// FFTSize is the transform length giving BinSize wide bins.
func (r Request) FFTSize() int { return int(r.SampleRate / r.BinSize) }

// Bins is the bin count of a full width window.
func (r Request) Bins() int { return int(r.Bandwidth / r.BinSize) }

// Samples is how many samples one window captures.
func (r Request) Samples() int {
	return int(float64(r.SampleRate) * r.CaptureDuration.Seconds())
}

func (r Request) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{ErrInvalidRequest}, args...)...)
	}
	switch {
	case r.Start >= r.Stop:
		return bad("start %d not below stop %d", r.Start, r.Stop)
	case r.Bandwidth == 0:
		return bad("zero bandwidth")
	case r.BinSize == 0:
		return bad("zero bin size")
	case r.Bandwidth%r.BinSize != 0:
		return bad("bin size %d does not divide bandwidth %d", r.BinSize, r.Bandwidth)
	case r.SampleRate == 0 || r.SampleRate%r.BinSize != 0:
		return bad("bin size %d does not divide sample rate %d", r.BinSize, r.SampleRate)
	case r.Bandwidth > r.SampleRate:
		return bad("bandwidth %d exceeds sample rate %d", r.Bandwidth, r.SampleRate)
	case r.Mode != Disjoint && r.Mode != Overlap:
		return bad("unknown mode %v", r.Mode)
	case r.Mode == Overlap && r.Bandwidth%2 != 0:
		return bad("overlapping windows need an even bandwidth, got %d", r.Bandwidth)
	case r.CaptureDuration <= 0:
		return bad("capture duration %v", r.CaptureDuration)
	case r.Samples() < r.FFTSize():
		return bad("%v capture is shorter than one %d point frame", r.CaptureDuration, r.FFTSize())
	}
	return nil
}
