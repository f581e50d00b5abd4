package radio

import (
	"math"
)

// NOAAWeather lists the US weather radio carriers, always on air and
// narrow enough to calibrate against.
var NOAAWeather = []uint64{
	162400000, 162425000, 162450000, 162475000,
	162500000, 162525000, 162550000,
}

// NearestReference returns the reference carrier closest to hz.
func NearestReference(hz uint64, refs []uint64) uint64 {
	best, df := uint64(0), math.MaxFloat64
	for _, f := range refs {
		if diff := math.Abs(float64(hz) - float64(f)); diff < df {
			best, df = f, diff
		}
	}
	return best
}

// PPMError is the crystal error in parts per million given where a known
// carrier was observed. A fast oscillator places carriers low, which
// needs a positive correction.
func PPMError(observedHz, referenceHz uint64) float64 {
	return 1e6 * (float64(referenceHz) - float64(observedHz)) / float64(referenceHz)
}
