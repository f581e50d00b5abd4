package peak

import (
	"math"
	"slices"
)

// Peak is a local maximum of a spectrum.
type Peak struct {
	Bin        int     `json:"bin"`
	Power      float64 `json:"power_db"`
	Prominence float64 `json:"prominence_db,omitempty"`
	// Width in fractional bins at half prominence.
	Width float64 `json:"width_bins,omitempty"`
}

// Detector selects the peaks of a spectrum in ascending bin order.
type Detector interface {
	Detect(v []float64) []Peak
}

// Single reports the strongest bin of every spectrum.
type Single struct{}

func (Single) Detect(v []float64) []Peak {
	if p, ok := Argmax(v); ok {
		return []Peak{p}
	}
	return nil
}

// Argmax returns the strongest bin, preferring the lowest index on ties.
func Argmax(v []float64) (Peak, bool) {
	if len(v) == 0 {
		return Peak{}, false
	}
	idx := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[idx] {
			idx = i
		}
	}
	return Peak{Bin: idx, Power: v[idx]}, true
}

// Config bounds which local maxima count as peaks.
type Config struct {
	// Height is the minimum level in dB. Use NoHeight to accept any.
	Height float64 `json:"height" yaml:"height"`
	// Prominence is the minimum rise in dB above the higher of the two
	// surrounding minima.
	Prominence float64 `json:"prominence" yaml:"prominence"`
	// Width is the minimum width in bins at half prominence.
	Width float64 `json:"width" yaml:"width"`
	// MaxPeaks keeps only the most prominent peaks when positive.
	MaxPeaks int `json:"max_peaks" yaml:"max_peaks"`
}

var NoHeight = math.Inf(-1)

// Multi reports every peak passing its Config.
type Multi Config

func (m Multi) Detect(v []float64) []Peak { return Find(v, Config(m)) }

// WidthBins converts a width in Hz to whole bins, rounding down.
func WidthBins(widthHz, binSize uint64) float64 {
	if binSize == 0 {
		return 0
	}
	return float64(widthHz / binSize)
}

// Find returns the local maxima of v that satisfy cfg, by ascending bin.
// Flat tops resolve to their middle sample; the first and last bins are
// never peaks.
func Find(v []float64, cfg Config) (ret []Peak) {
	if len(v) < 3 {
		return nil
	}
	for _, i := range localMaxima(v) {
		if v[i] < cfg.Height {
			continue
		}
		prom, lb, rb := prominence(v, i)
		if prom < cfg.Prominence {
			continue
		}
		w := width(v, i, prom, lb, rb)
		if w < cfg.Width {
			continue
		}
		ret = append(ret, Peak{Bin: i, Power: v[i], Prominence: prom, Width: w})
	}
	if cfg.MaxPeaks > 0 && len(ret) > cfg.MaxPeaks {
		slices.SortStableFunc(ret, func(a, b Peak) int {
			if a.Prominence > b.Prominence {
				return -1
			} else if a.Prominence < b.Prominence {
				return 1
			}
			return 0
		})
		ret = ret[:cfg.MaxPeaks]
		slices.SortFunc(ret, func(a, b Peak) int { return a.Bin - b.Bin })
	}
	return ret
}

func localMaxima(v []float64) (ret []int) {
	n := len(v)
	for i := 1; i < n-1; {
		if !(v[i-1] < v[i]) {
			i++
			continue
		}
		ahead := i + 1
		for ahead < n-1 && v[ahead] == v[i] {
			ahead++
		}
		if v[ahead] < v[i] {
			ret = append(ret, (i+ahead-1)/2)
		}
		i = ahead
	}
	return ret
}

// prominence walks out from the peak on each side until a higher sample
// or the edge, and returns the rise over the higher of the two minima
// together with the bins holding them.
func prominence(v []float64, peak int) (float64, int, int) {
	lmin, lbase := v[peak], peak
	for i := peak; i >= 0 && v[i] <= v[peak]; i-- {
		if v[i] < lmin {
			lmin, lbase = v[i], i
		}
	}
	rmin, rbase := v[peak], peak
	for i := peak; i < len(v) && v[i] <= v[peak]; i++ {
		if v[i] < rmin {
			rmin, rbase = v[i], i
		}
	}
	return v[peak] - max(lmin, rmin), lbase, rbase
}

// width measures the peak at half its prominence, interpolating the
// crossing between samples on each side.
func width(v []float64, peak int, prom float64, lbase, rbase int) float64 {
	h := v[peak] - prom/2
	i := peak
	for lbase < i && h < v[i] {
		i--
	}
	left := float64(i)
	if v[i] < h {
		left += (h - v[i]) / (v[i+1] - v[i])
	}
	i = peak
	for i < rbase && h < v[i] {
		i++
	}
	right := float64(i)
	if v[i] < h {
		right -= (h - v[i]) / (v[i-1] - v[i])
	}
	return right - left
}
