package radio

import (
	"sort"
)

// HzBand is a frequency span given by its center and width.
type HzBand struct {
	Center uint64 `json:"center_hz"`
	Width  uint64 `json:"width_hz"`
}

// NewHzRange returns the band covering [lo, hi).
func NewHzRange(lo, hi uint64) HzBand {
	return HzBand{Center: lo + (hi-lo)/2, Width: hi - lo}
}

func (b HzBand) Begin() uint64 { return b.Center - b.Width/2 }
func (b HzBand) End() uint64   { return b.Begin() + b.Width }

func (b HzBand) Overlaps(b2 HzBand) bool {
	return !(b2.End() < b.Begin() || b2.Begin() > b.End())
}

func (b *HzBand) merge(b2 HzBand) {
	begin, end := min(b.Begin(), b2.Begin()), max(b.End(), b2.End())
	*b = NewHzRange(begin, end)
}

type Bands []HzBand

func (a Bands) Len() int           { return len(a) }
func (a Bands) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a Bands) Less(i, j int) bool { return a[i].Begin() < a[j].Begin() }

// BandMerge coalesces overlapping or touching bands, sorted by start.
func BandMerge(bs []HzBand) (ret []HzBand) {
	if len(bs) == 0 {
		return nil
	}
	sorted := append([]HzBand(nil), bs...)
	sort.Sort(Bands(sorted))
	ret = append(ret, sorted[0])
	for _, b := range sorted[1:] {
		if b.Begin() > ret[len(ret)-1].End() {
			ret = append(ret, b)
		} else {
			ret[len(ret)-1].merge(b)
		}
	}
	return ret
}
