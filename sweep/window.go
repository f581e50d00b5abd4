package sweep

// Window is one tuning of the receiver. Bin j covers the frequencies
// starting at Lower + j*BinSize.
type Window struct {
	Index     int    `json:"index"`
	Center    uint64 `json:"center_hz"`
	Lower     uint64 `json:"lower_hz"`
	Upper     uint64 `json:"upper_hz"`
	Bandwidth uint64 `json:"bandwidth_hz"`
	BinSize   uint64 `json:"bin_size_hz"`
}

func newWindow(idx int, lower, upper, binSize uint64) Window {
	w := Window{
		Index:     idx,
		Lower:     lower,
		Upper:     upper,
		Bandwidth: upper - lower,
		BinSize:   binSize,
	}
	// tune so DC lands on a bin edge
	w.Center = lower + uint64(w.Bins()/2)*binSize
	return w
}

// Bins is the bin count, rounded up for a clipped final window.
func (w Window) Bins() int {
	return int((w.Bandwidth + w.BinSize - 1) / w.BinSize)
}

// Freq maps a bin to the absolute frequency of its lower edge.
func (w Window) Freq(bin int) uint64 {
	return w.Lower + uint64(bin)*w.BinSize
}
