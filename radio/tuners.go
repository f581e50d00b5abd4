package radio

// Tuner chip identifiers as reported in the rtl_tcp dongle header.
const (
	TunerUnknown = iota
	TunerE4000
	TunerFC0012
	TunerFC0013
	TunerFC2580
	TunerR820T
	TunerR828D
)

const (
	minRate = uint32(225001)
	maxRate = uint32(3200000)
)

type tunerRange struct {
	name  string
	minHz uint64
	maxHz uint64
}

var tunerRanges = map[uint32]tunerRange{
	TunerUnknown: {"unknown", 25000000, 1750000000},
	TunerE4000:   {"E4000", 52000000, 2200000000},
	TunerFC0012:  {"FC0012", 22000000, 948600000},
	TunerFC0013:  {"FC0013", 22000000, 1100000000},
	TunerFC2580:  {"FC2580", 146000000, 924000000},
	TunerR820T:   {"R820T", 24000000, 1766000000},
	TunerR828D:   {"R828D", 24000000, 1766000000},
}

// infoFromDongle derives device limits from the tuner chip the server reported.
func infoFromDongle(id string, d DongleInfo) HWInfo {
	tr, ok := tunerRanges[d.Tuner]
	if !ok {
		tr = tunerRanges[TunerUnknown]
	}
	return HWInfo{
		Id:            id,
		Tuner:         tr.name,
		MinHz:         tr.minHz,
		MaxHz:         tr.maxHz,
		MinSampleRate: minRate,
		MaxSampleRate: maxRate,
		SDRFormat:     SDRFormat{BitDepth: 8},
	}
}

// isValidRate reports whether the RTL2832 can produce rate without
// falling into its unsupported 300k-900k gap.
func isValidRate(rate uint32) bool {
	return !((rate < minRate) || (rate > maxRate) ||
		((rate > 300000) && (rate <= 900000)))
}
