package store

import (
	"context"
	"encoding/csv"
	"encoding/gob"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzchzchz/sweeprx/radio"
	"github.com/chzchzchz/sweeprx/sweep"
)

// PeakTable remembers the signals seen over many sweeps. Peaks closer
// than the tolerance to a known signal are folded into it.
type PeakTable struct {
	peaks     map[uint64]PeakRecord
	tolerance uint64
	rwmu      sync.RWMutex
}

type PeakRecord struct {
	radio.HzBand
	Power      float64
	Seen       int
	First      time.Time
	Last       time.Time
	Name       string
	Modulation string
}

func NewPeakTable(toleranceHz uint64) *PeakTable {
	return &PeakTable{peaks: make(map[uint64]PeakRecord), tolerance: toleranceHz}
}

// ImportCSV loads named signals from "center_hz;name;modulation;bandwidth_hz;notes" lines.
func (t *PeakTable) ImportCSV(r io.Reader) error {
	csvr := csv.NewReader(r)
	csvr.Comma, csvr.Comment, csvr.FieldsPerRecord = ';', '#', -1
	records, err := csvr.ReadAll()
	if err != nil {
		return err
	}
	t.rwmu.Lock()
	defer t.rwmu.Unlock()
	for _, v := range records {
		if len(v) != 5 {
			continue
		}
		for i := range v {
			v[i] = strings.TrimSpace(v[i])
		}
		centerhz, err := strconv.ParseUint(v[0], 10, 64)
		if err != nil {
			continue
		}
		bwhz, _ := strconv.ParseUint(v[3], 10, 64)
		if _, ok := t.peaks[centerhz]; !ok {
			t.peaks[centerhz] = PeakRecord{
				HzBand:     radio.HzBand{Center: centerhz, Width: bwhz},
				Power:      -999,
				Name:       v[1],
				Modulation: v[2],
			}
		}
	}
	return nil
}

func (t *PeakTable) Load(fpath string) error {
	f, err := os.Open(fpath)
	if err != nil {
		return err
	}
	defer f.Close()
	t.rwmu.Lock()
	defer t.rwmu.Unlock()
	return gob.NewDecoder(f).Decode(&t.peaks)
}

func (t *PeakTable) Save(fpath string) error {
	f, err := os.Create(fpath)
	if err != nil {
		return err
	}
	t.rwmu.RLock()
	err = gob.NewEncoder(f).Encode(&t.peaks)
	t.rwmu.RUnlock()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// Records returns every known signal by ascending frequency.
func (t *PeakTable) Records() []PeakRecord {
	t.rwmu.RLock()
	ret := make([]PeakRecord, 0, len(t.peaks))
	for _, v := range t.peaks {
		ret = append(ret, v)
	}
	t.rwmu.RUnlock()
	slices.SortFunc(ret, func(a, b PeakRecord) int {
		if a.Center < b.Center {
			return -1
		} else if a.Center > b.Center {
			return 1
		}
		return 0
	})
	return ret
}

func (t *PeakTable) Range(b radio.HzBand) (ret []PeakRecord) {
	for _, v := range t.Records() {
		if b.Overlaps(v.HzBand) {
			ret = append(ret, v)
		}
	}
	return ret
}

// Occupied returns the spans covered by known signals within b, with
// overlapping signals merged into one band.
func (t *PeakTable) Occupied(b radio.HzBand) []radio.HzBand {
	var bands []radio.HzBand
	for _, r := range t.Range(b) {
		bands = append(bands, r.HzBand)
	}
	return radio.BandMerge(bands)
}

// Add folds the peaks of one window into the table.
func (t *PeakTable) Add(now time.Time, res sweep.WindowResult) {
	t.rwmu.Lock()
	defer t.rwmu.Unlock()
	for _, p := range res.Peaks {
		width := max(uint64(p.Width*float64(res.Window.BinSize)), res.Window.BinSize)
		key, ok := t.nearest(p.Frequency)
		if !ok {
			t.peaks[p.Frequency] = PeakRecord{
				HzBand: radio.HzBand{Center: p.Frequency, Width: width},
				Power:  p.Power,
				Seen:   1,
				First:  now,
				Last:   now,
			}
			continue
		}
		rec := t.peaks[key]
		rec.Seen++
		rec.Last = now
		if rec.First.IsZero() {
			rec.First = now
		}
		if p.Power > rec.Power {
			rec.Power = p.Power
			if rec.Name == "" {
				// follow the strongest sighting of unnamed signals
				delete(t.peaks, key)
				key, rec.HzBand = p.Frequency, radio.HzBand{Center: p.Frequency, Width: width}
			}
		}
		t.peaks[key] = rec
	}
}

func (t *PeakTable) nearest(hz uint64) (key uint64, ok bool) {
	best := t.tolerance + 1
	for k := range t.peaks {
		d := max(k, hz) - min(k, hz)
		if d < best || (d == best && k < key) {
			key, best, ok = k, d, true
		}
	}
	return key, ok
}

// Write adds every window it receives.
func (t *PeakTable) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	for res := range results {
		t.Add(time.Now(), res)
	}
	return nil
}
