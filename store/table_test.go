package store

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/radio"
	"github.com/chzchzchz/sweeprx/sweep"
)

func window(peaks ...sweep.PeakRecord) sweep.WindowResult {
	return sweep.WindowResult{
		Window: sweep.Window{Center: 100050000, Lower: 100000000, Upper: 100100000, Bandwidth: 100000, BinSize: 1000},
		Peaks:  peaks,
	}
}

func rec(hz uint64, db float64) sweep.PeakRecord {
	return sweep.PeakRecord{Peak: peak.Peak{Power: db, Width: 3}, Frequency: hz}
}

func TestPeakTableMerge(t *testing.T) {
	pt := NewPeakTable(2000)
	t0 := time.Unix(1000, 0)
	pt.Add(t0, window(rec(100010000, -30), rec(100060000, -20)))
	pt.Add(t0.Add(time.Minute), window(rec(100011000, -25)))
	pt.Add(t0.Add(2*time.Minute), window(rec(100009000, -40)))

	recs := pt.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 signals, got %+v", recs)
	}
	r := recs[0]
	// stronger sighting moves the unnamed signal
	if r.Center != 100011000 || r.Seen != 3 || r.Power != -25 || r.Width != 3000 {
		t.Fatalf("unexpected merge %+v", r)
	}
	if !r.First.Equal(t0) || !r.Last.Equal(t0.Add(2*time.Minute)) {
		t.Fatalf("unexpected sighting times %+v", r)
	}
}

func TestPeakTableNamed(t *testing.T) {
	pt := NewPeakTable(5000)
	csv := "# center;name;mod;bw;notes\n100010000;beacon;cw;500;x\nbad;line\n"
	if err := pt.ImportCSV(strings.NewReader(csv)); err != nil {
		t.Fatal(err)
	}
	pt.Add(time.Now(), window(rec(100012000, -10)))
	recs := pt.Range(radio.NewHzRange(100000000, 100020000))
	if len(recs) != 1 || recs[0].Name != "beacon" || recs[0].Center != 100010000 || recs[0].Seen != 1 {
		t.Fatalf("expected named signal to absorb peak, got %+v", recs)
	}
}

func TestPeakTableSaveLoad(t *testing.T) {
	pt := NewPeakTable(1000)
	pt.Add(time.Unix(5, 0), window(rec(100010000, -30), rec(100060000, -20)))
	fpath := filepath.Join(t.TempDir(), "peaks.gob")
	if err := pt.Save(fpath); err != nil {
		t.Fatal(err)
	}
	pt2 := NewPeakTable(1000)
	if err := pt2.Load(fpath); err != nil {
		t.Fatal(err)
	}
	a, b := pt.Records(), pt2.Records()
	if len(a) != len(b) {
		t.Fatalf("expected %d records, got %d", len(a), len(b))
	}
	for i := range a {
		if a[i].HzBand != b[i].HzBand || a[i].Power != b[i].Power || !a[i].Last.Equal(b[i].Last) {
			t.Fatalf("record %d: %+v != %+v", i, a[i], b[i])
		}
	}
}

func TestPeakTableOccupied(t *testing.T) {
	pt := NewPeakTable(500)
	pt.Add(time.Now(), window(rec(100010000, -30), rec(100012000, -20), rec(100060000, -25)))
	// widths are 3 bins of 1kHz: 100.0085-100.0115, 100.0105-100.0135, 100.0585-100.0615
	got := pt.Occupied(radio.NewHzRange(100000000, 100100000))
	want := []radio.HzBand{
		radio.NewHzRange(100008500, 100013500),
		radio.NewHzRange(100058500, 100061500),
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if got := pt.Occupied(radio.NewHzRange(100020000, 100050000)); len(got) != 0 {
		t.Fatalf("expected nothing between signals, got %v", got)
	}
}
