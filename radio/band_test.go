package radio

import (
	"testing"
)

func TestBandMerge(t *testing.T) {
	tests := []struct {
		in   []HzBand
		want []HzBand
	}{
		{nil, nil},
		{
			[]HzBand{NewHzRange(300, 400), NewHzRange(100, 200)},
			[]HzBand{NewHzRange(100, 200), NewHzRange(300, 400)},
		},
		{
			[]HzBand{NewHzRange(150, 250), NewHzRange(100, 200), NewHzRange(250, 260)},
			[]HzBand{NewHzRange(100, 260)},
		},
	}
	for i, tt := range tests {
		got := BandMerge(tt.in)
		if len(got) != len(tt.want) {
			t.Fatalf("%d: expected %v, got %v", i, tt.want, got)
		}
		for j := range got {
			if got[j] != tt.want[j] {
				t.Errorf("%d: expected %v, got %v", i, tt.want, got)
			}
		}
	}
}

func TestHzRange(t *testing.T) {
	b := NewHzRange(1000, 3000)
	if b.Begin() != 1000 || b.End() != 3000 || b.Center != 2000 {
		t.Fatalf("bad band %+v", b)
	}
	if !b.Overlaps(NewHzRange(2900, 4000)) || b.Overlaps(NewHzRange(3001, 4000)) {
		t.Fatal("bad overlap")
	}
}
