package sweep

import (
	"reflect"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/chzchzchz/sweeprx/peak"
)

func result(idx int, bins ...int) WindowResult {
	w := newWindow(idx, 100000000+uint64(idx)*100000, 100100000+uint64(idx)*100000, 1000)
	res := WindowResult{Window: w, Peaks: []PeakRecord{}}
	for _, b := range bins {
		res.Peaks = append(res.Peaks, PeakRecord{Peak: peak.Peak{Bin: b, Power: -20}, Frequency: w.Freq(b)})
	}
	return res
}

func TestFinalizeIdempotent(t *testing.T) {
	r := NewReporter(uuid.New(), Request{}, nil...)
	if a, b := r.Finalize(), r.Finalize(); !reflect.DeepEqual(a, b) {
		t.Fatalf("empty reports differ: %+v %+v", a, b)
	}
	r.Record(result(0, 10, 20))
	r.Record(result(1))
	a, b := r.Finalize(), r.Finalize()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("reports differ: %+v %+v", a, b)
	}
	if len(a.Results) != 2 || len(a.Results[0].Peaks) != 2 {
		t.Fatalf("unexpected report %+v", a)
	}
	// snapshots do not alias each other or the reporter
	a.Results[0].Peaks[0].Power = 99
	if c := r.Finalize(); c.Results[0].Peaks[0].Power != -20 {
		t.Fatal("snapshot aliases reporter state")
	}
}

func TestReporterOrder(t *testing.T) {
	r := NewReporter(uuid.New(), Request{})
	for i := 0; i < 5; i++ {
		r.Record(result(i, i))
	}
	for i, res := range r.Finalize().Results {
		if res.Window.Index != i {
			t.Fatalf("result %d out of order: %+v", i, res.Window)
		}
	}
}

func TestReporterConcurrent(t *testing.T) {
	ch := make(chan WindowResult)
	r := NewReporter(uuid.New(), Request{}, ch)
	var wg sync.WaitGroup
	wg.Add(1)
	got := 0
	go func() {
		defer wg.Done()
		for range ch {
			got++
		}
	}()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			r.Record(result(i, 1))
		}
	}()
	for i := 0; i < 100; i++ {
		rep := r.Finalize()
		for j, res := range rep.Results {
			if res.Window.Index != j {
				t.Fatalf("partial report out of order at %d", j)
			}
		}
	}
	<-done
	r.Close()
	wg.Wait()
	if got != 100 {
		t.Fatalf("listener got %d results", got)
	}
}
