package sweep

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chzchzchz/sweeprx/peak"
	"github.com/chzchzchz/sweeprx/spectrum"
)

// PeakRecord is a peak placed at its absolute frequency.
type PeakRecord struct {
	peak.Peak
	Frequency uint64 `json:"frequency_hz"`
}

type WindowResult struct {
	Window Window       `json:"window"`
	Peaks  []PeakRecord `json:"peaks"`
	// Spectrum is only kept for diagnostics.
	Spectrum spectrum.Vector `json:"spectrum,omitempty"`
}

func (wr WindowResult) clone() WindowResult {
	wr.Peaks = slices.Clone(wr.Peaks)
	wr.Spectrum = slices.Clone(wr.Spectrum)
	return wr
}

type Report struct {
	ID      uuid.UUID      `json:"id"`
	Request Request        `json:"request"`
	Started time.Time      `json:"started"`
	Results []WindowResult `json:"results"`
}

// Reporter accumulates window results in processing order and forwards
// each one to its listeners.
type Reporter struct {
	mu        sync.Mutex
	report    Report
	listeners []chan<- WindowResult
}

func NewReporter(id uuid.UUID, req Request, listeners ...chan<- WindowResult) *Reporter {
	return &Reporter{
		report:    Report{ID: id, Request: req, Started: time.Now()},
		listeners: listeners,
	}
}

// Record appends a result. It blocks until every listener took a copy.
func (r *Reporter) Record(res WindowResult) {
	r.mu.Lock()
	r.report.Results = append(r.report.Results, res.clone())
	r.mu.Unlock()
	for _, l := range r.listeners {
		l <- res.clone()
	}
}

// Finalize returns a snapshot of everything recorded so far. The
// snapshot shares nothing with the reporter.
func (r *Reporter) Finalize() Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep := r.report
	rep.Results = make([]WindowResult, len(r.report.Results))
	for i, res := range r.report.Results {
		rep.Results[i] = res.clone()
	}
	return rep
}

// Close closes the listener channels.
func (r *Reporter) Close() {
	for _, l := range r.listeners {
		close(l)
	}
	r.listeners = nil
}
