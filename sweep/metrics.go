package sweep

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sweep collectors. A nil *Metrics records nothing.
type Metrics struct {
	windows      *prometheus.CounterVec
	peaks        prometheus.Counter
	windowTime   prometheus.Histogram
	centerHz     prometheus.Gauge
	strongestDB  prometheus.Gauge
	sweepsActive prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		windows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sweeprx_windows_total",
			Help: "Sweep windows processed, by outcome",
		}, []string{"result"}),
		peaks: f.NewCounter(prometheus.CounterOpts{
			Name: "sweeprx_peaks_total",
			Help: "Peaks reported across all windows",
		}),
		windowTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sweeprx_window_seconds",
			Help:    "Time to tune, settle, capture and analyze one window",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		centerHz: f.NewGauge(prometheus.GaugeOpts{
			Name: "sweeprx_center_hz",
			Help: "Center frequency of the last window",
		}),
		strongestDB: f.NewGauge(prometheus.GaugeOpts{
			Name: "sweeprx_strongest_peak_db",
			Help: "Power of the strongest peak in the last window",
		}),
		sweepsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "sweeprx_sweeps_active",
			Help: "Sweeps in progress",
		}),
	}
}

func (m *Metrics) observe(res WindowResult, d time.Duration) {
	if m == nil {
		return
	}
	m.windows.WithLabelValues("ok").Inc()
	m.peaks.Add(float64(len(res.Peaks)))
	m.windowTime.Observe(d.Seconds())
	m.centerHz.Set(float64(res.Window.Center))
	if len(res.Peaks) > 0 {
		best := res.Peaks[0].Power
		for _, p := range res.Peaks[1:] {
			best = max(best, p.Power)
		}
		m.strongestDB.Set(best)
	}
}

func (m *Metrics) failed() {
	if m == nil {
		return
	}
	m.windows.WithLabelValues("error").Inc()
}

func (m *Metrics) running(delta float64) {
	if m == nil {
		return
	}
	m.sweepsActive.Add(delta)
}
