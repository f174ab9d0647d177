// Package metrics exposes terminal counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"kiosk/internal/camera"
)

// Metrics groups the terminal's collectors. A nil *Metrics is a no-op.
type Metrics struct {
	scanResults         *prometheus.CounterVec
	scanRejected        prometheus.Counter
	recognitionDuration prometheus.Histogram
	cameraTransitions   *prometheus.CounterVec
	cameraFailures      *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		scanResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scan_results_total",
			Help: "Completed scans by result kind.",
		}, []string{"kind"}),
		scanRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scan_rejected_total",
			Help: "Scan requests rejected because another scan was in flight.",
		}),
		recognitionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recognition_duration_seconds",
			Help:    "Latency of recognition service calls.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}),
		cameraTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_transitions_total",
			Help: "Capture session state changes by resulting phase.",
		}, []string{"phase"}),
		cameraFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camera_failures_total",
			Help: "Capture session failures by error kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.scanResults, m.scanRejected, m.recognitionDuration, m.cameraTransitions, m.cameraFailures)
	return m
}

func (m *Metrics) ScanResult(kind string) {
	if m == nil {
		return
	}
	m.scanResults.WithLabelValues(kind).Inc()
}

func (m *Metrics) ScanRejected() {
	if m == nil {
		return
	}
	m.scanRejected.Inc()
}

func (m *Metrics) ObserveRecognition(d time.Duration) {
	if m == nil {
		return
	}
	m.recognitionDuration.Observe(d.Seconds())
}

// ObserveCamera is shaped to be passed to camera.WithObserver.
func (m *Metrics) ObserveCamera(st camera.Status) {
	if m == nil {
		return
	}
	m.cameraTransitions.WithLabelValues(string(st.Phase)).Inc()
	if st.Phase == camera.PhaseFailed && st.Err != nil {
		m.cameraFailures.WithLabelValues(string(st.Err.Kind)).Inc()
	}
}
