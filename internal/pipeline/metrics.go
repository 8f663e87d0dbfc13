package pipeline

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stage names used in metric labels and span names.
const (
	StageEnvelope  = "envelope"
	StageNormalize = "normalize"
	StageDecode    = "decode"
)

// Metrics contains Prometheus metrics for pipeline stages.
type Metrics struct {
	stagesTotal   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// GetMetrics returns the singleton pipeline metrics instance.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			stagesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "envelope",
					Subsystem: "pipeline",
					Name:      "stage_operations_total",
					Help:      "Total number of pipeline stage runs by result kind",
				},
				[]string{"stage", "result"},
			),
			stageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "envelope",
					Subsystem: "pipeline",
					Name:      "stage_duration_seconds",
					Help:      "Duration of pipeline stages in seconds",
					Buckets: []float64{
						.00001, .00005, .0001, .0005,
						.001, .005, .01, .05,
					},
				},
				[]string{"stage"},
			),
			errorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "envelope",
					Subsystem: "pipeline",
					Name:      "errors_total",
					Help:      "Total number of pipeline errors",
				},
				[]string{"stage", "error_type"},
			),
		}
	})
	return metricsInstance
}

// MustRegister registers the pipeline collectors with a custom registry.
// promauto registers them with the default registry, while the server
// serves /metrics from its own registry.
func (m *Metrics) MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(
		m.stagesTotal,
		m.stageDuration,
		m.errorsTotal,
	)
}

// Init pre-initializes common label combinations so that the series show
// up in /metrics before the first request.
func (m *Metrics) Init() {
	for _, result := range []string{"undefined", "null", "scalar", "flat", "wrapped", "page", "error"} {
		m.stagesTotal.WithLabelValues(StageEnvelope, result)
	}
	for _, result := range []string{"success", "error"} {
		m.stagesTotal.WithLabelValues(StageNormalize, result)
		m.stagesTotal.WithLabelValues(StageDecode, result)
	}
	for _, stage := range []string{StageEnvelope, StageNormalize, StageDecode} {
		m.stageDuration.WithLabelValues(stage)
	}
	for _, errType := range []string{"missing_payload", "contract_violation", "depth_exceeded", "general"} {
		m.errorsTotal.WithLabelValues(StageEnvelope, errType)
		m.errorsTotal.WithLabelValues(StageNormalize, errType)
	}
}

// RecordStage records one stage run.
func (m *Metrics) RecordStage(stage, result string, duration time.Duration) {
	m.stagesTotal.WithLabelValues(stage, result).Inc()
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordError records a stage failure.
func (m *Metrics) RecordError(stage, errorType string) {
	m.errorsTotal.WithLabelValues(stage, errorType).Inc()
}
