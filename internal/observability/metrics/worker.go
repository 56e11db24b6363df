package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/plant-id-assistant/internal/core/domain"
)

// History record outcomes.
const (
	RecordOutcomeStored   = "stored"
	RecordOutcomeRejected = "rejected"
	RecordOutcomeFailed   = "failed"
)

// WorkerMetrics tracks persistence of identification events consumed by the history worker.
type WorkerMetrics struct {
	registry *prometheus.Registry

	records         *prometheus.CounterVec
	recordLatency   *prometheus.HistogramVec
	pending         prometheus.Gauge
	storedTopScore  *prometheus.HistogramVec
	identifyToStore prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "plantid",
			Subsystem:   "history",
			Name:        "events_total",
			Help:        "Identification events handled by the history worker by result source and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"source", "outcome"},
	)
	recordLatency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "plantid",
			Subsystem:   "history",
			Name:        "store_duration_seconds",
			Help:        "Time spent persisting one history record.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"outcome"},
	)
	pending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "plantid",
			Subsystem:   "history",
			Name:        "events_in_progress",
			Help:        "Identification events currently being persisted.",
			ConstLabels: constLabels,
		},
	)
	storedTopScore := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   "plantid",
			Subsystem:   "history",
			Name:        "stored_top_probability",
			Help:        "Probability of the best suggestion of stored records.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
		},
		[]string{"source"},
	)
	identifyToStore := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "plantid",
			Subsystem:   "history",
			Name:        "event_lag_seconds",
			Help:        "Delay between identification and the start of persistence.",
			ConstLabels: constLabels,
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(records, recordLatency, pending, storedTopScore, identifyToStore)

	return &WorkerMetrics{
		registry:        registry,
		records:         records,
		recordLatency:   recordLatency,
		pending:         pending,
		storedTopScore:  storedTopScore,
		identifyToStore: identifyToStore,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartRecord marks an event as in progress and observes its lag. A zero OccurredAt
// or a timestamp from the future is not observed.
func (m *WorkerMetrics) StartRecord(event domain.IdentificationRecorded, now time.Time) {
	m.pending.Inc()
	if event.OccurredAt.IsZero() {
		return
	}
	if lag := now.Sub(event.OccurredAt); lag >= 0 {
		m.identifyToStore.Observe(lag.Seconds())
	}
}

// FinishRecord closes an event started with StartRecord.
func (m *WorkerMetrics) FinishRecord(event domain.IdentificationRecorded, duration time.Duration, err error) {
	m.pending.Dec()

	source := string(event.Result.Source)
	if source == "" {
		source = "unknown"
	}
	outcome := recordOutcome(err)

	m.records.WithLabelValues(source, outcome).Inc()
	m.recordLatency.WithLabelValues(outcome).Observe(duration.Seconds())
	if outcome != RecordOutcomeStored {
		return
	}
	if best, ok := event.Result.Best(); ok {
		m.storedTopScore.WithLabelValues(source).Observe(best.Probability)
	}
}

func recordOutcome(err error) string {
	switch {
	case err == nil:
		return RecordOutcomeStored
	case domain.IsKind(err, domain.ErrInvalidInput):
		return RecordOutcomeRejected
	default:
		return RecordOutcomeFailed
	}
}
