package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful analyses.
	OutcomeSuccess = "success"
	// OutcomeError labels failed analyses.
	OutcomeError = "error"

	// FallbackSchemaMismatch labels predictions the trained model could not accept.
	FallbackSchemaMismatch = "schema_mismatch"
)

var (
	classificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "classifications_total",
			Help:      "Classifications served, partitioned by the path that produced them.",
		},
		[]string{"method"},
	)

	fallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "classifier_fallbacks_total",
			Help:      "Times a trained model was bypassed in favour of the rule fallback.",
		},
		[]string{"reason"},
	)

	trainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "trainings_total",
			Help:      "Classifier training runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	modelTestAccuracy = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "risk_engine",
			Name:      "model_test_accuracy",
			Help:      "Hold-out accuracy of the most recently trained model.",
		},
	)

	analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risk_engine",
			Name:      "analyses_total",
			Help:      "Dataset analyses handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	analysisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risk_engine",
			Name:      "analysis_seconds",
			Help:      "Dataset analysis latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)
)

// Register attaches risk-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		classificationsTotal,
		fallbacksTotal,
		trainingsTotal,
		modelTestAccuracy,
		analysesTotal,
		analysisDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveClassification counts one served classification.
func ObserveClassification(method string) {
	classificationsTotal.WithLabelValues(method).Inc()
}

// ObserveFallback counts a bypass of the trained model.
func ObserveFallback(reason string) {
	fallbacksTotal.WithLabelValues(reason).Inc()
}

// ObserveTraining records a training outcome; accuracy is only kept for trained models.
func ObserveTraining(outcome string, testAccuracy float64) {
	trainingsTotal.WithLabelValues(outcome).Inc()
	if outcome == "trained" {
		modelTestAccuracy.Set(testAccuracy)
	}
}

// ObserveAnalysis records an analysis duration and outcome label.
func ObserveAnalysis(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	analysesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	analysisDurationSeconds.Observe(duration.Seconds())
}
