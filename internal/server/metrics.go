package server

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	modelsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "flashrbf",
		Name:      "models_active",
		Help:      "Number of models currently registered.",
	})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flashrbf",
		Name:      "operations_total",
		Help:      "Model operations by outcome.",
	}, []string{"operation", "outcome"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flashrbf",
		Name:      "operation_duration_seconds",
		Help:      "Latency of model operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"operation"})

	trainingPoints = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flashrbf",
		Name:      "training_points",
		Help:      "Training set size after create and update.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"operation"})
)

// observe records the outcome and latency of one operation. It is deferred
// with a pointer to the named error result.
func observe(operation string, start time.Time, err *error) {
	outcome := "success"
	if *err != nil {
		outcome = "error"
	}
	operationsTotal.WithLabelValues(operation, outcome).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
