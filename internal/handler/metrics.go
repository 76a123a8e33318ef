package handler

import (
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics receives named timing observations from the handler.
type Metrics interface {
	AddTime(name string, ms float64)
}

var handlerDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "inferd",
		Subsystem: "handler",
		Name:      "duration_milliseconds",
		Help:      "Wall-clock duration of handler invocations in milliseconds",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(handlerDuration)
}

// PromMetrics feeds handler timings into the process Prometheus registry.
type PromMetrics struct{}

func (PromMetrics) AddTime(name string, ms float64) {
	handlerDuration.WithLabelValues(name).Observe(ms)
}

// NopMetrics discards observations.
type NopMetrics struct{}

func (NopMetrics) AddTime(string, float64) {}

// roundMs converts a duration to milliseconds rounded to two decimal places.
func roundMs(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
