// Package metrics holds the prometheus collectors exported in `run` mode.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tradehelper"

var (
	Ticks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ticks_total",
		Help:      "Completed ticks by outcome.",
	}, []string{"result"})

	Orders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_total",
		Help:      "Market orders by side and result (filled, soft_failure, error).",
	}, []string{"side", "result"})

	Anomalies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "price_anomalies_total",
		Help:      "Detected price anomalies by type.",
	}, []string{"type"})

	ExchangeResponses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_responses_total",
		Help:      "Exchange HTTP responses by status code.",
	}, []string{"status"})

	HostRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exchange_host_rotations_total",
		Help:      "Number of times the exchange host was rotated after a failure.",
	})

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_duration_seconds",
		Help:      "Wall-clock duration of a whole tick.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "tick_stage_duration_seconds",
		Help:      "Wall-clock duration of each tick stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})
)

func init() {
	prometheus.MustRegister(
		Ticks,
		Orders,
		Anomalies,
		ExchangeResponses,
		HostRotations,
		TickDuration,
		StageDuration,
	)
}

// ObserveResponse counts one exchange response. A transport failure is
// recorded with status 0.
func ObserveResponse(status int) {
	ExchangeResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

// Stopwatch times one stage into StageDuration.
type Stopwatch struct {
	stage string
	start time.Time
}

func StartStage(stage string) Stopwatch {
	return Stopwatch{stage: stage, start: time.Now()}
}

// Stop records the elapsed time and returns it for logging.
func (s Stopwatch) Stop() time.Duration {
	d := time.Since(s.start)
	StageDuration.WithLabelValues(s.stage).Observe(d.Seconds())
	return d
}
