package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

// go test -v --run TestObserveResponse
func TestObserveResponse(t *testing.T) {
	before := testutil.ToFloat64(ExchangeResponses.WithLabelValues("451"))
	ObserveResponse(451)
	ObserveResponse(451)
	assert.Equal(t, before+2, testutil.ToFloat64(ExchangeResponses.WithLabelValues("451")))
}

// go test -v --run TestStopwatch
func TestStopwatch(t *testing.T) {
	sw := StartStage("test-stage")
	assert.GreaterOrEqual(t, sw.Stop().Nanoseconds(), int64(0))
	assert.Equal(t, 1, testutil.CollectAndCount(StageDuration, "tradehelper_tick_stage_duration_seconds"))
}
