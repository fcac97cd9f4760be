package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("Prices_Predict").End(nil))
	err := errors.New("boom")
	assert.ErrorIs(t, m.Track("Prices_Predict").End(err), err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("Prices_Predict", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("Prices_Predict", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("Prices_Predict")))
}

func TestNilMetricsTrackerIsNoop(t *testing.T) {
	var m *Metrics
	err := errors.New("boom")
	assert.ErrorIs(t, m.Track("Model_Train").End(err), err)
}
