package jobmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	require.NoError(t, metrics.Track("invoice_export").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("invoice_export").End(boom), boom)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("invoice_export", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.runs.WithLabelValues("invoice_export", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("invoice_export")))
}

func TestWrapPassesErrorsThrough(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := NewMetrics(registry)

	handler := metrics.Wrap("export_sweep", func(context.Context, *asynq.Task) error {
		return asynq.SkipRetry
	})
	err := handler(context.Background(), asynq.NewTask("invoice:export-sweep", nil))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.failures.WithLabelValues("export_sweep")))
}

func TestNilMetricsTrackIsNoop(t *testing.T) {
	var metrics *Metrics
	boom := errors.New("boom")
	assert.ErrorIs(t, metrics.Track("noop").End(boom), boom)
}
