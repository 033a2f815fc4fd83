package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronJobMetricsRecordOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("auto-release", 250*time.Millisecond, nil)
	m.ObserveRun("auto-release", time.Second, errors.New("db down"))
	m.ObserveRun("", time.Millisecond, errors.New("boom"))
	m.CycleSkipped()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auto-release", outcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("auto-release", outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("unknown", outcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.skipped))
	assert.Greater(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("auto-release")), 0.0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	hist := findMetricFamily(mfs, "packdrop_cron_job_duration_seconds")
	require.NotNil(t, hist)
	assert.InDelta(t, 1.25, hist.GetMetric()[0].GetHistogram().GetSampleSum(), 0.001)
}

func TestOrderMetricsCountsTransitions(t *testing.T) {
	m := NewOrderMetrics(prometheus.NewRegistry())
	m.ObserveTransition("PLACED", "VENDOR_ACCEPTED")
	m.ObserveTransition("PLACED", "VENDOR_ACCEPTED")
	m.ObserveFailure("assign_driver", "RESOURCE_CONFLICT")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("PLACED", "VENDOR_ACCEPTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("assign_driver", "RESOURCE_CONFLICT")))

	m.ObserveFailure("", "")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("unknown", "unknown")))
}

func TestNilRegistererIsNoop(t *testing.T) {
	var cron *CronJobMetrics
	cron.ObserveRun("x", time.Second, nil)
	NewCronJobMetrics(nil).CycleSkipped()

	var orders *OrderMetrics
	orders.ObserveTransition("a", "b")
	NewOrderMetrics(nil).ObserveFailure("op", "code")
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
