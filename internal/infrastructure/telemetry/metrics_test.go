package telemetry

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coopelec/backend/internal/domain/balance"
	"github.com/coopelec/backend/internal/domain/shared"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func findByLabels(family *dto.MetricFamily, labels map[string]string) *dto.Metric {
	if family == nil {
		return nil
	}
	for _, metric := range family.GetMetric() {
		matched := 0
		for _, lp := range metric.GetLabel() {
			if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return metric
		}
	}
	return nil
}

func TestMetrics_ObserveHTTPRequest(t *testing.T) {
	m := NewMetrics()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/balance", http.StatusOK, 20*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/balance", http.StatusOK, 40*time.Millisecond)
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/analytics/balance", http.StatusBadRequest, time.Millisecond)

	ok := findByLabels(gather(t, m, MetricHTTPRequestsTotal), map[string]string{"status": "200"})
	require.NotNil(t, ok)
	assert.Equal(t, 2.0, ok.GetCounter().GetValue())

	hist := findByLabels(gather(t, m, MetricHTTPRequestDuration), map[string]string{"route": "/api/v1/analytics/balance"})
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.GetHistogram().GetSampleCount())
}

func TestMetrics_RecordOperation(t *testing.T) {
	m := NewMetrics()
	m.RecordOperation("balance", time.Millisecond, nil)
	m.RecordOperation("balance", time.Millisecond, shared.ErrInvalidPeriodFormat)
	m.RecordOperation("hierarchy", time.Millisecond, shared.ErrNotFound)
	m.RecordOperation("hierarchy", time.Millisecond, errors.New("db down"))

	family := gather(t, m, MetricAnalyticsOperationsTotal)
	for _, tc := range []struct{ op, outcome string }{
		{"balance", OutcomeSuccess},
		{"balance", OutcomeInvalidInput},
		{"hierarchy", OutcomeNotFound},
		{"hierarchy", OutcomeError},
	} {
		metric := findByLabels(family, map[string]string{"operation": tc.op, "outcome": tc.outcome})
		require.NotNil(t, metric, "%s/%s", tc.op, tc.outcome)
		assert.Equal(t, 1.0, metric.GetCounter().GetValue())
	}
}

func TestMetrics_RecordAlerts(t *testing.T) {
	m := NewMetrics()
	m.RecordAlerts(balance.AlertStats{
		Total: 3,
		ByType: map[balance.AlertType]int{
			balance.AlertHighLoss:     2,
			balance.AlertCriticalLoss: 1,
		},
	})

	high := findByLabels(gather(t, m, MetricAlertsGeneratedTotal), map[string]string{"type": string(balance.AlertHighLoss)})
	require.NotNil(t, high)
	assert.Equal(t, 2.0, high.GetCounter().GetValue())
}

func TestMetrics_RecordBalanceEntries(t *testing.T) {
	m := NewMetrics()
	m.RecordBalanceEntries("balance", 12)

	metric := findByLabels(gather(t, m, MetricBalanceEntries), map[string]string{"operation": "balance"})
	require.NotNil(t, metric)
	assert.Equal(t, 12.0, metric.GetHistogram().GetSampleSum())
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordOperation("summary", time.Millisecond, nil)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf(`%s{operation="summary",outcome="success"} 1`, MetricAnalyticsOperationsTotal))
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestOutcome_WrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", shared.ErrNotFound.WithMessage("purchase point 9 not found"))
	assert.Equal(t, OutcomeNotFound, Outcome(wrapped))
}
