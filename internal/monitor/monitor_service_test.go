package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MonitorService_Start(t *testing.T) {
	t.Run("🎉 starts with a prometheus client", func(t *testing.T) {
		service := &MonitorService{}
		require.NoError(t, service.Start(MetricOptions{MetricType: MetricTypePrometheus}))

		metricType, err := service.GetMetricType()
		require.NoError(t, err)
		assert.Equal(t, MetricTypePrometheus, metricType)

		handler, err := service.GetMetricHttpHandler()
		require.NoError(t, err)
		assert.NotNil(t, handler)
	})

	t.Run("a second start fails", func(t *testing.T) {
		service := &MonitorService{}
		require.NoError(t, service.Start(MetricOptions{MetricType: MetricTypePrometheus}))
		assert.EqualError(t, service.Start(MetricOptions{MetricType: MetricTypePrometheus}), "service already initialized")
	})

	t.Run("unknown metric types are rejected", func(t *testing.T) {
		service := &MonitorService{}
		assert.ErrorContains(t, service.Start(MetricOptions{MetricType: "STATSD"}), `unknown metric type: "STATSD"`)
	})
}

func Test_MonitorService_requiresInitialization(t *testing.T) {
	service := &MonitorService{}

	_, err := service.GetMetricType()
	assert.EqualError(t, err, "client was not initialized")

	_, err = service.GetMetricHttpHandler()
	assert.EqualError(t, err, "client was not initialized")

	err = service.MonitorHttpRequestDuration(time.Second, HttpRequestLabels{})
	assert.EqualError(t, err, "client was not initialized")

	err = service.MonitorDBQueryDuration(time.Second, SuccessfulQueryDurationTag, DBQueryLabels{})
	assert.EqualError(t, err, "client was not initialized")

	err = service.MonitorCounters(PaymentsConfirmedCounterTag, nil)
	assert.EqualError(t, err, "client was not initialized")

	err = service.MonitorDuration(time.Second, ProviderQueryDurationTag, nil)
	assert.EqualError(t, err, "client was not initialized")

	err = service.MonitorHistogram(1, SweepBatchSizeTag, nil)
	assert.EqualError(t, err, "client was not initialized")
}

func Test_ParseMetricType(t *testing.T) {
	metricType, err := ParseMetricType("prometheus")
	require.NoError(t, err)
	assert.Equal(t, MetricTypePrometheus, metricType)

	_, err = ParseMetricType("statsd")
	assert.EqualError(t, err, `invalid metric type "STATSD"`)
}

func Test_labels_ToMap(t *testing.T) {
	assert.Equal(t, map[string]string{
		"status":      "confirmed",
		"status_code": "200",
		"phase":       "query",
	}, ProviderQueryLabels{Status: "confirmed", StatusCode: "200", Phase: "query"}.ToMap())

	assert.Equal(t, map[string]string{
		"channel": "WEBHOOK",
		"kind":    "confirmation",
		"outcome": "sent",
	}, NotificationLabels{Channel: "WEBHOOK", Kind: "confirmation", Outcome: "sent"}.ToMap())
}
