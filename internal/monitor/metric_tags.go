package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Verification:
	PaymentsConfirmedCounterTag   MetricTag = "payments_confirmed_counter"
	TransactionsExpiredCounterTag MetricTag = "transactions_expired_counter"
	SweepBatchSizeTag             MetricTag = "sweep_batch_size"
	// Provider API requests:
	ProviderQueryDurationTag MetricTag = "provider_query_duration_seconds"
	ProviderQueriesTotalTag  MetricTag = "provider_queries_total"
	// Notification fan-out:
	NotificationsTotalTag MetricTag = "notifications_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		PaymentsConfirmedCounterTag,
		TransactionsExpiredCounterTag,
		SweepBatchSizeTag,
		ProviderQueryDurationTag,
		ProviderQueriesTotalTag,
		NotificationsTotalTag,
	}
}
