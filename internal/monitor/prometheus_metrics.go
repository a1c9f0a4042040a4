package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counter := range CounterMetrics {
		metrics[tag] = counter
	}

	for tag, histogramVec := range HistogramVecMetrics {
		metrics[tag] = histogramVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HttpRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "hatchpay", Subsystem: "http", Name: string(HttpRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "hatchpay", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "hatchpay", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterMetrics = map[MetricTag]prometheus.Counter{
	PaymentsConfirmedCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hatchpay", Subsystem: "verification", Name: string(PaymentsConfirmedCounterTag),
		Help: "A counter of payments confirmed by the verification engine",
	}),
	TransactionsExpiredCounterTag: prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hatchpay", Subsystem: "verification", Name: string(TransactionsExpiredCounterTag),
		Help: "A counter of transactions expired unconfirmed",
	}),
}

var HistogramVecMetrics = map[MetricTag]*prometheus.HistogramVec{
	ProviderQueryDurationTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hatchpay", Subsystem: "provider", Name: string(ProviderQueryDurationTag),
		Help: "A histogram of the payment provider clearance query durations",
	},
		ProviderQueryLabelNames,
	),
	SweepBatchSizeTag: prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "hatchpay", Subsystem: "verification", Name: string(SweepBatchSizeTag),
		Help:    "A histogram of slow sweep batch sizes",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
	},
		[]string{"phase"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	ProviderQueriesTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hatchpay", Subsystem: "provider", Name: string(ProviderQueriesTotalTag),
		Help: "A counter of the payment provider clearance queries",
	},
		ProviderQueryLabelNames,
	),
	NotificationsTotalTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hatchpay", Subsystem: "notifier", Name: string(NotificationsTotalTag),
		Help: "A counter of confirmation and expiration notifications sent",
	},
		NotificationLabelNames,
	),
}
