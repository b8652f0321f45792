package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "whosent"

var (
	messagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_total",
		Help:      "Anonymous messages stored",
	})

	visitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "visits_total",
		Help:      "Personal link openings",
	})

	reportsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reports_total",
		Help:      "Reports filed against messages",
	})

	escalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "escalations_total",
		Help:      "Aggregate report notices sent to the admin",
	})

	moderationActionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "moderation_actions_total",
			Help:      "Admin moderation actions by kind",
		},
		[]string{"action"},
	)

	failedDeliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "failed_deliveries_total",
		Help:      "Outbound notifications that could not be delivered",
	})

	updateProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_processing_duration_seconds",
			Help:      "Time spent processing telegram updates",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func registerMetrics(registerer prometheus.Registerer) {
	registerer.MustRegister(
		messagesTotal,
		visitsTotal,
		reportsTotal,
		escalationsTotal,
		moderationActionsTotal,
		failedDeliveriesTotal,
		updateProcessingDuration,
	)
}

func RecordMessage() {
	messagesTotal.Inc()
}

func RecordVisit() {
	visitsTotal.Inc()
}

func RecordReport() {
	reportsTotal.Inc()
}

func RecordEscalation() {
	escalationsTotal.Inc()
}

// RecordModerationAction counts block, unblock, ban and appeal decisions.
func RecordModerationAction(action string) {
	moderationActionsTotal.WithLabelValues(action).Inc()
}

func RecordFailedDelivery() {
	failedDeliveriesTotal.Inc()
}

// StartUpdateProcessing returns a function recording the elapsed time under the given status.
func StartUpdateProcessing() func(status string) {
	start := time.Now()
	return func(status string) {
		updateProcessingDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	}
}
