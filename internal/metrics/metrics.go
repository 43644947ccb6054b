package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	intakeLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "intake_logged_total",
			Help:      "Count of water intake events recorded.",
		},
	)

	intakeVolume = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "intake_volume_ml_total",
			Help:      "Total logged intake volume in millilitres.",
		},
	)

	remindersGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "reminders_generated_total",
			Help:      "Count of reminders produced by schedule generation.",
		},
	)

	triggersScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "triggers_scheduled_total",
			Help:      "Count of notification triggers armed.",
		},
	)

	triggerFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "trigger_schedule_failures_total",
			Help:      "Count of reminders that failed to arm.",
		},
	)

	reconcileRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "reconcile_runs_total",
			Help:      "Count of goal reconciliation passes by outcome.",
		},
		[]string{"outcome"},
	)

	notificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "notifications_sent_total",
			Help:      "Count of delivered notifications by status.",
		},
		[]string{"status"},
	)

	scheduledTriggers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hydromate",
			Name:      "scheduled_triggers",
			Help:      "Number of currently armed notification triggers.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hydromate",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			intakeLogged, intakeVolume, remindersGenerated,
			triggersScheduled, triggerFailures, reconcileRuns,
			notificationsSent, scheduledTriggers, httpRequests,
		)
	})
}

func IncIntakeLogged(amountML int) {
	intakeLogged.Inc()
	intakeVolume.Add(float64(amountML))
}

func AddRemindersGenerated(n int) {
	remindersGenerated.Add(float64(n))
}

func IncTriggerScheduled() {
	triggersScheduled.Inc()
}

func IncTriggerFailure() {
	triggerFailures.Inc()
}

func IncReconcile(outcome string) {
	reconcileRuns.WithLabelValues(outcome).Inc()
}

func IncNotificationSent(status string) {
	notificationsSent.WithLabelValues(status).Inc()
}

func SetScheduledTriggers(n int) {
	scheduledTriggers.Set(float64(n))
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
