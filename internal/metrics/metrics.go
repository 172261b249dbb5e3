package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "barberbot"

var (
	once sync.Once

	messagesHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_handled_total",
			Help:      "Count of inbound messages by route.",
		},
		[]string{"route"},
	)

	appointmentsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_created_total",
			Help:      "Count of appointments created by status.",
		},
		[]string{"status"},
	)

	managerDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "manager_decision_total",
			Help:      "Count of manager decisions over appointments.",
		},
		[]string{"decision"},
	)

	financialRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "financial_records_total",
			Help:      "Count of financial records by type.",
		},
		[]string{"type"},
	)

	sessionsExpired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_expired_total",
			Help:      "Count of sessions dropped on expiry by flow.",
		},
		[]string{"flow"},
	)

	outboundMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbound_messages_total",
			Help:      "Count of outbound messages by result.",
		},
		[]string{"result"},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Count of appointment reminders delivered.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			messagesHandled,
			appointmentsCreated,
			managerDecision,
			financialRecords,
			sessionsExpired,
			outboundMessages,
			remindersSent,
		)
	})
}

func IncMessage(route string) {
	messagesHandled.WithLabelValues(route).Inc()
}

func IncAppointmentCreated(status string) {
	appointmentsCreated.WithLabelValues(status).Inc()
}

func IncManagerDecision(decision string) {
	managerDecision.WithLabelValues(decision).Inc()
}

func IncFinancialRecord(typ string) {
	financialRecords.WithLabelValues(typ).Inc()
}

func AddSessionsExpired(flow string, n int) {
	sessionsExpired.WithLabelValues(flow).Add(float64(n))
}

func IncOutbound(result string) {
	outboundMessages.WithLabelValues(result).Inc()
}

func IncReminderSent() {
	remindersSent.Inc()
}
