package chat

import "github.com/prometheus/client_golang/prometheus"

var (
	ConnectedSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connected_sessions",
		Help: "Number of currently running client sessions",
	})

	SessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_sessions_total",
		Help: "Sessions that completed login, by role",
	}, []string{"role"})

	RoomsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_rooms",
		Help: "Number of rooms in the registry",
	})

	MessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_messages_total",
		Help: "Total client messages processed by tag",
	}, []string{"tag"})

	DeliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_deliveries_total",
		Help: "Deliveries written to receivers",
	})

	DroppedDeliveriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_dropped_deliveries_total",
		Help: "Queued deliveries discarded when a receiver left",
	})

	CommandDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_command_processing_seconds",
		Help:    "Time to process each sender command",
		Buckets: prometheus.DefBuckets,
	}, []string{"tag"})
)

func init() {
	prometheus.MustRegister(ConnectedSessions)
	prometheus.MustRegister(SessionsTotal)
	prometheus.MustRegister(RoomsTotal)
	prometheus.MustRegister(MessagesTotal)
	prometheus.MustRegister(DeliveriesTotal)
	prometheus.MustRegister(DroppedDeliveriesTotal)
	prometheus.MustRegister(CommandDuration)
}
