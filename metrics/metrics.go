package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BookingTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_transitions_total",
		Help: "Booking status transitions",
	}, []string{"from", "to"})

	NotificationsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_processed_total",
		Help: "Outbox notifications processed by resulting status",
	}, []string{"status"})

	PaymentsCaptured = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_captured_minor_total",
		Help: "Captured payment volume in minor units",
	}, []string{"provider"})

	WSConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Active websocket connections",
	})
)

var once sync.Once

func Init() {
	once.Do(func() {
		prometheus.MustRegister(BookingTransitions, NotificationsProcessed, PaymentsCaptured, WSConnections)
	})
}

func Handler() http.Handler {
	return promhttp.Handler()
}
