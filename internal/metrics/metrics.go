package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "clinic_agenda"

var (
	once sync.Once

	appointmentWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointment_writes_total",
			Help:      "Count of appointment create/status/reschedule calls by outcome.",
		},
		[]string{"op", "result"},
	)

	agendaBuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agenda_builds_total",
			Help:      "Count of agenda requests by source (cache, build) and result.",
		},
		[]string{"source", "result"},
	)

	agendaBuildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "agenda_build_duration_seconds",
			Help:      "Time to fetch and build one agenda.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2},
		},
	)

	openAlerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_alerts",
			Help:      "Unresolved alerts on today's agenda by type and severity.",
		},
		[]string{"type", "severity"},
	)

	roomStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms on today's agenda by computed status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(appointmentWrites, agendaBuilds, agendaBuildDuration, openAlerts, roomStatus, httpRequests)
	})
}

func IncAppointmentWrite(op, result string) {
	appointmentWrites.WithLabelValues(op, result).Inc()
}

func IncAgendaBuild(source, result string) {
	agendaBuilds.WithLabelValues(source, result).Inc()
}

func ObserveAgendaBuild(seconds float64) {
	agendaBuildDuration.Observe(seconds)
}

// SetOpenAlerts replaces the open-alert gauge with counts keyed by
// [type, severity].
func SetOpenAlerts(counts map[[2]string]int) {
	openAlerts.Reset()
	for k, n := range counts {
		openAlerts.WithLabelValues(k[0], k[1]).Set(float64(n))
	}
}

// SetRooms replaces the room gauge with counts keyed by status.
func SetRooms(counts map[string]int) {
	roomStatus.Reset()
	for status, n := range counts {
		roomStatus.WithLabelValues(status).Set(float64(n))
	}
}

func IncHTTPRequest(route, code string) {
	httpRequests.WithLabelValues(route, code).Inc()
}
