package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Eviction reasons.
const (
	EvictEmpty = "empty"
	EvictIdle  = "idle"
)

// Metrics holds the coordinator's Prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry     *prometheus.Registry
	rooms        prometheus.Gauge
	participants prometheus.Gauge
	events       *prometheus.CounterVec
	evictions    *prometheus.CounterVec
	dropped      prometheus.Counter
}

// New registers collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomsync",
			Name:      "rooms",
			Help:      "Rooms currently held in the registry.",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "roomsync",
			Name:      "participants",
			Help:      "Participants joined to any room.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "commands_total",
			Help:      "Inbound commands handled by the hub.",
		}, []string{"kind"}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "room_evictions_total",
			Help:      "Rooms removed from the registry.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roomsync",
			Name:      "slow_clients_dropped_total",
			Help:      "Clients disconnected because their event buffer was full.",
		}),
	}
	m.registry.MustRegister(
		m.rooms, m.participants, m.events, m.evictions, m.dropped,
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SetRooms(n int) {
	if m != nil {
		m.rooms.Set(float64(n))
	}
}

func (m *Metrics) SetParticipants(n int) {
	if m != nil {
		m.participants.Set(float64(n))
	}
}

func (m *Metrics) Command(kind string) {
	if m != nil {
		m.events.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) Evicted(reason string) {
	if m != nil {
		m.evictions.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}
