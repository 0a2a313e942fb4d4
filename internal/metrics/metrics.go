// Package metrics exposes repeater counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons used as the "reason" label.
const (
	ReasonSelf          = "self"
	ReasonFiltered      = "filtered"
	ReasonUnknownOrigin = "unknown_origin"
	ReasonMalformed     = "malformed"
)

// Metrics holds the repeater's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	Received           prometheus.Counter
	Dropped            *prometheus.CounterVec
	Relayed            *prometheus.CounterVec
	SendErrors         *prometheus.CounterVec
	RelayInterfaces    prometheus.Gauge
	ObservedInterfaces prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mdns_repeater_packets_received_total",
			Help: "Total number of datagrams read from the ingress socket",
		}),
		Dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_repeater_packets_dropped_total",
			Help: "Datagrams dropped before rule evaluation, by reason",
		}, []string{"reason"}),
		Relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_repeater_packets_relayed_total",
			Help: "Datagrams transmitted, by egress interface",
		}, []string{"interface"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mdns_repeater_send_errors_total",
			Help: "Failed transmissions, by egress interface",
		}, []string{"interface"}),
		RelayInterfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdns_repeater_relay_interfaces",
			Help: "Number of relay-eligible interfaces",
		}),
		ObservedInterfaces: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mdns_repeater_observed_interfaces",
			Help: "Number of observed-only interfaces",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Received,
			m.Dropped,
			m.Relayed,
			m.SendErrors,
			m.RelayInterfaces,
			m.ObservedInterfaces,
		)
	}
	return m
}

// PacketReceived counts a datagram read from the ingress socket.
func (m *Metrics) PacketReceived() {
	if m == nil {
		return
	}
	m.Received.Inc()
}

// PacketDropped counts a datagram dropped before rule evaluation.
func (m *Metrics) PacketDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()
}

// PacketRelayed counts a datagram sent on iface.
func (m *Metrics) PacketRelayed(iface string) {
	if m == nil {
		return
	}
	m.Relayed.WithLabelValues(iface).Inc()
}

// SendFailed counts a failed send on iface.
func (m *Metrics) SendFailed(iface string) {
	if m == nil {
		return
	}
	m.SendErrors.WithLabelValues(iface).Inc()
}

// SetInterfaces records the size of the interface table.
func (m *Metrics) SetInterfaces(relay, observed int) {
	if m == nil {
		return
	}
	m.RelayInterfaces.Set(float64(relay))
	m.ObservedInterfaces.Set(float64(observed))
}
