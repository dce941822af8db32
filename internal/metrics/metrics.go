// Package metrics exposes the Prometheus counters and gauges spec.md's
// ambient observability surface needs: packets processed per device type,
// the current size of the device pool, and reap events. Grounded on the
// teacher's cmd/snmpsim-api/metrics.go CounterVec/GaugeVec style, adapted
// from lab/agent-oriented label names to device-type/device-pool ones and
// moved into its own package so both internal/device and internal/pool can
// depend on it without importing a cmd/ package.
package metrics

import (
	"github.com/gosnmp/gosnmp"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every counter/gauge this process exposes. The zero value
// is not usable; construct with New.
type Metrics struct {
	packetsTotal *prometheus.CounterVec
	dropsTotal   *prometheus.CounterVec
	devicesOpen  *prometheus.GaugeVec
	reapsTotal   *prometheus.CounterVec
	reloadErrors *prometheus.CounterVec
}

// New builds and registers the metric families against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across parallel test binaries.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		packetsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snmpfleet_packets_total",
			Help: "Total SNMP request packets processed, by device type and PDU type.",
		}, []string{"device_type", "pdu_type"}),
		dropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snmpfleet_packet_drops_total",
			Help: "Total inbound packets dropped without a response, by device type and reason.",
		}, []string{"device_type", "reason"}),
		devicesOpen: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "snmpfleet_devices_open",
			Help: "Number of currently materialized (open-socket) devices, by device type.",
		}, []string{"device_type"}),
		reapsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snmpfleet_device_reaps_total",
			Help: "Total devices evicted by idle-TTL or LRU capacity reaping, by device type and cause.",
		}, []string{"device_type", "cause"}),
		reloadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snmpfleet_profile_reload_errors_total",
			Help: "Total failed scheduled profile reloads, by device type.",
		}, []string{"device_type"}),
	}
	reg.MustRegister(m.packetsTotal, m.dropsTotal, m.devicesOpen, m.reapsTotal, m.reloadErrors)
	return m
}

// ObservePacket implements device.Recorder.
func (m *Metrics) ObservePacket(deviceType string, pduType gosnmp.PDUType) {
	m.packetsTotal.WithLabelValues(deviceType, pduTypeLabel(pduType)).Inc()
}

// ObserveDrop implements device.Recorder.
func (m *Metrics) ObserveDrop(deviceType string, reason string) {
	m.dropsTotal.WithLabelValues(deviceType, reason).Inc()
}

// SetDevicesOpen implements pool.Recorder.
func (m *Metrics) SetDevicesOpen(deviceType string, count int) {
	m.devicesOpen.WithLabelValues(deviceType).Set(float64(count))
}

// ObserveReap implements pool.Recorder.
func (m *Metrics) ObserveReap(deviceType string, cause string) {
	m.reapsTotal.WithLabelValues(deviceType, cause).Inc()
}

// ObserveReloadError records a failed scheduled walk-file reload.
func (m *Metrics) ObserveReloadError(deviceType string) {
	m.reloadErrors.WithLabelValues(deviceType).Inc()
}

func pduTypeLabel(t gosnmp.PDUType) string {
	switch t {
	case gosnmp.GetRequest:
		return "get"
	case gosnmp.GetNextRequest:
		return "get_next"
	case gosnmp.GetBulkRequest:
		return "get_bulk"
	case gosnmp.SetRequest:
		return "set"
	case gosnmp.GetResponse:
		return "response"
	default:
		return "other"
	}
}
