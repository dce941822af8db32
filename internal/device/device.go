// Package device implements the per-device SNMP agent actor: the unit
// spec.md's Concurrency & Resource Model owns one goroutine and one UDP
// socket to. A Device holds no profile data of its own — it looks up its
// device type's Snapshot from a shared profile.Store on every request —
// but it owns its value-simulation RuntimeState exclusively, so two
// Devices of the same type never perturb each other's counters.
//
// Grounded on the teacher's internal/agent.VirtualAgent, stripped of its
// SNMPv3 handling (spec.md's Non-goals exclude v3 entirely) and its
// Zabbix-LLD-aware index manager / per-port device-mapping overlay
// (neither is part of spec.md's Data Model), and extended with the
// v1-vs-v2c error-branching the teacher's decodePacket never performed
// (it always decoded with a hardcoded Version2c/Version1 community of
// "public" and built every response the same way regardless of version).
package device

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snmpfleet/simulator/internal/profile"
	"github.com/snmpfleet/simulator/internal/variation"
)

// Recorder receives packet-level observability events. internal/metrics
// implements it; tests and callers that don't care about metrics pass nil.
type Recorder interface {
	ObservePacket(deviceType string, pduType gosnmp.PDUType)
	ObserveDrop(deviceType string, reason string)
}

// Config describes one device's identity and static configuration.
type Config struct {
	ID         string
	Port       int
	DeviceType string
	Community  string
	SysName    string
}

// Device is a single simulated SNMP agent. ID, Port and Stats are safe to
// call concurrently; HandlePacket is not, since it updates the device's
// unsynchronized RuntimeState. Exactly one goroutine (the device's own UDP
// read loop, owned by internal/pool) calls HandlePacket, so no internal
// locking is needed on the hot path.
type Device struct {
	id         string
	port       int
	deviceType string
	community  string
	sysName    string

	store *profile.Store
	state *variation.RuntimeState
	rec   Recorder

	startTime time.Time
	pollCount atomic.Int64

	mu       sync.Mutex
	lastPoll time.Time
}

// New returns a Device backed by store. store must already have (or will
// later have) a Snapshot loaded for cfg.DeviceType; until it does, every
// request answers as though the profile were empty.
func New(cfg Config, store *profile.Store, rec Recorder) *Device {
	return &Device{
		id:         cfg.ID,
		port:       cfg.Port,
		deviceType: cfg.DeviceType,
		community:  cfg.Community,
		sysName:    cfg.SysName,
		store:      store,
		state:      variation.NewRuntimeState(),
		rec:        rec,
		startTime:  time.Now(),
	}
}

// ID returns the device's stable identifier (spec.md's device_id).
func (d *Device) ID() string { return d.id }

// Port returns the UDP port this device listens on.
func (d *Device) Port() int { return d.port }

// Stats is a point-in-time snapshot of a device's counters, matching the
// teacher's GetStatistics shape.
type Stats struct {
	DeviceID  string
	Port      int
	SysName   string
	UptimeSec uint32
	PollCount int64
	LastPoll  time.Time
}

// Stats returns the device's current counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	lastPoll := d.lastPoll
	d.mu.Unlock()
	return Stats{
		DeviceID:  d.id,
		Port:      d.port,
		SysName:   d.sysName,
		UptimeSec: uint32(time.Since(d.startTime).Seconds()),
		PollCount: d.pollCount.Load(),
		LastPoll:  lastPoll,
	}
}

// HandlePacket decodes an inbound SNMP request and returns the wire bytes
// of its response, or nil if no response should be sent (decode failure
// or a community-string mismatch — both are silently dropped, matching
// standard agent behavior of never acknowledging an unauthorized
// request).
func (d *Device) HandlePacket(packet []byte) []byte {
	d.pollCount.Add(1)
	d.mu.Lock()
	d.lastPoll = time.Now()
	d.mu.Unlock()

	req, err := d.decode(packet)
	if err != nil {
		d.observeDrop("decode_error")
		return nil
	}
	if req.Community != d.community {
		d.observeDrop("bad_community")
		return nil
	}
	d.observePacket(req.PDUType)

	snap, _ := d.store.Get(d.deviceType)

	switch req.PDUType {
	case gosnmp.GetNextRequest:
		return d.handleGetNext(req, snap)
	case gosnmp.GetBulkRequest:
		return d.handleGetBulk(req, snap)
	case gosnmp.SetRequest:
		return d.handleSet(req)
	default:
		return d.handleGet(req, snap)
	}
}

func (d *Device) decode(packet []byte) (*gosnmp.SnmpPacket, error) {
	v2c := gosnmp.GoSNMP{Version: gosnmp.Version2c, Community: d.community}
	if req, err := v2c.SnmpDecodePacket(packet); err == nil {
		return req, nil
	}
	v1 := gosnmp.GoSNMP{Version: gosnmp.Version1, Community: d.community}
	return v1.SnmpDecodePacket(packet)
}

func (d *Device) observePacket(t gosnmp.PDUType) {
	if d.rec != nil {
		d.rec.ObservePacket(d.deviceType, t)
	}
}

func (d *Device) observeDrop(reason string) {
	if d.rec != nil {
		d.rec.ObserveDrop(d.deviceType, reason)
	}
}
