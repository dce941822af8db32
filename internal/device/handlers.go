package device

import (
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snmpfleet/simulator/internal/oid"
	"github.com/snmpfleet/simulator/internal/profile"
)

// handleGet answers a GetRequest. Per spec.md §4.3 (and RFC 1157 vs RFC
// 1905), a missing OID is reported differently by protocol version:
// SNMPv2c inlines a noSuchObject exception value per varbind with
// errorStatus=noError, while SNMPv1 has no per-varbind exception values
// and must fail the entire PDU with errorStatus=noSuchName at the index
// of the first missing variable, echoing the request's own varbinds.
func (d *Device) handleGet(req *gosnmp.SnmpPacket, snap *profile.Snapshot) []byte {
	vars := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for i, v := range req.Variables {
		rec, ok := d.lookup(snap, v.Name)
		if !ok {
			if req.Version == gosnmp.Version1 {
				return d.errorResponse(req, gosnmp.NoSuchName, byte(i+1))
			}
			vars = append(vars, gosnmp.SnmpPDU{Name: v.Name, Type: gosnmp.NoSuchObject})
			continue
		}
		vars = append(vars, toPDU(v.Name, rec))
	}
	return d.respond(req, vars, gosnmp.NoError, 0)
}

// handleGetNext answers a GetNextRequest. End-of-MIB is a noSuchName
// whole-PDU error under v1 and an inline endOfMibView value under v2c.
func (d *Device) handleGetNext(req *gosnmp.SnmpPacket, snap *profile.Snapshot) []byte {
	vars := make([]gosnmp.SnmpPDU, 0, len(req.Variables))
	for i, v := range req.Variables {
		start, err := oid.Parse(v.Name)
		if err != nil {
			if req.Version == gosnmp.Version1 {
				return d.errorResponse(req, gosnmp.NoSuchName, byte(i+1))
			}
			vars = append(vars, gosnmp.SnmpPDU{Name: v.Name, Type: gosnmp.EndOfMibView})
			continue
		}
		rec, ok := d.successor(snap, start)
		if !ok {
			if req.Version == gosnmp.Version1 {
				return d.errorResponse(req, gosnmp.NoSuchName, byte(i+1))
			}
			vars = append(vars, gosnmp.SnmpPDU{Name: v.Name, Type: gosnmp.EndOfMibView})
			continue
		}
		vars = append(vars, toPDU(rec.OID.String(), rec))
	}
	return d.respond(req, vars, gosnmp.NoError, 0)
}

// handleGetBulk answers a GetBulkRequest: the first NonRepeaters variables
// get a single GetNext each, the rest get up to MaxRepetitions consecutive
// successors, exactly as spec.md §4.3 (and RFC 1905 §4.2.3) define it.
// GetBulk is v2c-only; gosnmp never decodes one as v1.
func (d *Device) handleGetBulk(req *gosnmp.SnmpPacket, snap *profile.Snapshot) []byte {
	nonRepeaters := int(req.NonRepeaters)
	if nonRepeaters < 0 {
		nonRepeaters = 0
	}
	if nonRepeaters > len(req.Variables) {
		nonRepeaters = len(req.Variables)
	}
	maxRepeaters := int(req.MaxRepetitions)
	if maxRepeaters <= 0 {
		maxRepeaters = 1
	}

	vars := make([]gosnmp.SnmpPDU, 0, len(req.Variables)*maxRepeaters)

	for i, v := range req.Variables {
		if i < nonRepeaters {
			start, err := oid.Parse(v.Name)
			if err != nil {
				vars = append(vars, gosnmp.SnmpPDU{Name: v.Name, Type: gosnmp.EndOfMibView})
				continue
			}
			rec, ok := d.successor(snap, start)
			if !ok {
				vars = append(vars, gosnmp.SnmpPDU{Name: v.Name, Type: gosnmp.EndOfMibView})
				continue
			}
			vars = append(vars, toPDU(rec.OID.String(), rec))
			continue
		}

		current, err := oid.Parse(v.Name)
		if err != nil {
			continue
		}
		for r := 0; r < maxRepeaters; r++ {
			rec, ok := d.successor(snap, current)
			if !ok {
				vars = append(vars, gosnmp.SnmpPDU{Name: current.String(), Type: gosnmp.EndOfMibView})
				break
			}
			vars = append(vars, toPDU(rec.OID.String(), rec))
			current = rec.OID
		}
	}

	return d.respond(req, vars, gosnmp.NoError, 0)
}

// handleSet always refuses: spec.md's Data Model describes a read-only
// simulated agent, so every SetRequest fails with notWritable, echoing
// the teacher's handleSetRequest genErr-style refusal but with the more
// specific v2c error code.
func (d *Device) handleSet(req *gosnmp.SnmpPacket) []byte {
	if len(req.Variables) == 0 {
		return d.respond(req, nil, gosnmp.NotWritable, 0)
	}
	return d.respond(req, req.Variables, gosnmp.NotWritable, 1)
}

// lookup resolves oidStr in snap, applying the matching value-simulation
// behavior (if any) and system-OID overlay for sysUpTime.
func (d *Device) lookup(snap *profile.Snapshot, oidStr string) (profile.Record, bool) {
	parsed, err := oid.Parse(oidStr)
	if err != nil {
		return profile.Record{}, false
	}
	if rec, ok := d.systemOID(parsed); ok {
		return rec, true
	}
	rec, ok := snap.Lookup(parsed)
	if !ok {
		return profile.Record{}, false
	}
	return d.simulate(rec)
}

// successor resolves the lexicographic successor of start in snap,
// applying the same system-OID overlay and simulation pass as lookup. A
// record whose behavior drops it is skipped as though it were never loaded.
func (d *Device) successor(snap *profile.Snapshot, start oid.OID) (profile.Record, bool) {
	for {
		rec, ok := snap.Successor(start)
		if !ok {
			return profile.Record{}, false
		}
		if sys, ok := d.systemOID(rec.OID); ok {
			return sys, true
		}
		if out, ok := d.simulate(rec); ok {
			return out, true
		}
		start = rec.OID
	}
}

func (d *Device) simulate(rec profile.Record) (profile.Record, bool) {
	sim, err := d.state.SimulatorFor(rec.OID.String(), rec.Behavior)
	if err != nil {
		return rec, true
	}
	out, err := sim.Apply(time.Now(), rec, d.state)
	if err != nil {
		return profile.Record{}, false
	}
	return out, true
}

// systemOID overlays a handful of per-device dynamic values that spec.md
// requires to vary per device and over time regardless of what a walk
// file loaded for sysUpTime, grounded on the teacher's getSystemOID.
func (d *Device) systemOID(o oid.OID) (profile.Record, bool) {
	if o.String() != "1.3.6.1.2.1.1.3.0" {
		return profile.Record{}, false
	}
	ticks := uint32(time.Since(d.startTime).Seconds() * 100)
	return profile.Record{OID: o, Type: profile.TypeTimeTicks, Value: ticks}, true
}

func toPDU(name string, rec profile.Record) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: berType(rec.Type), Value: rec.Value}
}

func berType(t profile.Type) gosnmp.Asn1BER {
	switch t {
	case profile.TypeInteger:
		return gosnmp.Integer
	case profile.TypeOctetString:
		return gosnmp.OctetString
	case profile.TypeObjectIdentifier:
		return gosnmp.ObjectIdentifier
	case profile.TypeNull:
		return gosnmp.Null
	case profile.TypeIPAddress:
		return gosnmp.IPAddress
	case profile.TypeCounter32:
		return gosnmp.Counter32
	case profile.TypeGauge32:
		return gosnmp.Gauge32
	case profile.TypeTimeTicks:
		return gosnmp.TimeTicks
	case profile.TypeOpaque:
		return gosnmp.Opaque
	case profile.TypeCounter64:
		return gosnmp.Counter64
	case profile.TypeNoSuchObject:
		return gosnmp.NoSuchObject
	case profile.TypeNoSuchInstance:
		return gosnmp.NoSuchInstance
	case profile.TypeEndOfMibView:
		return gosnmp.EndOfMibView
	default:
		return gosnmp.OctetString
	}
}

func (d *Device) respond(req *gosnmp.SnmpPacket, vars []gosnmp.SnmpPDU, errCode gosnmp.SNMPError, errIndex uint8) []byte {
	resp := *req
	resp.PDUType = gosnmp.GetResponse
	resp.Variables = vars
	resp.Error = errCode
	resp.ErrorIndex = errIndex
	data, err := resp.MarshalMsg()
	if err != nil {
		return nil
	}
	return data
}

func (d *Device) errorResponse(req *gosnmp.SnmpPacket, errCode gosnmp.SNMPError, errIndex uint8) []byte {
	return d.respond(req, req.Variables, errCode, errIndex)
}
