// Package profile implements the process-wide, read-mostly OID profile
// store: one immutable snapshot per device type, swapped atomically on
// reload so an in-flight request never observes a torn update.
package profile

import (
	"strings"

	"github.com/snmpfleet/simulator/internal/oid"
)

// Type is the SNMP value type carried by a Record. It is a closed enum
// distinct from gosnmp's wire-level Asn1BER so that a profile value can be
// stored, copied, and compared without ever collapsing an
// object_identifier into a null — the regression spec.md calls out by name.
type Type int

const (
	TypeUnspecified Type = iota
	TypeInteger
	TypeOctetString
	TypeObjectIdentifier
	TypeNull
	TypeIPAddress
	TypeCounter32
	TypeGauge32
	TypeTimeTicks
	TypeOpaque
	TypeCounter64
	TypeNoSuchObject
	TypeNoSuchInstance
	TypeEndOfMibView
)

func (t Type) String() string {
	switch t {
	case TypeInteger:
		return "integer"
	case TypeOctetString:
		return "octet_string"
	case TypeObjectIdentifier:
		return "object_identifier"
	case TypeNull:
		return "null"
	case TypeIPAddress:
		return "ip_address"
	case TypeCounter32:
		return "counter32"
	case TypeGauge32:
		return "gauge32"
	case TypeTimeTicks:
		return "timeticks"
	case TypeOpaque:
		return "opaque"
	case TypeCounter64:
		return "counter64"
	case TypeNoSuchObject:
		return "no_such_object"
	case TypeNoSuchInstance:
		return "no_such_instance"
	case TypeEndOfMibView:
		return "end_of_mib_view"
	default:
		return "unspecified"
	}
}

// ParseType maps a walk-file type name to a Type, case-insensitively, so
// "Counter32", "COUNTER32", and "counter32" all resolve the same way (the
// walk-file format's stated requirement).
func ParseType(name string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "integer", "int", "i":
		return TypeInteger, true
	case "octetstring", "octet_string", "string", "s":
		return TypeOctetString, true
	case "objectidentifier", "object_identifier", "oid", "o":
		return TypeObjectIdentifier, true
	case "null":
		return TypeNull, true
	case "ipaddress", "ip_address", "ip":
		return TypeIPAddress, true
	case "counter32", "counter", "c32":
		return TypeCounter32, true
	case "gauge32", "gauge", "g", "g32":
		return TypeGauge32, true
	case "timeticks", "tt", "ticks":
		return TypeTimeTicks, true
	case "opaque":
		return TypeOpaque, true
	case "counter64", "c64":
		return TypeCounter64, true
	case "nosuchobject", "no_such_object":
		return TypeNoSuchObject, true
	case "nosuchinstance", "no_such_instance":
		return TypeNoSuchInstance, true
	case "endofmibview", "end_of_mib_view":
		return TypeEndOfMibView, true
	default:
		return TypeUnspecified, false
	}
}

// BehaviorSpec is the static, data-only descriptor attached to a Record that
// drives the pluggable value-simulation hook (spec.md §4.4). It is plain
// data so it can live inside an immutable Snapshot; the stateful side of a
// behavior lives in the caller's per-device runtime state, never here.
type BehaviorSpec struct {
	Kind   string
	Params map[string]string
}

// IsStatic reports whether this behavior is the default identity behavior.
func (b BehaviorSpec) IsStatic() bool {
	return b.Kind == "" || b.Kind == "static_value"
}

// Record is a single (oid, type, value) triple plus its optional behavior,
// exactly as spec.md §3 defines OidRecord. Value's concrete Go type depends
// on Type: string for OctetString/ObjectIdentifier/IPAddress/Opaque, int for
// Integer, uint32 for Counter32/Gauge32/TimeTicks, uint64 for Counter64, nil
// for Null/NoSuchObject/NoSuchInstance/EndOfMibView.
type Record struct {
	OID      oid.OID
	Type     Type
	Value    interface{}
	Behavior BehaviorSpec
}
