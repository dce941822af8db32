// Package walkfile parses the three walk-file formats spec.md §6 accepts as
// profile input: snmpwalk named output ("SNMPv2-MIB::sysDescr.0 = STRING
// ..."), snmpwalk numeric output (".1.3.6.1.2.1.1.1.0 = STRING ..."), and
// .snmprec ("OID|TYPE|VALUE"). All three converge on the same
// []profile.Record so the rest of the system never needs to know which
// format a device type's walk file was written in.
package walkfile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/snmpfleet/simulator/internal/oid"
	"github.com/snmpfleet/simulator/internal/profile"
)

// Format identifies a detected walk-file syntax.
type Format int

const (
	FormatUnknown Format = iota
	FormatNamed          // SNMPv2-MIB::sysDescr.0 = STRING ...
	FormatNumeric        // .1.3.6.1.2.1.1.1.0 = STRING ...
	FormatSnmprec        // 1.3.6.1.2.1.1.1.0|octetstring|...
)

// ParseError reports a single line that could not be parsed, without
// aborting the whole file — one malformed line in a multi-thousand-OID
// walk file should not prevent the rest from loading.
type ParseError struct {
	Line   int
	Text   string
	Reason error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("walkfile: line %d: %v: %q", e.Line, e.Reason, e.Text)
}

func (e *ParseError) Unwrap() error { return e.Reason }

// Parse detects the format of data and returns the records it describes,
// in no particular order (callers pass the result to profile.Build, which
// sorts). Lines that fail to parse are skipped and reported in errs rather
// than aborting the parse, matching the teacher's warn-and-continue
// behavior in store/parser.go.
func Parse(data []byte) (records []profile.Record, errs []error) {
	text := string(data)
	switch detectFormat(text) {
	case FormatNamed:
		return parseLines(text, parseNamedLine)
	case FormatSnmprec:
		return parseLines(text, parseSnmprecLine)
	default:
		return parseLines(text, parseNumericLine)
	}
}

func detectFormat(data string) Format {
	for _, line := range strings.Split(data, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		switch {
		case strings.Contains(trimmed, "::"):
			return FormatNamed
		case strings.HasPrefix(trimmed, "."):
			return FormatNumeric
		case strings.Contains(trimmed, "|"):
			return FormatSnmprec
		default:
			return FormatUnknown
		}
	}
	return FormatUnknown
}

type lineParser func(line string) (profile.Record, error)

func parseLines(data string, parse lineParser) (records []profile.Record, errs []error) {
	for i, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, err := parse(line)
		if err != nil {
			errs = append(errs, &ParseError{Line: i + 1, Text: line, Reason: err})
			continue
		}
		records = append(records, rec)
	}
	return records, errs
}

// parseSnmprecLine parses "OID|TYPE|VALUE".
func parseSnmprecLine(line string) (profile.Record, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) < 3 {
		return profile.Record{}, fmt.Errorf("expected OID|TYPE|VALUE")
	}
	o, err := oid.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return profile.Record{}, err
	}
	typ, ok := profile.ParseType(strings.TrimSpace(parts[1]))
	if !ok {
		return profile.Record{}, fmt.Errorf("unknown type %q", parts[1])
	}
	value, err := coerceValue(typ, strings.TrimSpace(parts[2]))
	if err != nil {
		return profile.Record{}, err
	}
	return profile.Record{OID: o, Type: typ, Value: value}, nil
}

// parseNumericLine parses ".1.3.6.1.2.1.1.1.0 = STRING \"value\"".
func parseNumericLine(line string) (profile.Record, error) {
	parts := strings.SplitN(line, " = ", 2)
	if len(parts) != 2 {
		return profile.Record{}, fmt.Errorf("expected \"OID = TYPE VALUE\"")
	}
	o, err := oid.Parse(strings.TrimSpace(parts[0]))
	if err != nil {
		return profile.Record{}, err
	}
	typ, value, err := parseTypedValue(strings.TrimSpace(parts[1]))
	if err != nil {
		return profile.Record{}, err
	}
	return profile.Record{OID: o, Type: typ, Value: value}, nil
}

// parseNamedLine parses "SNMPv2-MIB::sysDescr.0 = STRING \"value\"".
func parseNamedLine(line string) (profile.Record, error) {
	parts := strings.SplitN(line, " = ", 2)
	if len(parts) != 2 {
		return profile.Record{}, fmt.Errorf("expected \"MIB::name = TYPE VALUE\"")
	}
	oidStr, err := resolveNamed(strings.TrimSpace(parts[0]))
	if err != nil {
		return profile.Record{}, err
	}
	o, err := oid.Parse(oidStr)
	if err != nil {
		return profile.Record{}, err
	}
	typ, value, err := parseTypedValue(strings.TrimSpace(parts[1]))
	if err != nil {
		return profile.Record{}, err
	}
	return profile.Record{OID: o, Type: typ, Value: value}, nil
}

// resolveNamed converts "SNMPv2-MIB::sysDescr.0" to "1.3.6.1.2.1.1.1.0"
// using the built-in name table. Grounded on the teacher's
// extractOIDFromNamed/lookupMIBOID in store/parser.go.
func resolveNamed(named string) (string, error) {
	parts := strings.SplitN(named, "::", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid named OID %q", named)
	}
	objectPart := strings.TrimSpace(parts[1])

	nameIdx := strings.SplitN(objectPart, ".", 2)
	base := nameIdx[0]
	index := ""
	if len(nameIdx) > 1 {
		index = "." + nameIdx[1]
	}

	baseOID, ok := wellKnownNames[base]
	if !ok {
		return "", fmt.Errorf("unknown MIB object %q", objectPart)
	}
	if strings.HasSuffix(baseOID, ".0") {
		return baseOID, nil
	}
	return baseOID + index, nil
}

// parseTypedValue extracts an SNMP type and decoded value from the RHS of
// a snmpwalk "OID = ..." line, e.g. "STRING \"device\"", "Counter32:
// 12345", "Timeticks: (100) 0:00:01.00", "OID: .1.3.6.1.4.1.1".
func parseTypedValue(rhs string) (profile.Type, interface{}, error) {
	switch {
	case strings.HasPrefix(rhs, "STRING"):
		return profile.TypeOctetString, extractQuoted(rhs), nil
	case strings.HasPrefix(rhs, "Hex-STRING"):
		return profile.TypeOctetString, strings.TrimSpace(afterColon(rhs)), nil
	case strings.HasPrefix(rhs, "INTEGER"):
		n, err := extractField(rhs, 1)
		if err != nil {
			return 0, nil, err
		}
		v, err := strconv.Atoi(n)
		return profile.TypeInteger, v, err
	case strings.HasPrefix(rhs, "Timeticks:"):
		start, end := strings.Index(rhs, "("), strings.Index(rhs, ")")
		if start < 0 || end <= start {
			return 0, nil, fmt.Errorf("malformed Timeticks value %q", rhs)
		}
		v, err := strconv.ParseUint(strings.TrimSpace(rhs[start+1:end]), 10, 32)
		return profile.TypeTimeTicks, uint32(v), err
	case strings.HasPrefix(rhs, "Counter64:"):
		v, err := strconv.ParseUint(strings.TrimSpace(afterColon(rhs)), 10, 64)
		return profile.TypeCounter64, v, err
	case strings.HasPrefix(rhs, "Counter32:"):
		v, err := strconv.ParseUint(strings.TrimSpace(afterColon(rhs)), 10, 32)
		return profile.TypeCounter32, uint32(v), err
	case strings.HasPrefix(rhs, "Gauge32:"):
		v, err := strconv.ParseUint(strings.TrimSpace(afterColon(rhs)), 10, 32)
		return profile.TypeGauge32, uint32(v), err
	case strings.HasPrefix(rhs, "IpAddress:"):
		return profile.TypeIPAddress, strings.TrimSpace(afterColon(rhs)), nil
	case strings.HasPrefix(rhs, "OID:"):
		return profile.TypeObjectIdentifier, strings.TrimPrefix(strings.TrimSpace(afterColon(rhs)), "."), nil
	default:
		return profile.TypeOctetString, rhs, nil
	}
}

func afterColon(s string) string {
	if i := strings.Index(s, ":"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func extractQuoted(s string) string {
	start, end := strings.Index(s, "\""), strings.LastIndex(s, "\"")
	if start >= 0 && end > start {
		return s[start+1 : end]
	}
	return ""
}

func extractField(s string, idx int) (string, error) {
	fields := strings.Fields(s)
	if idx >= len(fields) {
		return "", fmt.Errorf("missing field %d in %q", idx, s)
	}
	return fields[idx], nil
}

// coerceValue converts a .snmprec value string into the Go type
// profile.Record expects for typ.
func coerceValue(typ profile.Type, raw string) (interface{}, error) {
	switch typ {
	case profile.TypeInteger:
		v, err := strconv.ParseInt(raw, 10, 32)
		return int(v), err
	case profile.TypeCounter32, profile.TypeGauge32, profile.TypeTimeTicks:
		v, err := strconv.ParseUint(raw, 10, 32)
		return uint32(v), err
	case profile.TypeCounter64:
		v, err := strconv.ParseUint(raw, 10, 64)
		return v, err
	case profile.TypeOctetString, profile.TypeObjectIdentifier, profile.TypeIPAddress, profile.TypeOpaque:
		return raw, nil
	case profile.TypeNull, profile.TypeNoSuchObject, profile.TypeNoSuchInstance, profile.TypeEndOfMibView:
		return nil, nil
	default:
		return raw, nil
	}
}
