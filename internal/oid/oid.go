// Package oid implements the SNMP object-identifier type and its
// lexicographic, integer-component ordering.
//
// Dotted-decimal string comparison is wrong for OIDs ("21.10" sorts before
// "21.9" under string compare): every component must be parsed as an
// integer first. This package exists so every other package compares OIDs
// exactly one way.
package oid

import (
	"fmt"
	"strconv"
	"strings"
)

// OID is a finite ordered sequence of non-negative integers.
type OID []uint32

// Parse converts a dotted-decimal string ("1.3.6.1.2.1.1.1.0") into an OID.
// A leading dot is tolerated and stripped, matching the snmpwalk/snmprec
// convention of writing OIDs as ".1.3.6...".
func Parse(s string) (OID, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return nil, fmt.Errorf("oid: empty OID")
	}
	parts := strings.Split(s, ".")
	out := make(OID, len(parts))
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("oid: invalid component %q in %q: %w", p, s, err)
		}
		out[i] = uint32(n)
	}
	return out, nil
}

// MustParse is Parse but panics on error; for constants and tests.
func MustParse(s string) OID {
	o, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return o
}

// String renders the OID in dotted-decimal form without a leading dot.
func (o OID) String() string {
	var b strings.Builder
	for i, c := range o {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatUint(uint64(c), 10))
	}
	return b.String()
}

// Clone returns an independent copy.
func (o OID) Clone() OID {
	out := make(OID, len(o))
	copy(out, o)
	return out
}

// Compare returns -1, 0, or 1 as o is less than, equal to, or greater than
// other, using component-wise integer comparison with prefix-less-than-
// extension: a strict prefix always sorts before any of its own extensions.
func (o OID) Compare(other OID) int {
	n := len(o)
	if len(other) < n {
		n = len(other)
	}
	for i := 0; i < n; i++ {
		if o[i] != other[i] {
			if o[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(o) < len(other):
		return -1
	case len(o) > len(other):
		return 1
	default:
		return 0
	}
}

// Less reports whether o sorts strictly before other.
func (o OID) Less(other OID) bool { return o.Compare(other) < 0 }

// Equal reports whether o and other have identical components.
func (o OID) Equal(other OID) bool { return o.Compare(other) == 0 }

// HasPrefix reports whether prefix is a leading subsequence of o.
func (o OID) HasPrefix(prefix OID) bool {
	if len(prefix) > len(o) {
		return false
	}
	for i, c := range prefix {
		if o[i] != c {
			return false
		}
	}
	return true
}
