package device

import (
	"strconv"

	"github.com/snmpfleet/simulator/internal/oid"
)

func mustOID(s string) oid.OID { return oid.MustParse(s) }

func itoa(n int) string { return strconv.Itoa(n) }
