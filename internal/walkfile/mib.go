package walkfile

// wellKnownNames maps the handful of MIB-II object names that show up in
// hand-edited snmpwalk named-format fixtures to their numeric OID. It is
// intentionally small — a full MIB compiler is out of scope (spec.md never
// asks for named-OID resolution beyond walk-file ingestion) — carried
// forward from the teacher's lookupMIBOID table in store/parser.go.
var wellKnownNames = map[string]string{
	"sysDescr":        "1.3.6.1.2.1.1.1.0",
	"sysObjectID":     "1.3.6.1.2.1.1.2.0",
	"sysUpTime":       "1.3.6.1.2.1.1.3.0",
	"sysContact":      "1.3.6.1.2.1.1.4.0",
	"sysName":         "1.3.6.1.2.1.1.5.0",
	"sysLocation":     "1.3.6.1.2.1.1.6.0",
	"sysServices":     "1.3.6.1.2.1.1.7.0",
	"sysORLastChange": "1.3.6.1.2.1.1.8.0",

	"ifNumber":        "1.3.6.1.2.1.2.1.0",
	"ifIndex":         "1.3.6.1.2.1.2.2.1.1",
	"ifDescr":         "1.3.6.1.2.1.2.2.1.2",
	"ifType":          "1.3.6.1.2.1.2.2.1.3",
	"ifMtu":           "1.3.6.1.2.1.2.2.1.4",
	"ifSpeed":         "1.3.6.1.2.1.2.2.1.5",
	"ifPhysAddress":   "1.3.6.1.2.1.2.2.1.6",
	"ifAdminStatus":   "1.3.6.1.2.1.2.2.1.7",
	"ifOperStatus":    "1.3.6.1.2.1.2.2.1.8",
	"ifLastChange":    "1.3.6.1.2.1.2.2.1.9",
	"ifInOctets":      "1.3.6.1.2.1.2.2.1.10",
	"ifInUcastPkts":   "1.3.6.1.2.1.2.2.1.11",
	"ifInNUcastPkts":  "1.3.6.1.2.1.2.2.1.12",
	"ifInDiscards":    "1.3.6.1.2.1.2.2.1.13",
	"ifInErrors":      "1.3.6.1.2.1.2.2.1.20",
	"ifOutOctets":     "1.3.6.1.2.1.2.2.1.16",
	"ifOutUcastPkts":  "1.3.6.1.2.1.2.2.1.17",
	"ifOutNUcastPkts": "1.3.6.1.2.1.2.2.1.18",
	"ifOutDiscards":   "1.3.6.1.2.1.2.2.1.19",
	"ifOutErrors":     "1.3.6.1.2.1.2.2.1.24",
	"ifName":          "1.3.6.1.2.1.31.1.1.1.1",
	"ifHighSpeed":     "1.3.6.1.2.1.31.1.1.1.15",

	"ipForwarding":      "1.3.6.1.2.1.4.1.0",
	"ipDefaultTTL":      "1.3.6.1.2.1.4.2.0",
	"ipInReceives":      "1.3.6.1.2.1.4.3.0",
	"ipInDelivers":      "1.3.6.1.2.1.4.9.0",
	"ipOutRequests":     "1.3.6.1.2.1.4.10.0",

	"tcpRtoAlgorithm": "1.3.6.1.2.1.6.1.0",
	"tcpCurrEstab":    "1.3.6.1.2.1.6.9.0",
	"tcpInSegs":       "1.3.6.1.2.1.6.10.0",
	"tcpOutSegs":      "1.3.6.1.2.1.6.11.0",

	"udpInDatagrams":  "1.3.6.1.2.1.7.1.0",
	"udpOutDatagrams": "1.3.6.1.2.1.7.4.0",

	"snmpInTotalRqvdPdus":  "1.3.6.1.2.1.11.1.0",
	"snmpOutTotalReqPdus":  "1.3.6.1.2.1.11.2.0",
	"snmpOutTotalRespPdus": "1.3.6.1.2.1.11.4.0",
	"snmpOutGenErrs":       "1.3.6.1.2.1.11.5.0",
}
