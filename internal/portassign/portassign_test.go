package portassign

import "testing"

func TestDefaultAssignsCableModem(t *testing.T) {
	table := Default()
	dt, ok := table.DeviceType(30500)
	if !ok || dt != "cable_modem" {
		t.Fatalf("DeviceType(30500) = %q, %v, want cable_modem, true", dt, ok)
	}
}

func TestUnassignedPortIsRejected(t *testing.T) {
	table := Default()
	if _, ok := table.DeviceType(9999); ok {
		t.Fatalf("expected port 9999 to be unassigned")
	}
}

func TestNarrowestRangeWins(t *testing.T) {
	table, err := New([]Range{
		{Start: 30000, End: 37999, DeviceType: "cable_modem"},
		{Start: 30100, End: 30110, DeviceType: "router"},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	dt, ok := table.DeviceType(30105)
	if !ok || dt != "router" {
		t.Fatalf("DeviceType(30105) = %q, %v, want router, true (narrower range overrides the default)", dt, ok)
	}
	dt, ok = table.DeviceType(30050)
	if !ok || dt != "cable_modem" {
		t.Fatalf("DeviceType(30050) = %q, %v, want cable_modem, true", dt, ok)
	}
}

func TestNewRejectsInvalidRange(t *testing.T) {
	if _, err := New([]Range{{Start: 100, End: 50, DeviceType: "x"}}); err == nil {
		t.Fatalf("expected error for End < Start")
	}
	if _, err := New([]Range{{Start: 100, End: 200}}); err == nil {
		t.Fatalf("expected error for missing deviceType")
	}
}

func TestDeviceTypesDeduplicates(t *testing.T) {
	table, _ := New([]Range{
		{Start: 30000, End: 30099, DeviceType: "cable_modem"},
		{Start: 31000, End: 31099, DeviceType: "cable_modem"},
		{Start: 32000, End: 32099, DeviceType: "router"},
	})
	types := table.DeviceTypes()
	if len(types) != 2 {
		t.Fatalf("DeviceTypes() = %v, want 2 distinct entries", types)
	}
}
