package variation

import (
	"testing"
	"time"

	"github.com/snmpfleet/simulator/internal/oid"
	"github.com/snmpfleet/simulator/internal/profile"
)

func makeRecord(t profile.Type, v interface{}) profile.Record {
	return profile.Record{OID: oid.MustParse("1.3.6.1.2.1.2.2.1.10.1"), Type: t, Value: v}
}

func TestCounterMonotonicIncrementsPerRead(t *testing.T) {
	sim := CounterMonotonic{Delta: 5}
	state := NewRuntimeState()
	rec := makeRecord(profile.TypeCounter32, uint32(100))

	first, err := sim.Apply(time.Time{}, rec, state)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if first.Value.(uint32) != 105 {
		t.Fatalf("first read = %v, want 105", first.Value)
	}

	second, err := sim.Apply(time.Time{}, rec, state)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if second.Value.(uint32) != 110 {
		t.Fatalf("second read = %v, want 110 (must continue from prior read, not the loaded base)", second.Value)
	}
}

func TestCounterMonotonicStateIsPerDevice(t *testing.T) {
	sim := CounterMonotonic{Delta: 1}
	rec := makeRecord(profile.TypeCounter32, uint32(0))

	deviceA := NewRuntimeState()
	deviceB := NewRuntimeState()

	for i := 0; i < 3; i++ {
		if _, err := sim.Apply(time.Time{}, rec, deviceA); err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}
	got, err := sim.Apply(time.Time{}, rec, deviceB)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Value.(uint32) != 1 {
		t.Fatalf("device B counter = %v after its first read, want 1 (must not see device A's state)", got.Value)
	}
}

func TestStepAdvancesOnlyAfterPeriodElapses(t *testing.T) {
	sim := Step{Period: time.Minute, Delta: 10}
	state := NewRuntimeState()
	rec := makeRecord(profile.TypeGauge32, uint32(0))

	start := time.Unix(0, 0)
	got, _ := sim.Apply(start, rec, state)
	if got.Value.(uint32) != 0 {
		t.Fatalf("value at t=0 = %v, want 0", got.Value)
	}

	got, _ = sim.Apply(start.Add(90*time.Second), rec, state)
	if got.Value.(uint32) != 10 {
		t.Fatalf("value after 1.5 periods = %v, want 10 (exactly one elapsed period)", got.Value)
	}
}

func TestPeriodicResetSnapsBackToBase(t *testing.T) {
	sim := PeriodicReset{Period: time.Minute}
	state := NewRuntimeState()
	rec := makeRecord(profile.TypeCounter32, uint32(50))

	start := time.Unix(0, 0)
	sim.Apply(start, rec, state)
	sim.Apply(start.Add(10*time.Second), rec, state)
	got, _ := sim.Apply(start.Add(70*time.Second), rec, state)
	if got.Value.(uint32) != 50 {
		t.Fatalf("value after period elapsed = %v, want reset to base 50", got.Value)
	}
}

func TestDropOIDReturnsErrDropOID(t *testing.T) {
	sim := DropOID{}
	_, err := sim.Apply(time.Time{}, makeRecord(profile.TypeInteger, 1), NewRuntimeState())
	if err != ErrDropOID {
		t.Fatalf("Apply() error = %v, want ErrDropOID", err)
	}
}

func TestStaticValueNeverMutates(t *testing.T) {
	sim := StaticValue{}
	rec := makeRecord(profile.TypeOctetString, "hello")
	got, err := sim.Apply(time.Time{}, rec, NewRuntimeState())
	if err != nil || got.Value != "hello" {
		t.Fatalf("Apply() = %+v, err=%v", got, err)
	}
}

func TestBuildUnknownKindIsError(t *testing.T) {
	_, err := Build(profile.BehaviorSpec{Kind: "not_a_real_kind"})
	if err == nil {
		t.Fatalf("expected error for unknown behavior kind")
	}
}

func TestBuildDefaultsToStaticValue(t *testing.T) {
	sim, err := Build(profile.BehaviorSpec{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if _, ok := sim.(StaticValue); !ok {
		t.Fatalf("Build(empty spec) = %T, want StaticValue", sim)
	}
}

func TestBinderOverlayLongestPrefixWins(t *testing.T) {
	binder, err := NewBinder([]bindingEntry{
		{Prefix: "1.3.6.1.2.1.2", Kind: "counter_monotonic", Params: map[string]string{"delta": "1"}},
		{Prefix: "1.3.6.1.2.1.2.2.1.10", Kind: "drop"},
	})
	if err != nil {
		t.Fatalf("NewBinder() error = %v", err)
	}

	records := []profile.Record{
		makeRecord(profile.TypeCounter32, uint32(0)),                    // under the more specific prefix
		{OID: oid.MustParse("1.3.6.1.2.1.2.2.1.5.1"), Type: profile.TypeGauge32, Value: uint32(1)}, // under the broader prefix only
	}
	overlaid := Overlay(records, binder)

	if overlaid[0].Behavior.Kind != "drop" {
		t.Fatalf("record under the longer prefix got Kind %q, want \"drop\"", overlaid[0].Behavior.Kind)
	}
	if overlaid[1].Behavior.Kind != "counter_monotonic" {
		t.Fatalf("record under only the shorter prefix got Kind %q, want \"counter_monotonic\"", overlaid[1].Behavior.Kind)
	}
}

func TestSimulatorForCachesRandomJitterAcrossReads(t *testing.T) {
	state := NewRuntimeState()
	spec := profile.BehaviorSpec{Kind: "random_jitter", Params: map[string]string{"max": "1000000", "seed": "7"}}
	rec := makeRecord(profile.TypeGauge32, uint32(50))

	sim, err := state.SimulatorFor(rec.OID.String(), spec)
	if err != nil {
		t.Fatalf("SimulatorFor() error = %v", err)
	}
	first, err := sim.Apply(time.Time{}, rec, state)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	sim2, err := state.SimulatorFor(rec.OID.String(), spec)
	if err != nil {
		t.Fatalf("SimulatorFor() second call error = %v", err)
	}
	if sim2 != sim {
		t.Fatalf("SimulatorFor() returned a different instance for the same OID and spec; rng state would reset every read")
	}
	second, err := sim2.Apply(time.Time{}, rec, state)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if first.Value == second.Value {
		t.Fatalf("two reads through a cached RandomJitter both returned %v; rng must advance between calls", first.Value)
	}
}

func TestSimulatorForRebuildsWhenSpecChanges(t *testing.T) {
	state := NewRuntimeState()
	rec := makeRecord(profile.TypeCounter32, uint32(0))

	sim1, err := state.SimulatorFor(rec.OID.String(), profile.BehaviorSpec{Kind: "counter_monotonic", Params: map[string]string{"delta": "1"}})
	if err != nil {
		t.Fatalf("SimulatorFor() error = %v", err)
	}
	sim2, err := state.SimulatorFor(rec.OID.String(), profile.BehaviorSpec{Kind: "counter_monotonic", Params: map[string]string{"delta": "5"}})
	if err != nil {
		t.Fatalf("SimulatorFor() error = %v", err)
	}
	if sim1 == sim2 {
		t.Fatalf("SimulatorFor() reused a cached Simulator after its params changed")
	}
}

func TestBinderNoMatchLeavesBehaviorUnset(t *testing.T) {
	binder, _ := NewBinder([]bindingEntry{{Prefix: "1.3.6.1.4.1.9999", Kind: "drop"}})
	records := []profile.Record{makeRecord(profile.TypeInteger, 1)}
	overlaid := Overlay(records, binder)
	if !overlaid[0].Behavior.IsStatic() {
		t.Fatalf("unmatched record got Behavior %+v, want untouched static default", overlaid[0].Behavior)
	}
}
