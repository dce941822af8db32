// Package variation implements the pluggable value-simulation hook spec.md
// §4.4 describes: small, composable transforms (counter drift, gauge
// jitter, staged steps, periodic resets) applied to a Record's value on
// every read.
//
// Unlike the teacher's internal/variation package, state here is never
// held inside the Simulator itself. The teacher's CounterMonotonic etc.
// each carry a package-private map[string]int64 keyed only by OID name, so
// a single *CounterMonotonic shared across every device of a device type
// (as the teacher's Binder is) accumulates one counter value shared by
// every device — device A's reads would perturb device B's counter.
// spec.md's device actors are independent; a simulator here must never
// see another device's state. So Apply takes the caller's own per-device
// *RuntimeState, and keeps no per-OID counters of its own; RuntimeState
// also caches each device's built Simulators, so no Simulator instance is
// shared between devices.
package variation

import (
	"sort"
	"strings"
	"time"

	"github.com/snmpfleet/simulator/internal/profile"
)

// Simulator transforms rec's value for a single read, given the wall-clock
// time and the calling device's own scratch state. A Simulator must not
// retain rec or state beyond the call.
type Simulator interface {
	Apply(now time.Time, rec profile.Record, state *RuntimeState) (profile.Record, error)
}

// RuntimeState is the per-device, per-OID scratch space simulators use to
// carry running counters, step start times, and reset windows across
// repeated reads of the same OID on the same device. One RuntimeState
// belongs to exactly one Device; it is never shared.
//
// It also caches the built Simulator for each OID. A behavior like
// RandomJitter carries its own *rand.Rand; building a fresh one on every
// single read would reseed it identically each time and make the
// "jitter" produce the same value forever. Caching by OID means Build
// runs once per OID per device, and the Simulator's own internal state
// (not just the values/times maps below) survives across reads.
type RuntimeState struct {
	values map[string]int64
	times  map[string]time.Time

	simulators  map[string]Simulator
	specFprints map[string]string
}

// NewRuntimeState returns an empty per-device state store.
func NewRuntimeState() *RuntimeState {
	return &RuntimeState{
		values:      make(map[string]int64),
		times:       make(map[string]time.Time),
		simulators:  make(map[string]Simulator),
		specFprints: make(map[string]string),
	}
}

// SimulatorFor returns the cached Simulator built for oidKey under spec,
// building and caching one if this is the first read of oidKey or if
// spec has changed since the cached one was built (e.g. after a profile
// reload changed that OID's behavior).
func (s *RuntimeState) SimulatorFor(oidKey string, spec profile.BehaviorSpec) (Simulator, error) {
	fp := fingerprintSpec(spec)
	if sim, ok := s.simulators[oidKey]; ok && s.specFprints[oidKey] == fp {
		return sim, nil
	}
	sim, err := Build(spec)
	if err != nil {
		return nil, err
	}
	s.simulators[oidKey] = sim
	s.specFprints[oidKey] = fp
	return sim, nil
}

func fingerprintSpec(spec profile.BehaviorSpec) string {
	keys := make([]string, 0, len(spec.Params))
	for k := range spec.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(spec.Kind)
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(spec.Params[k])
	}
	return b.String()
}

func (s *RuntimeState) getValue(key string) (int64, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *RuntimeState) setValue(key string, v int64) { s.values[key] = v }

func (s *RuntimeState) getTime(key string) (time.Time, bool) {
	t, ok := s.times[key]
	return t, ok
}

func (s *RuntimeState) setTime(key string, t time.Time) { s.times[key] = t }

func toInt64(v interface{}) (int64, bool) {
	switch x := v.(type) {
	case int:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > uint64(^uint64(0)>>1) {
			return 0, false
		}
		return int64(x), true
	default:
		return 0, false
	}
}

// castByType mirrors the wire type so a Counter32 stays a uint32 and a
// Counter64 stays a uint64 after a Simulator perturbs its numeric value —
// the same never-collapse-the-type guarantee profile.Record documents for
// object_identifier applies here to every numeric type.
func castByType(t profile.Type, n int64) interface{} {
	switch t {
	case profile.TypeCounter32, profile.TypeGauge32, profile.TypeTimeTicks:
		if n < 0 {
			n = 0
		}
		return uint32(n)
	case profile.TypeCounter64:
		if n < 0 {
			n = 0
		}
		return uint64(n)
	default:
		return n
	}
}
