package variation

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/snmpfleet/simulator/internal/profile"
)

// ErrDropOID signals the caller should treat this OID as unreadable for
// this request (spec.md's "drop" behavior), not return a zero value.
var ErrDropOID = errors.New("variation: oid dropped")

// CounterMonotonic increments the stored value by Delta on every read,
// starting from the record's loaded value. Grounded on the teacher's
// CounterMonotonic in internal/variation/variation.go, retargeted to read
// and write through the caller's RuntimeState instead of an internal map.
type CounterMonotonic struct {
	Delta int64
}

func (v CounterMonotonic) Apply(_ time.Time, rec profile.Record, state *RuntimeState) (profile.Record, error) {
	delta := v.Delta
	if delta == 0 {
		delta = 1
	}
	key := rec.OID.String()
	base, ok := toInt64(rec.Value)
	if !ok {
		return rec, nil
	}
	cur, exists := state.getValue(key)
	if !exists {
		cur = base
	}
	cur += delta
	state.setValue(key, cur)
	rec.Value = castByType(rec.Type, cur)
	return rec, nil
}

// RandomJitter adds a uniformly random delta in [-Max, Max] to the stored
// value on every read. Each device gets its own *rand.Rand (built through
// RuntimeState.SimulatorFor), seeded from the behavior's seed parameter, so
// devices sharing the same behavior spec produce the same jitter sequence.
type RandomJitter struct {
	Max int64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomJitter(max, seed int64) *RandomJitter {
	if max < 0 {
		max = -max
	}
	if seed == 0 {
		seed = 1
	}
	return &RandomJitter{Max: max, rng: rand.New(rand.NewSource(seed))}
}

func (v *RandomJitter) Apply(_ time.Time, rec profile.Record, state *RuntimeState) (profile.Record, error) {
	if v.Max == 0 {
		return rec, nil
	}
	base, ok := toInt64(rec.Value)
	if !ok {
		return rec, nil
	}
	v.mu.Lock()
	delta := v.rng.Int63n(v.Max*2+1) - v.Max
	v.mu.Unlock()
	rec.Value = castByType(rec.Type, base+delta)
	return rec, nil
}

// Step advances the stored value by Delta every Period, measured from the
// first read of that OID on this device.
type Step struct {
	Period time.Duration
	Delta  int64
}

func (v Step) Apply(now time.Time, rec profile.Record, state *RuntimeState) (profile.Record, error) {
	period := v.Period
	if period <= 0 {
		period = time.Second
	}
	key := rec.OID.String()
	base, ok := toInt64(rec.Value)
	if !ok {
		return rec, nil
	}
	b, exists := state.getValue(key)
	startAt, hasStart := state.getTime(key)
	if !exists || !hasStart {
		b = base
		startAt = now
		state.setValue(key, b)
		state.setTime(key, startAt)
	}
	steps := int64(now.Sub(startAt) / period)
	rec.Value = castByType(rec.Type, b+steps*v.Delta)
	return rec, nil
}

// PeriodicReset counts reads upward from the record's loaded value until
// Period elapses, then snaps back to the loaded value and starts over —
// simulating a counter that wraps or a gauge that resets on a schedule.
type PeriodicReset struct {
	Period time.Duration
}

func (v PeriodicReset) Apply(now time.Time, rec profile.Record, state *RuntimeState) (profile.Record, error) {
	period := v.Period
	if period <= 0 {
		period = 5 * time.Minute
	}
	key := rec.OID.String()
	base, ok := toInt64(rec.Value)
	if !ok {
		return rec, nil
	}
	baseKey, windowKey := key+"#base", key+"#window"
	storedBase, exists := state.getValue(baseKey)
	windowAt, hasWindow := state.getTime(windowKey)
	if !exists || !hasWindow {
		storedBase = base
		state.setValue(baseKey, storedBase)
		state.setValue(key, storedBase)
		windowAt = now
		state.setTime(windowKey, windowAt)
	}

	if now.Sub(windowAt) >= period {
		state.setValue(key, storedBase)
		state.setTime(windowKey, now)
	} else {
		cur, _ := state.getValue(key)
		state.setValue(key, cur+1)
	}

	cur, _ := state.getValue(key)
	rec.Value = castByType(rec.Type, cur)
	return rec, nil
}

// DropOID makes an OID behave as though it were never loaded: the device
// must answer as it would for an OID outside the profile, not with a
// zero value.
type DropOID struct{}

func (DropOID) Apply(_ time.Time, rec profile.Record, _ *RuntimeState) (profile.Record, error) {
	return rec, ErrDropOID
}

// StaticValue is the identity behavior: the loaded value, unchanged. It is
// the default for any Record whose BehaviorSpec is empty or "static_value".
type StaticValue struct{}

func (StaticValue) Apply(_ time.Time, rec profile.Record, _ *RuntimeState) (profile.Record, error) {
	return rec, nil
}
