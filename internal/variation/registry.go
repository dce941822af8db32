package variation

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/snmpfleet/simulator/internal/profile"
)

// Build constructs the Simulator a Record's BehaviorSpec names. Unknown
// kinds are a config error, not silently treated as static — a typo in a
// binder file's kind fails loudly when NewBinder loads it.
func Build(spec profile.BehaviorSpec) (Simulator, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case "", "static_value":
		return StaticValue{}, nil
	case "counter_monotonic":
		delta, err := intParam(spec.Params, "delta", 1)
		if err != nil {
			return nil, err
		}
		return CounterMonotonic{Delta: delta}, nil
	case "random_jitter":
		max, err := intParam(spec.Params, "max", 0)
		if err != nil {
			return nil, err
		}
		seed, err := intParam(spec.Params, "seed", 1)
		if err != nil {
			return nil, err
		}
		return NewRandomJitter(max, seed), nil
	case "step":
		period, err := durationParam(spec.Params, "period", time.Second)
		if err != nil {
			return nil, err
		}
		delta, err := intParam(spec.Params, "delta", 1)
		if err != nil {
			return nil, err
		}
		return Step{Period: period, Delta: delta}, nil
	case "periodic_reset":
		period, err := durationParam(spec.Params, "period", 5*time.Minute)
		if err != nil {
			return nil, err
		}
		return PeriodicReset{Period: period}, nil
	case "drop":
		return DropOID{}, nil
	default:
		return nil, fmt.Errorf("variation: unsupported behavior kind %q", spec.Kind)
	}
}

func intParam(params map[string]string, key string, def int64) (int64, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("variation: invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func durationParam(params map[string]string, key string, def time.Duration) (time.Duration, error) {
	raw, ok := params[key]
	if !ok || strings.TrimSpace(raw) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("variation: invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
