package variation

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/snmpfleet/simulator/internal/profile"
)

// Binder assigns a BehaviorSpec to OIDs by longest-prefix match, loaded
// from a YAML file separate from the walk file itself — so a device
// type's static values and its value-simulation behaviors can be edited
// independently. Grounded on the teacher's internal/variation/binder.go
// Binder/prefixChain, retargeted from building live Variation chains
// per-OID to resolving a declarative profile.BehaviorSpec, which Overlay
// then attaches onto the matching Records before profile.Build.
type Binder struct {
	bindings []binding
}

type binding struct {
	prefix string
	spec   profile.BehaviorSpec
}

type binderFile struct {
	Bindings []bindingEntry `yaml:"bindings"`
}

type bindingEntry struct {
	Prefix string            `yaml:"prefix"`
	Kind   string            `yaml:"kind"`
	Params map[string]string `yaml:"params"`
}

// LoadBinder reads a variation-binding YAML file.
func LoadBinder(path string) (*Binder, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("variation: read binder file: %w", err)
	}
	var file binderFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("variation: parse binder yaml: %w", err)
	}
	return NewBinder(file.Bindings)
}

// NewBinder builds a Binder from already-decoded entries, validating each
// one builds a real Simulator so a bad binding fails at load time rather
// than on the first matching read.
func NewBinder(entries []bindingEntry) (*Binder, error) {
	out := make([]binding, 0, len(entries))
	for i, e := range entries {
		prefix := normalizePrefix(e.Prefix)
		if prefix == "" {
			return nil, fmt.Errorf("variation: binding %d: prefix is required", i)
		}
		spec := profile.BehaviorSpec{Kind: e.Kind, Params: e.Params}
		if _, err := Build(spec); err != nil {
			return nil, fmt.Errorf("variation: binding %d: %w", i, err)
		}
		out = append(out, binding{prefix: prefix, spec: spec})
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i].prefix) > len(out[j].prefix) })
	return &Binder{bindings: out}, nil
}

// Resolve returns the BehaviorSpec bound to the longest matching prefix of
// oidStr, if any.
func (b *Binder) Resolve(oidStr string) (profile.BehaviorSpec, bool) {
	if b == nil {
		return profile.BehaviorSpec{}, false
	}
	oidStr = normalizePrefix(oidStr)
	for _, entry := range b.bindings {
		if matchesPrefix(oidStr, entry.prefix) {
			return entry.spec, true
		}
	}
	return profile.BehaviorSpec{}, false
}

// Overlay returns a copy of records with each one's Behavior set from the
// first matching binding in b, leaving records with no match untouched.
func Overlay(records []profile.Record, b *Binder) []profile.Record {
	if b == nil {
		return records
	}
	out := make([]profile.Record, len(records))
	for i, rec := range records {
		if spec, ok := b.Resolve(rec.OID.String()); ok {
			rec.Behavior = spec
		}
		out[i] = rec
	}
	return out
}

func matchesPrefix(oidStr, prefix string) bool {
	return oidStr == prefix || strings.HasPrefix(oidStr, prefix+".")
}

func normalizePrefix(oidStr string) string {
	return strings.TrimPrefix(strings.TrimSpace(oidStr), ".")
}
