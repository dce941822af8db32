// Package portassign maps a UDP port to the device type spec.md §4.6
// requires every lazily-materialized device to have before it can be
// created: a port with no matching range is simply not a valid device.
//
// Grounded on the teacher's internal/routing.Router, which matches
// inbound requests to a dataset path by a YAML rule list of matchers
// (community/context/engineID/srcIP/dstPort) sorted by specificity.
// portassign.Table drops every matcher but the port range itself — spec.md
// never routes by community or engine ID, only by which port a packet
// arrived on — and resolves to a device type name instead of a dataset
// file path.
package portassign

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Range is one contiguous port range assigned to a single device type.
type Range struct {
	Start      int    `yaml:"start"`
	End        int    `yaml:"end"`
	DeviceType string `yaml:"deviceType"`
}

type file struct {
	Ranges []Range `yaml:"ranges"`
}

// Table resolves a port to a device type by the narrowest (smallest span)
// matching range, so a deliberately overlapping override always wins over
// the broader default it overrides.
type Table struct {
	ranges []Range
}

// Default returns the built-in fallback assignment spec.md names: ports
// 30000-37999 simulate cable modems.
func Default() *Table {
	return &Table{ranges: []Range{{Start: 30000, End: 37999, DeviceType: "cable_modem"}}}
}

// New validates and sorts ranges into a Table.
func New(ranges []Range) (*Table, error) {
	out := make([]Range, 0, len(ranges))
	for i, r := range ranges {
		if r.Start <= 0 || r.End < r.Start {
			return nil, fmt.Errorf("portassign: range %d: invalid bounds [%d, %d]", i, r.Start, r.End)
		}
		if r.DeviceType == "" {
			return nil, fmt.Errorf("portassign: range %d: deviceType is required", i)
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return (out[i].End - out[i].Start) < (out[j].End - out[j].Start)
	})
	return &Table{ranges: out}, nil
}

// Load reads a port-assignment YAML file.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("portassign: read %s: %w", path, err)
	}
	var f file
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("portassign: parse %s: %w", path, err)
	}
	return New(f.Ranges)
}

// DeviceType resolves port to a device type. ok is false for any port
// outside every configured range — spec.md §4.6 requires get_or_create to
// reject such a port rather than inventing a device type for it.
func (t *Table) DeviceType(port int) (string, bool) {
	if t == nil {
		return "", false
	}
	for _, r := range t.ranges {
		if port >= r.Start && port <= r.End {
			return r.DeviceType, true
		}
	}
	return "", false
}

// Ranges returns every configured range, narrowest first.
func (t *Table) Ranges() []Range {
	if t == nil {
		return nil
	}
	out := make([]Range, len(t.ranges))
	copy(out, t.ranges)
	return out
}

// DeviceTypes returns the distinct device types this table can resolve to.
func (t *Table) DeviceTypes() []string {
	if t == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(t.ranges))
	out := make([]string, 0, len(t.ranges))
	for _, r := range t.ranges {
		if _, ok := seen[r.DeviceType]; ok {
			continue
		}
		seen[r.DeviceType] = struct{}{}
		out = append(out, r.DeviceType)
	}
	return out
}
