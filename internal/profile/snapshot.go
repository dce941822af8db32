package profile

import (
	"fmt"
	"sort"

	"github.com/armon/go-radix"
	"github.com/snmpfleet/simulator/internal/oid"
)

// Snapshot is an immutable, fully-built view of one device type's OID
// table. It backs the O(log N) exact lookup and O(log N) lexicographic
// successor spec.md §4.2 requires: a radix tree keyed by dotted-decimal OID
// for exact hits (grounded on the teacher's database.go use of
// github.com/armon/go-radix), and a lexicographically sorted slice for
// successor/bulk binary search.
//
// A Snapshot is never mutated after Build returns it. Concurrent readers
// holding a reference to the same Snapshot never observe a partial state,
// which is what makes Store.Load's pointer swap safe without per-read
// locking.
type Snapshot struct {
	tree   *radix.Tree
	sorted []Record
}

// Build validates and indexes records into a new Snapshot. It returns
// ErrDuplicateOID if the same OID appears twice, matching spec.md §3's
// invariant that sorted_oids contains no duplicates.
func Build(records []Record) (*Snapshot, error) {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].OID.Less(sorted[j].OID) })

	tree := radix.New()
	for i, rec := range sorted {
		key := rec.OID.String()
		if i > 0 && sorted[i-1].OID.Equal(rec.OID) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateOID, key)
		}
		tree.Insert(key, i)
	}

	return &Snapshot{tree: tree, sorted: sorted}, nil
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.sorted)
}

// Lookup returns the exact record for o, if loaded.
func (s *Snapshot) Lookup(o oid.OID) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	idx, ok := s.tree.Get(o.String())
	if !ok {
		return Record{}, false
	}
	return s.sorted[idx.(int)], true
}

// Successor returns the strict lexicographic successor of o among loaded
// OIDs: the smallest stored OID greater than o. o itself need not be
// present. Returns (Record{}, false) at end-of-MIB.
//
// This is a single sort.Search over the pre-sorted slice — the binary
// search spec.md §4.2 requires, generalized from the teacher's
// string-keyed searchOIDPosition to oid.OID's integer-component Compare.
func (s *Snapshot) Successor(o oid.OID) (Record, bool) {
	if s == nil {
		return Record{}, false
	}
	idx := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].OID.Compare(o) > 0
	})
	if idx >= len(s.sorted) {
		return Record{}, false
	}
	return s.sorted[idx], true
}

// Bulk returns up to n records starting at the strict successor of start,
// i.e. the contiguous slice spec.md §4.2 calls out for GET-BULK. The
// returned slice is never longer than n and is always in ascending order.
func (s *Snapshot) Bulk(start oid.OID, n int) []Record {
	if s == nil || n <= 0 {
		return nil
	}
	idx := sort.Search(len(s.sorted), func(i int) bool {
		return s.sorted[i].OID.Compare(start) > 0
	})
	end := idx + n
	if end > len(s.sorted) {
		end = len(s.sorted)
	}
	if idx >= end {
		return nil
	}
	out := make([]Record, end-idx)
	copy(out, s.sorted[idx:end])
	return out
}
