package oid

import (
	"sort"
	"testing"
)

func TestCompareNumericNotString(t *testing.T) {
	a := MustParse("1.3.6.1.2.1.2.2.1.1.21.9")
	b := MustParse("1.3.6.1.2.1.2.2.1.1.21.10")
	if !a.Less(b) {
		t.Fatalf("21.9 must sort before 21.10 under numeric compare")
	}
	if b.Less(a) {
		t.Fatalf("21.10 must not sort before 21.9")
	}
}

func TestSortOrderMatchesSpecExample(t *testing.T) {
	oids := []OID{
		MustParse("22.1"),
		MustParse("21.10"),
		MustParse("21.9"),
	}
	sort.Slice(oids, func(i, j int) bool { return oids[i].Less(oids[j]) })

	want := []string{"21.9", "21.10", "22.1"}
	for i, o := range oids {
		if o.String() != want[i] {
			t.Fatalf("position %d: got %q, want %q", i, o.String(), want[i])
		}
	}
}

func TestPrefixLessThanExtension(t *testing.T) {
	parent := MustParse("1.3.6.1.2.1.1")
	child := MustParse("1.3.6.1.2.1.1.1.0")
	if !parent.Less(child) {
		t.Fatalf("a proper prefix must be strictly less than any of its extensions")
	}
}

func TestHasPrefix(t *testing.T) {
	o := MustParse("1.3.6.1.2.1.2.2.1.1.9")
	if !o.HasPrefix(MustParse("1.3.6.1.2.1.2.2")) {
		t.Fatalf("expected prefix match")
	}
	if o.HasPrefix(MustParse("1.3.6.1.2.1.2.3")) {
		t.Fatalf("unexpected prefix match")
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse(""); err == nil {
		t.Fatalf("expected error for empty OID")
	}
}

func TestParseStripsLeadingDot(t *testing.T) {
	o, err := Parse(".1.3.6.1.2.1.1.1.0")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if o.String() != "1.3.6.1.2.1.1.1.0" {
		t.Fatalf("got %q", o.String())
	}
}
