package profile

import (
	"errors"
	"sync"
	"testing"

	"github.com/snmpfleet/simulator/internal/oid"
)

func TestStoreGetUnknownDeviceType(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("cable_modem"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("Get() error = %v, want ErrProfileNotFound", err)
	}
}

func TestStoreLoadRejectsEmpty(t *testing.T) {
	s := NewStore()
	if err := s.Load("cable_modem", nil); !errors.Is(err, ErrEmptyProfile) {
		t.Fatalf("Load(nil) error = %v, want ErrEmptyProfile", err)
	}
}

func TestStoreLoadThenGet(t *testing.T) {
	s := NewStore()
	if err := s.Load("cable_modem", []Record{rec("1.3.6.1.2.1.1.1.0", 1)}); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	snap, err := s.Get("cable_modem")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if snap.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", snap.Len())
	}
}

// TestStoreReloadIsAtomic drives concurrent readers against a Store that is
// being reloaded in a tight loop. Every read must see a fully-formed
// Snapshot (never nil, never a torn intermediate), proving the
// atomic.Pointer swap does what spec.md §5 requires: reads never block and
// never observe a partial update.
func TestStoreReloadIsAtomic(t *testing.T) {
	s := NewStore()
	if err := s.Load("cable_modem", []Record{rec("1.3.6.1.2.1.1.1.0", 0)}); err != nil {
		t.Fatalf("initial Load() error = %v", err)
	}

	const iterations = 200
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= iterations; i++ {
			_ = s.Load("cable_modem", []Record{rec("1.3.6.1.2.1.1.1.0", i)})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				snap, err := s.Get("cable_modem")
				if err != nil {
					t.Errorf("Get() error = %v", err)
					return
				}
				if _, ok := snap.Lookup(oid.MustParse("1.3.6.1.2.1.1.1.0")); !ok {
					t.Errorf("Get() returned a Snapshot missing the only loaded OID")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestStoreDeviceTypes(t *testing.T) {
	s := NewStore()
	_ = s.Load("cable_modem", []Record{rec("1.0", 1)})
	_ = s.Load("router", []Record{rec("2.0", 2)})
	types := s.DeviceTypes()
	if len(types) != 2 {
		t.Fatalf("DeviceTypes() = %v, want 2 entries", types)
	}
}
