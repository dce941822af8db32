package pool

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/snmpfleet/simulator/internal/oid"
	"github.com/snmpfleet/simulator/internal/portassign"
	"github.com/snmpfleet/simulator/internal/profile"
)

type fakeRecorder struct {
	mu    sync.Mutex
	open  map[string]int
	reaps []string
}

func newFakeRecorder() *fakeRecorder { return &fakeRecorder{open: make(map[string]int)} }

func (f *fakeRecorder) SetDevicesOpen(deviceType string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open[deviceType] = n
}

func (f *fakeRecorder) ObserveReap(deviceType string, cause string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reaps = append(f.reaps, deviceType)
}

func (f *fakeRecorder) reapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.reaps)
}

func (f *fakeRecorder) openCount(deviceType string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[deviceType]
}

func freePort(t *testing.T) int {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0, IP: net.ParseIP("127.0.0.1")})
	if err != nil {
		t.Fatalf("freePort: %v", err)
	}
	port := conn.LocalAddr().(*net.UDPAddr).Port
	_ = conn.Close()
	return port
}

func newTestPool(t *testing.T, port, maxDevices int, idleTTL time.Duration) (*Pool, *fakeRecorder) {
	t.Helper()
	store := profile.NewStore()
	if err := store.Load("cable_modem", []profile.Record{
		{OID: oid.MustParse("1.3.6.1.2.1.1.1.0"), Type: profile.TypeOctetString, Value: "x"},
	}); err != nil {
		t.Fatalf("store.Load() error = %v", err)
	}
	table, err := portassign.New([]portassign.Range{{Start: port, End: port, DeviceType: "cable_modem"}})
	if err != nil {
		t.Fatalf("portassign.New() error = %v", err)
	}
	rec := newFakeRecorder()
	p := New(Config{
		ListenAddr: "127.0.0.1",
		MaxDevices: maxDevices,
		IdleTTL:    idleTTL,
		Community:  "public",
		Assign:     table,
		Store:      store,
		Recorder:   rec,
	})
	return p, rec
}

func TestGetOrCreateRejectsUnassignedPort(t *testing.T) {
	p, _ := newTestPool(t, freePort(t), 10, time.Minute)
	_, err := p.GetOrCreate(1)
	if !errors.Is(err, ErrUnassignedPort) {
		t.Fatalf("err = %v, want ErrUnassignedPort", err)
	}
}

func TestGetOrCreateMaterializesAndReuses(t *testing.T) {
	port := freePort(t)
	p, rec := newTestPool(t, port, 10, time.Minute)
	defer p.Stop()

	dev1, err := p.GetOrCreate(port)
	if err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	if dev1.Port() != port {
		t.Fatalf("Port() = %d, want %d", dev1.Port(), port)
	}
	if got := rec.openCount("cable_modem"); got != 1 {
		t.Fatalf("SetDevicesOpen observed %d, want 1", got)
	}

	dev2, err := p.GetOrCreate(port)
	if err != nil {
		t.Fatalf("GetOrCreate() second call error = %v", err)
	}
	if dev1 != dev2 {
		t.Fatalf("GetOrCreate() returned a different device on second call")
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", p.Len())
	}
}

func TestCapacityExceededWithNoIdleDevice(t *testing.T) {
	portA := freePort(t)
	p, _ := newTestPool(t, portA, 1, time.Hour)
	defer p.Stop()
	portB := portA + 1

	// widen the table to cover both ports
	table, _ := portassign.New([]portassign.Range{{Start: portA, End: portB, DeviceType: "cable_modem"}})
	p.assign = table

	if _, err := p.GetOrCreate(portA); err != nil {
		t.Fatalf("GetOrCreate(portA) error = %v", err)
	}
	_, err := p.GetOrCreate(portB)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestEvictsLRUWhenPastIdleTTL(t *testing.T) {
	portA := freePort(t)
	portB := portA + 1
	p, rec := newTestPool(t, portA, 1, 10*time.Millisecond)
	defer p.Stop()
	table, _ := portassign.New([]portassign.Range{{Start: portA, End: portB, DeviceType: "cable_modem"}})
	p.assign = table

	if _, err := p.GetOrCreate(portA); err != nil {
		t.Fatalf("GetOrCreate(portA) error = %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if _, err := p.GetOrCreate(portB); err != nil {
		t.Fatalf("GetOrCreate(portB) error = %v, want eviction of idle portA to free capacity", err)
	}
	if p.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after eviction", p.Len())
	}
	if got := rec.reapCount(); got != 1 {
		t.Fatalf("ObserveReap call count = %d, want 1", got)
	}
}

func TestSweeperReapsIdleDevices(t *testing.T) {
	port := freePort(t)
	p, rec := newTestPool(t, port, 10, 20*time.Millisecond)
	if _, err := p.GetOrCreate(port); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.Len() == 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after sweeper reaps idle device", p.Len())
	}
	if rec.reapCount() == 0 {
		t.Fatalf("expected at least one sweeper reap to be observed")
	}
}

// TestStartBindsRangeAndAnswersFirstPacket exercises the real end-to-end
// path: Start binds a listener for the configured range with no device
// materialized yet, and the very first inbound datagram on that port —
// sent here the way an actual SNMP manager would, over a UDP socket —
// must reactively materialize the device and get a real answer back.
func TestStartBindsRangeAndAnswersFirstPacket(t *testing.T) {
	port := freePort(t)
	p, rec := newTestPool(t, port, 10, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer p.Stop()

	if p.Len() != 0 {
		t.Fatalf("Len() = %d before any packet, want 0 (lazy materialization)", p.Len())
	}

	req := &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: "public",
		PDUType:   gosnmp.GetRequest,
		RequestID: 1,
		Variables: []gosnmp.SnmpPDU{{Name: "1.3.6.1.2.1.1.1.0", Type: gosnmp.Null}},
	}
	data, err := req.MarshalMsg()
	if err != nil {
		t.Fatalf("MarshalMsg() error = %v", err)
	}

	conn, err := net.Dial("udp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 4096)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v (listener never bound or never answered)", err)
	}

	g := gosnmp.GoSNMP{Version: gosnmp.Version2c, Community: "public"}
	resp, err := g.SnmpDecodePacket(buf[:n])
	if err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != gosnmp.NoError {
		t.Fatalf("Error = %v, want NoError", resp.Error)
	}
	if len(resp.Variables) != 1 || resp.Variables[0].Value != "x" {
		t.Fatalf("Variables = %+v, want [x]", resp.Variables)
	}

	if p.Len() != 1 {
		t.Fatalf("Len() = %d after first packet, want 1 (reactive materialization)", p.Len())
	}
	if got := rec.openCount("cable_modem"); got != 1 {
		t.Fatalf("SetDevicesOpen observed %d, want 1", got)
	}
}

func TestStopClosesAllSockets(t *testing.T) {
	port := freePort(t)
	p, _ := newTestPool(t, port, 10, time.Minute)
	if _, err := p.GetOrCreate(port); err != nil {
		t.Fatalf("GetOrCreate() error = %v", err)
	}
	p.Stop()
	if p.Len() != 0 {
		t.Fatalf("Len() = %d after Stop(), want 0", p.Len())
	}
	if _, err := p.GetOrCreate(port); !errors.Is(err, ErrClosed) {
		t.Fatalf("GetOrCreate() after Stop() error = %v, want ErrClosed", err)
	}
}
