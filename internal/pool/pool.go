// Package pool implements the device pool spec.md §4.6 describes:
// lazy device materialization on first packet to a recognized port, LRU
// eviction once max_devices is reached, and a background sweeper that
// reaps devices idle past idle_ttl.
//
// Grounded on the teacher's internal/engine.Simulator, which instead
// pre-allocates one *agent.VirtualAgent* and one UDP listener per port at
// startup. Pool keeps the teacher's "one socket, one goroutine per device"
// shape (startListener/handleListener in engine/simulator.go), but splits
// it in two: Start binds a socket for every port in the configured
// port-assignment ranges (UDP requires a bound socket to receive anything
// at all, so this part cannot be deferred), while the *device* behind a
// given socket — its profile lookups and simulation state, the thing
// max_devices and idle_ttl actually govern — is materialized lazily, on
// that port's first inbound packet, via GetOrCreate. Idle-TTL/LRU
// eviction only ever discards the device bookkeeping; the listening
// socket outlives it and can re-materialize a fresh device on the next
// packet without re-binding.
package pool

import (
	"context"
	"fmt"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/snmpfleet/simulator/internal/device"
	"github.com/snmpfleet/simulator/internal/portassign"
	"github.com/snmpfleet/simulator/internal/profile"
)

// Recorder observes pool-level lifecycle events for metrics export.
type Recorder interface {
	SetDevicesOpen(deviceType string, count int)
	ObserveReap(deviceType string, cause string)
}

const (
	reapCauseIdleTTL     = "idle_ttl"
	reapCauseLRUCapacity = "lru_capacity"
)

type nopRecorder struct{}

func (nopRecorder) SetDevicesOpen(string, int) {}
func (nopRecorder) ObserveReap(string, string) {}

// Config configures a Pool.
type Config struct {
	ListenAddr     string
	MaxDevices     int
	IdleTTL        time.Duration
	Community      string
	Assign         *portassign.Table
	Store          *profile.Store
	Recorder       Recorder
	DeviceRecorder device.Recorder
}

// entry is a materialized device. conn/cancel are only set when this
// entry bound its own socket (the standalone-GetOrCreate path); an entry
// backed by one of Start's pre-bound range listeners leaves them nil and
// ownsSocket false, since that socket belongs to the listener, not to
// this device's lifetime.
type entry struct {
	dev          *device.Device
	deviceType   string
	lastActivity time.Time
	ownsSocket   bool
	conn         *net.UDPConn
	cancel       context.CancelFunc
}

// rangeListener is a socket bound for the lifetime of the Pool, serving
// one port of a configured port-assignment range independently of
// whether a device behind it is ever idle-reaped.
type rangeListener struct {
	conn   *net.UDPConn
	cancel context.CancelFunc
}

// Pool is the live set of materialized devices, keyed by port.
type Pool struct {
	listenAddr string
	maxDevices int
	idleTTL    time.Duration
	community  string
	assign     *portassign.Table
	store      *profile.Store
	rec        Recorder
	devRec     device.Recorder

	mu        sync.Mutex
	live      map[int]*entry
	listeners map[int]*rangeListener
	seenTypes map[string]struct{}
	wg        sync.WaitGroup
	closed    bool
	stopCh    chan struct{}
}

// New builds a Pool. Devices are not created at construction time —
// Start binds a socket for every port in the configured port-assignment
// ranges, and each socket lazily materializes its device (via
// GetOrCreate) on its first inbound packet. GetOrCreate can also be
// called directly against a Pool that never had Start's range-binding
// pass run, in which case it binds its own socket on demand instead of
// reusing a pre-bound one; this is the path this package's tests use.
func New(cfg Config) *Pool {
	rec := cfg.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0"
	}
	if cfg.Community == "" {
		cfg.Community = "public"
	}
	return &Pool{
		listenAddr: cfg.ListenAddr,
		maxDevices: cfg.MaxDevices,
		idleTTL:    cfg.IdleTTL,
		community:  cfg.Community,
		assign:     cfg.Assign,
		store:      cfg.Store,
		rec:        rec,
		devRec:     cfg.DeviceRecorder,
		live:       make(map[int]*entry),
		listeners:  make(map[int]*rangeListener),
		seenTypes:  make(map[string]struct{}),
		stopCh:     make(chan struct{}),
	}
}

// reportCounts publishes the current per-device-type open count for every
// device type this pool has ever materialized, zeroing types that have
// since gone fully idle so their gauge doesn't stick at a stale value.
func (p *Pool) reportCounts() {
	p.mu.Lock()
	counts := make(map[string]int, len(p.seenTypes))
	for t := range p.seenTypes {
		counts[t] = 0
	}
	for _, e := range p.live {
		counts[e.deviceType]++
	}
	p.mu.Unlock()

	for t, n := range counts {
		p.rec.SetDevicesOpen(t, n)
	}
}

// Start binds a UDP socket for every port in the pool's configured
// port-assignment ranges and launches the idle sweeper. Each bound
// socket's receive loop routes inbound datagrams through GetOrCreate,
// materializing the device behind a port on its first packet, then
// dispatches to device.HandlePacket. The sweeper runs every idle_ttl/4,
// per spec.md §4.6, matching the teacher's handleListener
// ticker-based shutdown-select idiom repurposed here for periodic
// reaping instead of ctx.Done().
func (p *Pool) Start(ctx context.Context) error {
	if err := p.bindConfiguredRanges(ctx); err != nil {
		return err
	}

	interval := p.idleTTL / 4
	if interval <= 0 {
		interval = time.Second
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stopCh:
				return
			case <-ticker.C:
				p.sweep()
			}
		}
	}()
	return nil
}

// bindConfiguredRanges opens a listener for every port named by the
// pool's portassign.Table, skipping any port that already has a listener
// or an already-materialized (necessarily self-bound) device.
func (p *Pool) bindConfiguredRanges(ctx context.Context) error {
	for _, r := range p.assign.Ranges() {
		for port := r.Start; port <= r.End; port++ {
			if err := p.listenPort(ctx, port); err != nil {
				return fmt.Errorf("listen port %d: %w", port, err)
			}
		}
	}
	return nil
}

func (p *Pool) listenPort(ctx context.Context, port int) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if _, ok := p.listeners[port]; ok {
		p.mu.Unlock()
		return nil
	}
	if _, ok := p.live[port]; ok {
		// Already self-bound by a direct GetOrCreate call; nothing to do.
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	conn, err := p.bind(port)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBindFailed, err)
	}
	lctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		_ = conn.Close()
		return ErrClosed
	}
	p.listeners[port] = &rangeListener{conn: conn, cancel: cancel}
	p.mu.Unlock()

	p.wg.Add(1)
	go p.acceptLoop(lctx, port, conn)
	return nil
}

// acceptLoop is the receive loop for a pre-bound range listener. It never
// owns a device directly; every inbound datagram goes through
// GetOrCreate so capacity/eviction accounting stays centralized in one
// place regardless of whether a device was materialized reactively here
// or by a direct GetOrCreate call.
func (p *Pool) acceptLoop(ctx context.Context, port int, conn *net.UDPConn) {
	defer p.wg.Done()
	buf := make([]byte, 4096)

	readTimeout := p.idleTTL / 4
	if readTimeout <= 0 || readTimeout > time.Second {
		readTimeout = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		dev, err := p.GetOrCreate(port)
		if err != nil {
			log.Printf("pool: port %d: %v", port, err)
			continue
		}
		resp := dev.HandlePacket(buf[:n])
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDP(resp, addr); err != nil {
			log.Printf("pool: write to port %d failed: %v", port, err)
		}
	}
}

// Stop closes every live self-bound device socket, every range listener,
// and waits for their goroutines and the sweeper to exit.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.stopCh)
	for port, e := range p.live {
		if e.ownsSocket {
			e.cancel()
			_ = e.conn.Close()
		}
		delete(p.live, port)
	}
	for port, l := range p.listeners {
		l.cancel()
		_ = l.conn.Close()
		delete(p.listeners, port)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// GetOrCreate returns the device bound to port, refreshing its
// last_activity, materializing it on first use if the port is assigned a
// device type by the pool's portassign.Table. If port already has a
// range listener bound by Start, the new device reuses that socket;
// otherwise GetOrCreate binds its own, so this method works standalone
// against a Pool that never had Start called against it.
func (p *Pool) GetOrCreate(port int) (*device.Device, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := p.live[port]; ok {
		e.lastActivity = time.Now()
		dev := e.dev
		p.mu.Unlock()
		return dev, nil
	}

	deviceType, ok := p.assign.DeviceType(port)
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: port %d", ErrUnassignedPort, port)
	}

	if len(p.live) >= p.maxDevices {
		if !p.evictLRULocked() {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: max_devices=%d", ErrCapacityExceeded, p.maxDevices)
		}
	}
	_, hasListener := p.listeners[port]
	p.mu.Unlock()

	var (
		conn   *net.UDPConn
		cancel context.CancelFunc
		ctx    context.Context
	)
	owns := !hasListener
	if owns {
		c, err := p.bind(port)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBindFailed, err)
		}
		conn = c
		ctx, cancel = context.WithCancel(context.Background())
	}

	dev := device.New(device.Config{
		ID:         fmt.Sprintf("%s-%d", deviceType, port),
		Port:       port,
		DeviceType: deviceType,
		Community:  p.community,
		SysName:    fmt.Sprintf("%s-%d", deviceType, port),
	}, p.store, p.devRec)

	e := &entry{dev: dev, deviceType: deviceType, lastActivity: time.Now(), ownsSocket: owns, conn: conn, cancel: cancel}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		if owns {
			cancel()
			_ = conn.Close()
		}
		return nil, ErrClosed
	}
	// Another caller may have raced us to create the same port; keep the
	// first winner and discard our listener.
	if existing, ok := p.live[port]; ok {
		p.mu.Unlock()
		if owns {
			cancel()
			_ = conn.Close()
		}
		existing.lastActivity = time.Now()
		return existing.dev, nil
	}
	p.live[port] = e
	p.seenTypes[deviceType] = struct{}{}
	p.mu.Unlock()
	p.reportCounts()

	if owns {
		p.wg.Add(1)
		go p.serve(ctx, conn, e)
	}

	return dev, nil
}

// evictLRULocked evicts the idle device with the oldest last_activity
// that is past idle_ttl. Caller holds p.mu. Returns false if no device
// qualifies for eviction (spec.md §4.6: fail with capacity_exceeded).
func (p *Pool) evictLRULocked() bool {
	cutoff := time.Now().Add(-p.idleTTL)
	var lruPort int
	var lruEntry *entry
	for port, e := range p.live {
		if e.lastActivity.After(cutoff) {
			continue
		}
		if lruEntry == nil || e.lastActivity.Before(lruEntry.lastActivity) {
			lruPort, lruEntry = port, e
		}
	}
	if lruEntry == nil {
		return false
	}
	if lruEntry.ownsSocket {
		lruEntry.cancel()
		_ = lruEntry.conn.Close()
	}
	delete(p.live, lruPort)
	p.rec.ObserveReap(lruEntry.deviceType, reapCauseLRUCapacity)
	return true
}

// sweep reaps every device whose last_activity predates now - idle_ttl.
func (p *Pool) sweep() {
	p.mu.Lock()
	cutoff := time.Now().Add(-p.idleTTL)
	var reaped []*entry
	for port, e := range p.live {
		if e.lastActivity.Before(cutoff) {
			reaped = append(reaped, e)
			delete(p.live, port)
		}
	}
	p.mu.Unlock()

	for _, e := range reaped {
		if e.ownsSocket {
			e.cancel()
			_ = e.conn.Close()
		}
		p.rec.ObserveReap(e.deviceType, reapCauseIdleTTL)
	}
	if len(reaped) > 0 {
		p.reportCounts()
	}
}

// serve is the per-device receive loop for a self-bound device (the
// standalone-GetOrCreate path, used by this package's tests and by any
// device materialized against a Pool without a range listener for its
// port), mirroring the teacher's handleListener.
func (p *Pool) serve(ctx context.Context, conn *net.UDPConn, e *entry) {
	defer p.wg.Done()
	buf := make([]byte, 4096)

	readTimeout := p.idleTTL / 4
	if readTimeout <= 0 || readTimeout > time.Second {
		readTimeout = time.Second
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		p.mu.Lock()
		e.lastActivity = time.Now()
		p.mu.Unlock()

		resp := e.dev.HandlePacket(buf[:n])
		if resp == nil {
			continue
		}
		if _, err := conn.WriteToUDP(resp, addr); err != nil {
			log.Printf("pool: write to port %d failed: %v", e.dev.Port(), err)
		}
	}
}

// bind opens a UDP listener on port with the same SO_RCVBUF/SO_SNDBUF/
// SO_REUSEPORT tuning as the teacher's setSocketOptions.
func (p *Pool) bind(port int) (*net.UDPConn, error) {
	addr := net.UDPAddr{Port: port, IP: net.ParseIP(p.listenAddr)}
	conn, err := net.ListenUDP("udp", &addr)
	if err != nil {
		return nil, fmt.Errorf("listen on port %d: %w", port, err)
	}
	if err := setSocketOptions(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("set socket options on port %d: %w", port, err)
	}
	return conn, nil
}

// setSocketOptions tunes receive/send buffers and enables SO_REUSEPORT
// where available, identical to the teacher's internal/engine helper of
// the same name.
func setSocketOptions(conn *net.UDPConn) error {
	rawConn, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("raw conn: %w", err)
	}

	var setsockoptErr error
	err = rawConn.Control(func(fd uintptr) {
		ifd := int(fd)
		if err := syscall.SetsockoptInt(ifd, syscall.SOL_SOCKET, syscall.SO_RCVBUF, 256*1024); err != nil {
			setsockoptErr = fmt.Errorf("SO_RCVBUF: %w", err)
			return
		}
		if err := syscall.SetsockoptInt(ifd, syscall.SOL_SOCKET, syscall.SO_SNDBUF, 256*1024); err != nil {
			setsockoptErr = fmt.Errorf("SO_SNDBUF: %w", err)
			return
		}
		if err := syscall.SetsockoptInt(ifd, syscall.SOL_SOCKET, int(unix.SO_REUSEPORT), 1); err != nil {
			log.Printf("pool: SO_REUSEPORT not available: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("rawConn.Control: %w", err)
	}
	return setsockoptErr
}

// Len reports the current number of live devices.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.live)
}
