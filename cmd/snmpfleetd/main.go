// Command snmpfleetd is the daemon that wires internal/pool,
// internal/profile, internal/portassign, internal/walkfile,
// internal/metrics, and internal/adminhttp together and runs them until a
// shutdown signal arrives. It is the only place in this repository that
// touches flags, env vars, signal handling, and process lifecycle — the
// same separation the teacher draws between cmd/snmpsim/main.go (OS
// concerns) and internal/engine.Simulator (the actual simulator).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/snmpfleet/simulator/internal/adminhttp"
	"github.com/snmpfleet/simulator/internal/metrics"
	"github.com/snmpfleet/simulator/internal/pool"
	"github.com/snmpfleet/simulator/internal/portassign"
	"github.com/snmpfleet/simulator/internal/profile"
	"github.com/snmpfleet/simulator/internal/walkfile"
)

// keyValueSliceFlag collects repeatable "key=value" flags, adapted from
// the teacher's stringSliceFlag repeatable-flag idiom in
// cmd/snmpsim/main.go (there a plain string list; here a map, since every
// caller needs key lookup by device type).
type keyValueSliceFlag map[string]string

func (f keyValueSliceFlag) String() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (f keyValueSliceFlag) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected device_type=value, got %q", value)
	}
	f[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	if len(os.Args) < 2 || strings.HasPrefix(os.Args[1], "-") {
		fmt.Fprintln(os.Stderr, "usage: snmpfleetd start [flags]")
		os.Exit(2)
	}
	switch os.Args[1] {
	case "start":
		runStart(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q; usage: snmpfleetd start [flags]\n", os.Args[1])
		os.Exit(2)
	}
}

func runStart(args []string) {
	fs := flag.NewFlagSet("start", flag.ExitOnError)

	host := fs.String("host", envOr("HOST", "0.0.0.0"), "UDP listen address for simulated devices")
	portStart := fs.Int("port-range-start", envOrInt("PORT_RANGE_START", 30000), "first port in the device port range")
	portEnd := fs.Int("port-range-end", envOrInt("PORT_RANGE_END", 37999), "last port in the device port range")
	maxDevices := fs.Int("max-devices", envOrInt("MAX_DEVICES", 1000), "maximum number of concurrently live devices")
	maxMemoryMB := fs.Int("max-memory-mb", envOrInt("MAX_MEMORY_MB", 0), "soft memory limit in MB (0 disables)")
	logLevel := fs.String("log-level", envOr("LOG_LEVEL", "info"), "debug|info|warn|error")
	idleTTL := fs.Duration("idle-ttl", 5*time.Minute, "idle duration after which a device is reaped")
	community := fs.String("community", "public", "read-community string every device checks requests against")
	portAssignFile := fs.String("port-assign", "", "path to a port-range->device-type YAML file (default: 30000-37999 -> cable_modem)")
	adminAddr := fs.String("admin-addr", "127.0.0.1:9116", "address for /healthz, /metrics, /stats")
	reloadCronDefault := fs.String("reload-cron", "", "default cron spec applied to every --profile entry unless overridden by --reload-cron-for")

	profiles := make(keyValueSliceFlag)
	fs.Var(profiles, "profile", "device_type=walk_file, repeatable; loaded before the pool starts")
	reloadCronFor := make(keyValueSliceFlag)
	fs.Var(reloadCronFor, "reload-cron-for", "device_type=cron_spec, repeatable; overrides --reload-cron for one device type")

	if err := fs.Parse(args); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	setLogLevel(*logLevel)

	if *maxMemoryMB > 0 {
		debug.SetMemoryLimit(int64(*maxMemoryMB) * 1024 * 1024)
		log.Printf("soft memory limit set to %d MB", *maxMemoryMB)
	}

	if *portStart >= *portEnd {
		log.Fatalf("port-range-start (%d) must be less than port-range-end (%d)", *portStart, *portEnd)
	}
	checkFileDescriptors(*portEnd - *portStart + 1)

	assign, err := loadPortAssign(*portAssignFile)
	if err != nil {
		log.Fatalf("load port assignment: %v", err)
	}

	store := profile.NewStore()
	if err := loadInitialProfiles(store, profiles); err != nil {
		log.Fatalf("load initial profiles: %v", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	p := pool.New(pool.Config{
		ListenAddr:     *host,
		MaxDevices:     *maxDevices,
		IdleTTL:        *idleTTL,
		Community:      *community,
		Assign:         assign,
		Store:          store,
		Recorder:       m,
		DeviceRecorder: m,
	})

	scheduler := startReloadScheduler(store, profiles, reloadCronFor, *reloadCronDefault, m)
	if scheduler != nil {
		defer scheduler.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := p.Start(ctx); err != nil {
		log.Fatalf("start device pool: %v", err)
	}

	admin := adminhttp.New(*adminAddr, reg, p)
	go func() {
		log.Printf("admin endpoint listening on http://%s (/healthz, /metrics, /stats)", *adminAddr)
		if err := admin.ListenAndServe(); err != nil {
			log.Printf("admin endpoint error: %v", err)
		}
	}()

	log.Printf("snmpfleetd started: host=%s ports=%d-%d max_devices=%d idle_ttl=%s community=%s",
		*host, *portStart, *portEnd, *maxDevices, *idleTTL, *community)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Printf("received signal %v, shutting down", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		log.Printf("admin endpoint shutdown error: %v", err)
	}

	cancel()
	p.Stop()
	log.Printf("shutdown complete")
}

// loadPortAssign reads a YAML port-assignment file, or falls back to the
// built-in 30000-37999 -> cable_modem default spec.md §6 shows.
func loadPortAssign(path string) (*portassign.Table, error) {
	if path == "" {
		return portassign.Default(), nil
	}
	return portassign.Load(path)
}

// loadInitialProfiles runs profile.Store.Load for every --profile
// device_type=walk_file pair before the pool starts serving. spec.md §6
// names a `load-profile <type> <walk-file>` CLI command; a one-shot
// client talking to an already-running single-process daemon has nothing
// to connect to, so this flag is the startup-time equivalent.
func loadInitialProfiles(store *profile.Store, profiles keyValueSliceFlag) error {
	for deviceType, path := range profiles {
		records, errs := walkfile.Parse(mustReadFile(path))
		for _, e := range errs {
			log.Printf("warning: %s: %v", path, e)
		}
		if err := store.Load(deviceType, records); err != nil {
			return fmt.Errorf("device type %s (%s): %w", deviceType, path, err)
		}
		log.Printf("loaded profile %s from %s (%d records)", deviceType, path, len(records))
	}
	return nil
}

// startReloadScheduler wires internal/walkfile.Scheduler for every
// --profile entry that has a cron spec, either per-device-type
// (--reload-cron-for) or the shared --reload-cron default.
func startReloadScheduler(store *profile.Store, profiles, reloadCronFor keyValueSliceFlag, defaultCron string, m *metrics.Metrics) *walkfile.Scheduler {
	scheduler := walkfile.NewScheduler(store)
	registered := false
	for deviceType, path := range profiles {
		cronSpec := defaultCron
		if override, ok := reloadCronFor[deviceType]; ok {
			cronSpec = override
		}
		if cronSpec == "" {
			continue
		}
		if err := scheduler.Add(walkfile.ReloadTarget{DeviceType: deviceType, Path: path, CronSpec: cronSpec}); err != nil {
			log.Printf("warning: could not schedule reload for %s: %v", deviceType, err)
			continue
		}
		registered = true
		log.Printf("scheduled reload for %s (%s) on %q", deviceType, path, cronSpec)
	}
	if !registered {
		return nil
	}
	scheduler.Start()
	go watchReloadErrors(scheduler, profiles, m)
	return scheduler
}

// watchReloadErrors polls the scheduler's last-known error per device type
// and records it to metrics. The scheduler itself only logs its own
// failures; this closes the loop to ObserveReloadError for operators
// watching Prometheus instead of logs.
func watchReloadErrors(scheduler *walkfile.Scheduler, profiles keyValueSliceFlag, m *metrics.Metrics) {
	seen := make(map[string]error, len(profiles))
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		for deviceType := range profiles {
			err := scheduler.LastError(deviceType)
			if err != nil && !sameError(seen[deviceType], err) {
				seen[deviceType] = err
				m.ObserveReloadError(deviceType)
				log.Printf("profile reload failed for %s: %v", deviceType, err)
			}
		}
	}
}

func sameError(a, b error) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Error() == b.Error()
}

func mustReadFile(path string) []byte {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}
	return data
}

var debugLogging bool

// setLogLevel keeps the ambient-stack decision to stay on stdlib log
// rather than adopt a leveled logging library the teacher never reaches
// for: "debug" just unlocks a handful of extra log.Printf call sites.
func setLogLevel(level string) {
	debugLogging = strings.EqualFold(level, "debug")
}

func logDebug(format string, args ...interface{}) {
	if debugLogging {
		log.Printf("debug: "+format, args...)
	}
}

// checkFileDescriptors warns if the process's file-descriptor ulimit looks
// too small for the configured port range, identical to the teacher's
// helper of the same name (each device needs one socket fd).
func checkFileDescriptors(requiredFDs int) {
	var rlimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rlimit); err != nil {
		log.Printf("warning: could not check file descriptor limit: %v", err)
		return
	}

	requiredTotal := uint64(requiredFDs) + 100
	if rlimit.Cur < requiredTotal {
		log.Printf("warning: current file descriptor limit (%d) may be insufficient for a %d-port range (%d needed)",
			rlimit.Cur, requiredFDs, requiredTotal)
		log.Printf("increase with: ulimit -n %d", requiredTotal*2)
	} else {
		log.Printf("file descriptor limit OK: %d (need ~%d)", rlimit.Cur, requiredTotal)
	}
}
