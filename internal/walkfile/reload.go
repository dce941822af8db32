package walkfile

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/snmpfleet/simulator/internal/profile"
)

// ReloadTarget is one device type's walk file, reloaded on its own cron
// schedule into store.
type ReloadTarget struct {
	DeviceType string
	Path       string
	CronSpec   string // empty means "load once at startup, never again"
}

// Scheduler periodically re-parses walk files and republishes them into a
// profile.Store. It repurposes the teacher's trap-scheduling use of
// robfig/cron (internal/traps/traps.go's Manager.cron) for a different
// domain event: instead of firing a trap on a schedule, it fires a reload.
type Scheduler struct {
	store *profile.Store
	cron  *cron.Cron

	mu   sync.Mutex
	errs map[string]error // last reload error per device type, if any
}

// NewScheduler builds a Scheduler bound to store. Call LoadOnce for every
// target first, then Add for any target carrying a cron spec, then Start.
func NewScheduler(store *profile.Store) *Scheduler {
	return &Scheduler{
		store: store,
		cron:  cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		errs:  make(map[string]error),
	}
}

// LoadOnce parses target.Path immediately and publishes it into the store.
// Per-line parse failures are logged and skipped; a file-level read or
// empty-result failure is returned.
func LoadOnce(store *profile.Store, target ReloadTarget) error {
	records, parseErrs := loadFile(target.Path)
	for _, e := range parseErrs {
		var pe *ParseError
		if !errors.As(e, &pe) {
			return fmt.Errorf("walkfile: loading %s from %s: %w", target.DeviceType, target.Path, e)
		}
		log.Printf("walkfile: %s: %v", target.DeviceType, e)
	}
	if err := store.Load(target.DeviceType, records); err != nil {
		return fmt.Errorf("walkfile: loading %s from %s: %w", target.DeviceType, target.Path, err)
	}
	return nil
}

// Add registers target on its cron schedule. Reload errors are retained
// (not fatal to the process) so a broken edit to a walk file degrades to
// "keep serving the last good snapshot" rather than crashing the agent.
func (s *Scheduler) Add(target ReloadTarget) error {
	if strings.TrimSpace(target.CronSpec) == "" {
		return nil
	}
	t := target
	_, err := s.cron.AddFunc(t.CronSpec, func() {
		err := LoadOnce(s.store, t)
		s.mu.Lock()
		s.errs[t.DeviceType] = err
		s.mu.Unlock()
		if err != nil {
			log.Printf("walkfile: scheduled reload of %s failed, keeping previous snapshot: %v", t.DeviceType, err)
		}
	})
	if err != nil {
		return fmt.Errorf("walkfile: invalid cron spec %q for %s: %w", t.CronSpec, t.DeviceType, err)
	}
	return nil
}

// Start begins running scheduled reloads.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for any in-flight reload to finish, then returns.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// LastError returns the most recent reload error for deviceType, if any.
func (s *Scheduler) LastError(deviceType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs[deviceType]
}

func loadFile(path string) (records []profile.Record, errs []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{fmt.Errorf("reading %s: %w", path, err)}
	}
	return Parse(data)
}
