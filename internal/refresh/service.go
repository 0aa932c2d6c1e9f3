package refresh

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/darmiel/paytrust/internal/core"
	"github.com/darmiel/paytrust/internal/logging"
	"github.com/darmiel/paytrust/internal/tasks"
)

const (
	// TaskName is the name of the shared refresh task.
	TaskName = "certificate-refresh"

	DefaultInterval = 60 * time.Minute
)

// Downloader produces a fresh certificate set for one registry key.
type Downloader func(ctx context.Context) ([]core.Certificate, error)

// Job is a registered downloader.
type Job struct {
	Key        core.RegistryKey
	Downloader Downloader

	generation uint64
}

// state is what the service keeps per key. snapshot is swapped atomically,
// the failure bookkeeping is guarded by mu.
type state struct {
	snapshot atomic.Pointer[Snapshot]

	mu          sync.Mutex
	lastAttempt time.Time
	lastError   string
	failures    int
}

// Service periodically repopulates certificate sets through registered
// downloaders. All jobs run sequentially on one shared task.
//
// Lifecycle operations (Register, Unregister, Shutdown) must be serialised
// by the caller; reads are safe at any time.
type Service struct {
	mu         sync.RWMutex
	jobs       map[core.RegistryKey]Job
	states     map[core.RegistryKey]*state
	generation uint64

	task     *tasks.Task
	interval time.Duration
	metrics  *Metrics
	now      func() time.Time
}

type Option func(*Service)

// WithInterval sets the interval used when Register starts the scheduler.
func WithInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithClock replaces time.Now for fetch timestamps and staleness checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		jobs:     make(map[core.RegistryKey]Job),
		states:   make(map[core.RegistryKey]*state),
		interval: DefaultInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.task = tasks.NewTask(TaskName, s.tick)
	return s
}

// Task returns the scheduler task, e.g. to add it to a tasks.Manager.
func (s *Service) Task() *tasks.Task {
	return s.task
}

// Register downloads the certificate set for key on the calling goroutine.
// If the download fails (or yields no certificates) the error is returned and
// neither the job nor the scheduler is touched. On success the set is
// published, the job replaces any previous job for key and the scheduler is
// started if it is not running yet.
func (s *Service) Register(ctx context.Context, key core.RegistryKey, downloader Downloader) error {
	if downloader == nil {
		return core.Configurationf("no downloader given for %s", key)
	}

	certificates, err := s.download(ctx, key, downloader)
	if err != nil {
		return fmt.Errorf("initial certificate download for %s: %w", key, err)
	}

	// the set is published before the job becomes visible to a tick, so a
	// tick of this generation always publishes after it
	s.mu.Lock()
	s.generation++
	job := Job{Key: key, Downloader: downloader, generation: s.generation}
	s.jobs[key] = job
	s.publish(s.stateLocked(key), key, certificates)
	s.mu.Unlock()

	log.Info().
		Str("key", key.String()).
		Int("certificates", len(certificates)).
		Msg("registered certificate refresh job")

	s.Start(s.interval)
	return nil
}

// Unregister removes the job for key. Certificates already downloaded for
// key stay readable until Shutdown.
func (s *Service) Unregister(key core.RegistryKey) {
	s.mu.Lock()
	delete(s.jobs, key)
	s.mu.Unlock()
}

// Start schedules the periodic refresh. If the scheduler is already running
// it keeps its original interval.
func (s *Service) Start(interval time.Duration) {
	if s.task.Start(interval) {
		log.Info().Dur("interval", interval).Msg("started certificate refresh")
	}
}

// Refresh runs one tick now. It returns tasks.ErrAlreadyRunning if a tick is
// in progress, otherwise the joined download errors of this tick.
func (s *Service) Refresh(ctx context.Context) error {
	return s.task.RunContext(ctx)
}

// Shutdown stops the scheduler and drops all jobs and certificates.
func (s *Service) Shutdown() {
	s.task.Stop()

	s.mu.Lock()
	s.jobs = make(map[core.RegistryKey]Job)
	s.states = make(map[core.RegistryKey]*state)
	s.mu.Unlock()

	s.metrics.reset()
	log.Info().Msg("certificate refresh shut down")
}

// Certificate looks serial up in the latest snapshot for key.
func (s *Service) Certificate(key core.RegistryKey, serial string) (core.Certificate, bool) {
	snap := s.Snapshot(key)
	if snap == nil {
		return core.Certificate{}, false
	}
	return snap.Certificate(serial)
}

// AvailableCertificate returns the certificate with the latest expiry in the
// latest snapshot for key.
func (s *Service) AvailableCertificate(key core.RegistryKey) (core.Certificate, bool) {
	snap := s.Snapshot(key)
	if snap == nil {
		return core.Certificate{}, false
	}
	return snap.AvailableCertificate(), true
}

// Snapshot returns the latest published snapshot for key, or nil.
func (s *Service) Snapshot(key core.RegistryKey) *Snapshot {
	s.mu.RLock()
	st, ok := s.states[key]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	return st.snapshot.Load()
}

func (s *Service) tick(ctx context.Context, logger logging.InternalLogger) error {
	s.mu.RLock()
	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	s.mu.RUnlock()

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Key.String() < jobs[j].Key.String()
	})

	logger.Info("refreshing certificates for %d key(s)", len(jobs))

	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		certificates, err := s.download(ctx, job.Key, job.Downloader)
		if err != nil {
			logger.Error("refreshing %s failed after %s, keeping cached certificates: %v",
				job.Key, time.Since(start), err)
			errs = append(errs, fmt.Errorf("%s: %w", job.Key, err))
			continue
		}

		s.mu.Lock()
		current, registered := s.jobs[job.Key]
		stillCurrent := registered && current.generation == job.generation
		if stillCurrent {
			s.publish(s.stateLocked(job.Key), job.Key, certificates)
		}
		s.mu.Unlock()

		if !stillCurrent {
			// unregistered or re-registered while downloading
			logger.Warn("dropping certificates for %s: job changed during refresh", job.Key)
			continue
		}
		logger.Info("refreshed %s: %d certificate(s) in %s", job.Key, len(certificates), time.Since(start))
	}
	return errors.Join(errs...)
}

// download runs the downloader and records the attempt. A download without
// certificates counts as a failure so a published set is never empty.
func (s *Service) download(ctx context.Context, key core.RegistryKey, downloader Downloader) ([]core.Certificate, error) {
	start := time.Now()
	certificates, err := downloader(ctx)
	if err == nil && len(certificates) == 0 {
		err = errors.New("downloader returned no certificates")
	}
	s.metrics.observe(key, time.Since(start), s.now(), err)

	if err != nil {
		s.mu.RLock()
		st, ok := s.states[key]
		s.mu.RUnlock()
		if ok {
			st.mu.Lock()
			st.lastAttempt = s.now()
			st.lastError = err.Error()
			st.failures++
			st.mu.Unlock()
		}
		return nil, err
	}
	return certificates, nil
}

// publish swaps in a new snapshot for key. s.mu must be held so a publish is
// ordered against registration.
func (s *Service) publish(st *state, key core.RegistryKey, certificates []core.Certificate) {
	now := s.now()
	st.snapshot.Store(newSnapshot(key, certificates, now))

	st.mu.Lock()
	st.lastAttempt = now
	st.lastError = ""
	st.failures = 0
	st.mu.Unlock()
}

// stateLocked returns the state for key, creating it. s.mu must be held.
func (s *Service) stateLocked(key core.RegistryKey) *state {
	st, ok := s.states[key]
	if !ok {
		st = &state{}
		s.states[key] = st
	}
	return st
}
