// Package scheduler runs the registry of periodic simulation tasks: one
// control loop polling each minute, boundary-aligned cadences, and bounded
// retry on failure.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sharronesofer/visual-dm-sub009/internal/config"
	"github.com/sharronesofer/visual-dm-sub009/internal/npc"
)

// Cadence is how often a task is due.
type Cadence uint8

const (
	Hourly Cadence = iota
	Daily
	Weekly
	Monthly
)

var cadenceNames = [...]string{"hourly", "daily", "weekly", "monthly"}

func (c Cadence) Name() string {
	if int(c) < len(cadenceNames) {
		return cadenceNames[c]
	}
	return "unknown"
}

// TaskFunc is the work a task performs.
type TaskFunc func(ctx context.Context) error

// task is the registry entry. All fields are guarded by the scheduler mutex.
type task struct {
	name    string
	cadence Cadence
	fn      TaskFunc
	enabled bool

	nextRun time.Time
	retryAt time.Time
	retries int

	lastRun    time.Time
	runCount   int
	okCount    int
	errorCount int
	avgDur     time.Duration
}

// TaskStatus is the read-only snapshot of one registry entry.
type TaskStatus struct {
	Name            string        `json:"name"`
	Cadence         string        `json:"cadence"`
	Enabled         bool          `json:"enabled"`
	NextRun         time.Time     `json:"next_run"`
	LastRun         time.Time     `json:"last_run,omitempty"`
	RunCount        int           `json:"run_count"`
	ErrorCount      int           `json:"error_count"`
	AverageDuration time.Duration `json:"average_duration"`
}

// Scheduler owns the task registry and the control loop. All registry access
// is serialized against the loop's due check.
type Scheduler struct {
	tun  config.Tuning
	now  func() time.Time
	poll time.Duration

	mu      sync.Mutex
	tasks   map[string]*task
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New returns an empty scheduler polling at minute granularity.
func New(tun config.Tuning) *Scheduler {
	return &Scheduler{
		tun:   tun,
		now:   time.Now,
		poll:  time.Minute,
		tasks: map[string]*task{},
	}
}

// WithClock overrides the scheduler clock.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Register adds a named task, enabled, due at its next cadence boundary.
func (s *Scheduler) Register(name string, cadence Cadence, fn TaskFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[name]; ok {
		return npc.InvalidStatef("task %q already registered", name)
	}
	s.tasks[name] = &task{
		name:    name,
		cadence: cadence,
		fn:      fn,
		enabled: true,
		nextRun: nextBoundary(s.now(), cadence),
	}
	return nil
}

// nextBoundary aligns the next run to the cadence grid in UTC: top of the
// hour, midnight, Monday midnight, or the first of the month.
func nextBoundary(from time.Time, c Cadence) time.Time {
	from = from.UTC()
	switch c {
	case Hourly:
		return from.Truncate(time.Hour).Add(time.Hour)
	case Daily:
		y, m, d := from.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	case Weekly:
		y, m, d := from.Date()
		midnight := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		days := (int(time.Monday) - int(from.Weekday()) + 7) % 7
		if days == 0 {
			days = 7
		}
		return midnight.AddDate(0, 0, days)
	default:
		y, m, _ := from.Date()
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	}
}

// Start launches the control loop. Starting twice is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return npc.InvalidStatef("scheduler already running")
	}
	s.running = true
	s.stop = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)
	slog.Info("scheduler started", "poll", s.poll)
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.runDue(ctx)
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop halts the control loop and waits for it to exit. In-flight task
// executions finish first.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// runDue executes every enabled task whose schedule or pending retry has
// come due.
func (s *Scheduler) runDue(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	var due []*task
	for _, t := range s.tasks {
		if !t.enabled {
			continue
		}
		if !now.Before(t.nextRun) || (!t.retryAt.IsZero() && !now.Before(t.retryAt)) {
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		s.execute(ctx, t, true)
	}
}

// execute runs one task and folds the outcome into its statistics. With
// reschedule false (manual trigger), the cadence grid is left untouched.
func (s *Scheduler) execute(ctx context.Context, t *task, reschedule bool) {
	started := s.now()
	err := t.fn(ctx)
	dur := s.now().Sub(started)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Every execution counts toward run_count, so it never trails
	// error_count. last_run and the duration average track successes only.
	t.runCount++
	if err != nil {
		t.errorCount++
		if reschedule {
			if t.retries < s.tun.RetryCeiling {
				t.retries++
				t.retryAt = s.now().Add(s.tun.RetryDelay)
				// Only the retry clock gates the rerun; the cadence slot is
				// consumed either way.
				t.nextRun = nextBoundary(s.now(), t.cadence)
				slog.Warn("task failed, retry scheduled",
					"task", t.name, "attempt", t.retries, "retry_at", t.retryAt, "error", err)
			} else {
				// Retries exhausted: stay failed until the next boundary.
				t.retries = 0
				t.retryAt = time.Time{}
				t.nextRun = nextBoundary(s.now(), t.cadence)
				slog.Error("task failed permanently until next cadence",
					"task", t.name, "error", err)
			}
		} else {
			slog.Warn("manual task run failed", "task", t.name, "error", err)
		}
		return
	}

	t.lastRun = started
	t.okCount++
	t.avgDur += (dur - t.avgDur) / time.Duration(t.okCount)
	t.retries = 0
	t.retryAt = time.Time{}
	if reschedule {
		t.nextRun = nextBoundary(started, t.cadence)
	}
	slog.Info("task complete", "task", t.name, "duration", dur, "next_run", t.nextRun)
}

// Enable re-enables a disabled task and realigns its next run.
func (s *Scheduler) Enable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return npc.NotFoundf("task %q", name)
	}
	if t.enabled {
		return npc.InvalidStatef("task %q already enabled", name)
	}
	t.enabled = true
	t.nextRun = nextBoundary(s.now(), t.cadence)
	return nil
}

// Disable stops a task from running; its statistics freeze.
func (s *Scheduler) Disable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[name]
	if !ok {
		return npc.NotFoundf("task %q", name)
	}
	if !t.enabled {
		return npc.InvalidStatef("task %q already disabled", name)
	}
	t.enabled = false
	t.retryAt = time.Time{}
	t.retries = 0
	return nil
}

// Trigger runs a task immediately without touching its cadence. Disabled
// tasks cannot be triggered.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.Lock()
	t, ok := s.tasks[name]
	if !ok {
		s.mu.Unlock()
		return npc.NotFoundf("task %q", name)
	}
	if !t.enabled {
		s.mu.Unlock()
		return npc.InvalidStatef("task %q is disabled", name)
	}
	s.mu.Unlock()

	s.execute(ctx, t, false)
	return nil
}

// Status snapshots every task, sorted by name.
func (s *Scheduler) Status() []TaskStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]TaskStatus, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, TaskStatus{
			Name:            t.name,
			Cadence:         t.cadence.Name(),
			Enabled:         t.enabled,
			NextRun:         t.nextRun,
			LastRun:         t.lastRun,
			RunCount:        t.runCount,
			ErrorCount:      t.errorCount,
			AverageDuration: t.avgDur,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
