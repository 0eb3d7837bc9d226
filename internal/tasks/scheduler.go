package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aggx/internal/models"
	"github.com/desertthunder/aggx/internal/shared"
)

// State is where a scheduled job is in its cycle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateBackoff State = "backoff"
)

// Job runs Syncer every Interval, or after Backoff when the previous pass failed.
type Job struct {
	Syncer   FamilySyncer
	Interval time.Duration
	Backoff  time.Duration
}

type jobState struct {
	state   State
	report  *SyncReport
	err     error
	runs    int
	nextRun time.Time
}

// Scheduler drives one goroutine per [Job].
//
// Each job runs immediately on Start and then on its own interval. A pass returning an error,
// or panicking, moves the job to [StateBackoff] until the shorter backoff elapses.
type Scheduler struct {
	mu      sync.RWMutex
	jobs    []Job
	states  map[models.Family]*jobState
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	logger  *log.Logger
}

// NewScheduler creates a scheduler for jobs. Families must be unique.
func NewScheduler(logger *log.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	states := make(map[models.Family]*jobState, len(jobs))
	for _, j := range jobs {
		states[j.Syncer.Family()] = &jobState{state: StateIdle}
	}
	return &Scheduler{
		jobs:   jobs,
		states: states,
		logger: shared.WithLogger(logger, "component", "scheduler"),
	}
}

// Start launches every job. It returns immediately; call [Scheduler.Stop] or cancel ctx to end them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("%w: scheduler already started", shared.ErrInvalidArgument)
	}
	for _, j := range s.jobs {
		if j.Interval <= 0 || j.Backoff <= 0 {
			return fmt.Errorf("%w: %s job needs positive interval and backoff", shared.ErrInvalidConfig, j.Syncer.Family())
		}
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, j)
	}
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop cancels every job and waits for in-flight passes to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

// State returns the current state of family's job. Unknown families report idle.
func (s *Scheduler) State(family models.Family) State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[family]; ok {
		return st.state
	}
	return StateIdle
}

// LastReport returns the report of family's most recent successful pass, or nil.
func (s *Scheduler) LastReport(family models.Family) *SyncReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[family]; ok {
		return st.report
	}
	return nil
}

// LastError returns the error of family's most recent pass, nil when it succeeded.
func (s *Scheduler) LastError(family models.Family) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[family]; ok {
		return st.err
	}
	return nil
}

// Runs returns how many passes family's job has started.
func (s *Scheduler) Runs(family models.Family) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[family]; ok {
		return st.runs
	}
	return 0
}

// JobStatus is a snapshot of one job for display.
type JobStatus struct {
	Family    models.Family `json:"family"`
	State     State         `json:"state"`
	Runs      int           `json:"runs"`
	NextRun   time.Time     `json:"nextRun,omitzero"`
	LastError string        `json:"lastError,omitempty"`
	Report    *SyncReport   `json:"lastReport,omitempty"`
}

// Statuses returns a snapshot of every job in registration order.
func (s *Scheduler) Statuses() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]JobStatus, 0, len(s.jobs))
	for _, j := range s.jobs {
		family := j.Syncer.Family()
		st := s.states[family]
		status := JobStatus{Family: family, State: st.state, Runs: st.runs, NextRun: st.nextRun, Report: st.report}
		if st.err != nil {
			status.LastError = st.err.Error()
		}
		out = append(out, status)
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	defer s.wg.Done()
	family := j.Syncer.Family()
	logger := s.logger.With("family", family.String())

	for {
		s.set(family, func(st *jobState) {
			st.state = StateRunning
			st.runs++
		})

		report, err := s.runOnce(ctx, j)
		if ctx.Err() != nil {
			s.set(family, func(st *jobState) { st.state = StateIdle })
			return
		}

		wait := j.Interval
		if err != nil {
			wait = j.Backoff
			logger.Error("sync pass failed, backing off", "err", err, "retry_in", wait)
		}
		s.set(family, func(st *jobState) {
			st.err = err
			st.nextRun = time.Now().Add(wait)
			if err != nil {
				st.state = StateBackoff
				return
			}
			st.state = StateIdle
			st.report = report
		})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.set(family, func(st *jobState) { st.state = StateIdle })
			return
		case <-timer.C:
		}
	}
}

// runOnce runs a single pass, converting a panic into an error.
func (s *Scheduler) runOnce(ctx context.Context, j Job) (report *SyncReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s sync panicked: %v", j.Syncer.Family(), r)
		}
	}()
	return j.Syncer.Sync(ctx, nil)
}

func (s *Scheduler) set(family models.Family, fn func(*jobState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.states[family])
}
