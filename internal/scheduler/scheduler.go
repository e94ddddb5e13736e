// Package scheduler runs the periodic maintenance jobs: bulk metadata
// enrichment, audit cleanup and dropping abandoned recognition flows.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/robfig/cron/v3"

	"github.com/mrlokans/readnext/internal/logging"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// Enqueuer hands a task to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// FlowSweeper drops recognition flows that have been idle too long.
type FlowSweeper interface {
	Sweep(maxAge time.Duration) int
}

type job struct {
	name    string
	run     func(ctx context.Context)
	entryID cron.EntryID
	running bool
}

// Scheduler manages cron-driven jobs. A job whose previous run is still
// in progress is skipped.
type Scheduler struct {
	cron *cron.Cron

	mu         sync.Mutex
	jobs       map[string]*job
	isRunning  bool
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]*job),
		ctx:  context.Background(),
	}
}

// Add registers a named job. Names are unique.
func (s *Scheduler) Add(name, schedule string, run func(ctx context.Context)) error {
	if err := ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	j := &job{name: name, run: run}
	entryID, err := s.cron.AddFunc(schedule, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %q: %w", name, err)
	}
	j.entryID = entryID
	s.jobs[name] = j

	logging.Info().Str("job", name).Str("schedule", schedule).Msg("Scheduled job")
	return nil
}

// Start begins running jobs until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.ctx, s.cancelFunc = context.WithCancel(ctx)
	s.isRunning = true
	s.cron.Start()
	runCtx := s.ctx
	s.mu.Unlock()

	logging.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
}

// Stop stops scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()
	<-done.Done()

	logging.Info().Msg("Scheduler stopped")
}

// RunNow triggers a job immediately in the background.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	go s.execute(j)
	return nil
}

// NextRun returns when a job runs next, or nil if the scheduler is stopped.
func (s *Scheduler) NextRun(name string) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok || !s.isRunning {
		return nil
	}
	next := s.cron.Entry(j.entryID).Next
	return &next
}

func (s *Scheduler) execute(j *job) {
	s.mu.Lock()
	if j.running {
		s.mu.Unlock()
		logging.Debug().Str("job", j.name).Msg("Job skipped, previous run still in progress")
		return
	}
	j.running = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()

	start := time.Now()
	j.run(ctx)
	logging.Debug().Str("job", j.name).Dur("took", time.Since(start)).Msg("Job finished")
}

// EnqueueJob returns a job that hands task to the background queue.
func EnqueueJob(queue Enqueuer, task backlite.Task) func(ctx context.Context) {
	return func(ctx context.Context) {
		id, err := queue.Enqueue(ctx, task)
		if err != nil {
			logging.Error().Err(err).Str("queue", task.Config().Name).Msg("Failed to enqueue scheduled task")
			return
		}
		logging.Info().Str("queue", task.Config().Name).Str("task_id", id).Msg("Enqueued scheduled task")
	}
}

// SweepJob returns a job that drops recognition flows idle for maxAge.
func SweepJob(sweeper FlowSweeper, maxAge time.Duration) func(ctx context.Context) {
	return func(ctx context.Context) {
		if removed := sweeper.Sweep(maxAge); removed > 0 {
			logging.Info().Int("flows", removed).Msg("Dropped idle recognition flows")
		}
	}
}
