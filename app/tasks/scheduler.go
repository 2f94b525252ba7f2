package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

// RunSummary describes the most recent pass.
type RunSummary struct {
	ID        string        `json:"id"`
	Type      TaskType      `json:"type"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
	Stats     *Stats        `json:"stats,omitempty"`
}

type Status struct {
	Running bool        `json:"running"`
	Pending bool        `json:"pending"`
	Runs    int         `json:"runs"`
	LastRun *RunSummary `json:"last_run,omitempty"`
}

// Scheduler runs passes from a single goroutine, so passes never overlap.
// Manual triggers while a pass is pending collapse into one run.
type Scheduler struct {
	newTask  func() TaskInterface
	interval time.Duration
	trigger  chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	mu      sync.Mutex
	running bool
	runs    int
	lastRun *RunSummary
}

func NewScheduler(newTask func() TaskInterface, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		newTask:  newTask,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.run()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.run()
			case <-s.trigger:
				s.run()
			}
		}
	}()
}

// Stop cancels the running pass, if any, and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Trigger requests a pass. It returns false when one is already pending.
func (s *Scheduler) Trigger() bool {
	select {
	case s.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running: s.running,
		Pending: len(s.trigger) > 0,
		Runs:    s.runs,
	}
	if s.lastRun != nil {
		last := *s.lastRun
		status.LastRun = &last
	}
	return status
}

func (s *Scheduler) run() {
	if s.ctx.Err() != nil {
		return
	}

	// A pass starting now satisfies any pending trigger.
	select {
	case <-s.trigger:
	default:
	}

	task := s.newTask()

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	task.Start()
	slog.Debug("Task started", "type", string(task.GetType()), "id", task.GetID())

	err := task.Execute(s.ctx)

	summary := &RunSummary{
		ID:        task.GetID(),
		Type:      task.GetType(),
		StartedAt: time.Now().Add(-task.GetDuration()),
		Duration:  task.GetDuration(),
	}
	if syncTask, ok := task.(*SyncTask); ok {
		stats := syncTask.Stats()
		summary.Stats = &stats
	}
	if err != nil {
		summary.Error = err.Error()
		slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "error", err)
	}

	s.mu.Lock()
	s.running = false
	s.runs++
	s.lastRun = summary
	s.mu.Unlock()
}
