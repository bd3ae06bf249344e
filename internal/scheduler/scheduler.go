// Package scheduler runs the application's recurring background jobs
// (collection refresh, sync log cleanup) on cron schedules and exposes
// their state for the system tasks API.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"
)

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrTaskAlreadyRunning = errors.New("task is already running")
)

// TaskFunc is the function a scheduled task executes.
type TaskFunc func(ctx context.Context) error

// TaskConfig describes a task at registration time.
type TaskConfig struct {
	ID          string
	Name        string
	Description string
	Cron        string // standard five-field cron expression
	Func        TaskFunc
	RunOnStart  bool
}

// TaskInfo is the task state served by the system tasks API.
type TaskInfo struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Cron        string     `json:"cron"`
	LastRun     *time.Time `json:"lastRun,omitempty"`
	NextRun     *time.Time `json:"nextRun,omitempty"`
	Running     bool       `json:"running"`
}

type taskEntry struct {
	config  TaskConfig
	job     gocron.Job
	lastRun *time.Time
	running bool
}

// info snapshots the entry for API responses. Caller holds the lock.
func (e *taskEntry) info() TaskInfo {
	info := TaskInfo{
		ID:          e.config.ID,
		Name:        e.config.Name,
		Description: e.config.Description,
		Cron:        e.config.Cron,
		LastRun:     e.lastRun,
		Running:     e.running,
	}
	if next, err := e.job.NextRun(); err == nil {
		info.NextRun = &next
	}
	return info
}

// Scheduler manages the background task registry on top of gocron.
type Scheduler struct {
	gocron gocron.Scheduler
	logger zerolog.Logger
	tasks  map[string]*taskEntry
	mu     sync.RWMutex
}

// New creates a scheduler. Tasks are registered before Start.
func New(logger zerolog.Logger) (*Scheduler, error) {
	gs, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		gocron: gs,
		logger: logger.With().Str("component", "scheduler").Logger(),
		tasks:  make(map[string]*taskEntry),
	}, nil
}

// RegisterTask adds a task to the registry and schedules it. Task IDs are
// unique; registering an ID twice is a programming error.
func (s *Scheduler) RegisterTask(config TaskConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[config.ID]; exists {
		return fmt.Errorf("task %q already registered", config.ID)
	}

	job, err := s.gocron.NewJob(
		gocron.CronJob(config.Cron, false),
		gocron.NewTask(func() { s.run(config.ID) }),
		gocron.WithName(config.Name),
		gocron.WithTags(config.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule task %q: %w", config.ID, err)
	}

	s.tasks[config.ID] = &taskEntry{config: config, job: job}

	s.logger.Info().
		Str("id", config.ID).
		Str("cron", config.Cron).
		Bool("runOnStart", config.RunOnStart).
		Msg("Registered task")
	return nil
}

// run executes one task, guarding against overlapping runs of the same task.
func (s *Scheduler) run(taskID string) {
	s.mu.Lock()
	entry, ok := s.tasks[taskID]
	if !ok || entry.running {
		s.mu.Unlock()
		return
	}
	entry.running = true
	s.mu.Unlock()

	started := time.Now()
	s.logger.Info().Str("id", taskID).Msg("Starting task")

	err := entry.config.Func(context.Background())

	s.mu.Lock()
	entry.running = false
	entry.lastRun = &started
	s.mu.Unlock()

	if err != nil {
		s.logger.Error().Err(err).
			Str("id", taskID).
			Dur("duration", time.Since(started)).
			Msg("Task failed")
		return
	}
	s.logger.Info().
		Str("id", taskID).
		Dur("duration", time.Since(started)).
		Msg("Task completed")
}

// Start begins cron scheduling and kicks off RunOnStart tasks.
func (s *Scheduler) Start() error {
	s.logger.Info().Msg("Starting scheduler")
	s.gocron.Start()

	s.mu.RLock()
	startup := make([]string, 0)
	for id, entry := range s.tasks {
		if entry.config.RunOnStart {
			startup = append(startup, id)
		}
	}
	s.mu.RUnlock()

	for _, taskID := range startup {
		go s.run(taskID)
	}
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info().Msg("Stopping scheduler")
	return s.gocron.Shutdown()
}

// RunNow triggers a task outside its schedule. A task that is currently
// executing is not queued twice.
func (s *Scheduler) RunNow(taskID string) error {
	s.mu.RLock()
	entry, ok := s.tasks[taskID]
	running := ok && entry.running
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if running {
		return fmt.Errorf("%w: %s", ErrTaskAlreadyRunning, taskID)
	}

	go s.run(taskID)
	return nil
}

// ListTasks returns the state of every registered task.
func (s *Scheduler) ListTasks() []TaskInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]TaskInfo, 0, len(s.tasks))
	for _, entry := range s.tasks {
		tasks = append(tasks, entry.info())
	}
	return tasks
}

// GetTask returns the state of one task.
func (s *Scheduler) GetTask(taskID string) (*TaskInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	info := entry.info()
	return &info, nil
}
