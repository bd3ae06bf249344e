package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { s.Stop() })
	return s
}

func noopTask(id string) TaskConfig {
	return TaskConfig{
		ID:   id,
		Name: "Test Task",
		Cron: "0 3 * * *",
		Func: func(ctx context.Context) error { return nil },
	}
}

func TestRegisterTaskRejectsDuplicateID(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.RegisterTask(noopTask("cleanup")); err != nil {
		t.Fatalf("RegisterTask failed: %v", err)
	}
	if err := s.RegisterTask(noopTask("cleanup")); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRunNowExecutesTask(t *testing.T) {
	s := newTestScheduler(t)

	done := make(chan struct{})
	cfg := noopTask("refresh")
	cfg.Func = func(ctx context.Context) error {
		close(done)
		return nil
	}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask failed: %v", err)
	}

	if err := s.RunNow("refresh"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, err := s.GetTask("refresh")
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if !info.Running && info.LastRun != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("task state never settled: %+v", info)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRunNowUnknownTask(t *testing.T) {
	s := newTestScheduler(t)

	if err := s.RunNow("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if _, err := s.GetTask("missing"); !errors.Is(err, ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestRunNowRejectsOverlap(t *testing.T) {
	s := newTestScheduler(t)

	release := make(chan struct{})
	cfg := noopTask("slow")
	cfg.Func = func(ctx context.Context) error {
		<-release
		return nil
	}
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask failed: %v", err)
	}
	if err := s.RunNow("slow"); err != nil {
		t.Fatalf("RunNow failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		info, _ := s.GetTask("slow")
		if info.Running {
			break
		}
		if time.Now().After(deadline) {
			close(release)
			t.Fatal("task never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.RunNow("slow"); !errors.Is(err, ErrTaskAlreadyRunning) {
		t.Errorf("expected ErrTaskAlreadyRunning, got %v", err)
	}
	close(release)
}

func TestListTasks(t *testing.T) {
	s := newTestScheduler(t)

	cfg := noopTask("cleanup")
	cfg.Description = "Deletes old entries"
	if err := s.RegisterTask(cfg); err != nil {
		t.Fatalf("RegisterTask failed: %v", err)
	}

	tasks := s.ListTasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(tasks))
	}
	info := tasks[0]
	if info.ID != "cleanup" || info.Cron != "0 3 * * *" || info.Description != "Deletes old entries" {
		t.Errorf("unexpected task info: %+v", info)
	}
	if info.Running || info.LastRun != nil {
		t.Errorf("expected idle task, got %+v", info)
	}
}
