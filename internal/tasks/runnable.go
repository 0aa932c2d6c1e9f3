package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const MaxLogsPerTask = 1000

// Task is a named unit of work that can run on a fixed interval and be
// triggered manually. At most one run is in flight at any time.
type Task struct {
	Name    string
	Handler TaskFunc

	mu         sync.RWMutex
	interval   time.Duration
	startedAt  time.Time
	cancel     context.CancelFunc
	ctx        context.Context
	done       chan struct{}
	running    bool
	runs       int
	lastRun    time.Time
	lastResult string
	logs       []LogEntry
}

func NewTask(name string, fn TaskFunc) *Task {
	return &Task{
		Name:    name,
		Handler: fn,
		logs:    make([]LogEntry, 0),
	}
}

// Start schedules the task every interval. It is idempotent: if the task is
// already scheduled the original interval is kept and false is returned.
func (t *Task) Start(interval time.Duration) bool {
	if interval <= 0 {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.ctx = ctx
	t.cancel = cancel
	t.interval = interval
	t.startedAt = time.Now()
	t.done = make(chan struct{})

	go t.scheduler(ctx, interval, t.done)
	return true
}

// Stop cancels the schedule and waits for the scheduler to exit.
// A run in progress sees its context cancelled.
func (t *Task) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel = nil
	t.ctx = nil
	t.done = nil
	t.interval = 0
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Task) Scheduled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cancel != nil
}

func (t *Task) scheduler(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = t.run(ctx)
		}
	}
}

// Run executes the task synchronously on the calling goroutine. The run is
// cancelled when the schedule is stopped.
func (t *Task) Run() error {
	t.mu.RLock()
	ctx := t.ctx
	t.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return t.run(ctx)
}

// RunContext is like Run but uses the given context.
func (t *Task) RunContext(ctx context.Context) error {
	return t.run(ctx)
}

func (t *Task) run(ctx context.Context) error {
	t.mu.Lock()

	l := log.With().Str("task", t.Name).Logger()

	if t.running {
		t.mu.Unlock()
		l.Warn().Msg("task is already running, skipping execution")
		return ErrAlreadyRunning
	}
	t.running = true
	t.logs = make([]LogEntry, 0)
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.runs++
		t.lastRun = time.Now()
		t.mu.Unlock()
	}()

	taskLogger := NewCompositeLogger(t, l)
	taskLogger.Info("starting task execution")

	start := time.Now()
	err := t.Handler(ctx, taskLogger)
	duration := time.Since(start)

	t.mu.Lock()
	if err != nil {
		t.lastResult = fmt.Sprintf("failed: %v", err)
	} else {
		t.lastResult = "success"
	}
	t.mu.Unlock()

	if err != nil {
		taskLogger.Error("task failed after %s: %v", duration, err)
	} else {
		taskLogger.Info("task completed successfully in %s", duration)
	}
	return err
}

func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var nextTime time.Time
	if t.cancel != nil {
		if t.lastRun.After(t.startedAt) {
			nextTime = t.lastRun.Add(t.interval)
		} else {
			nextTime = t.startedAt.Add(t.interval)
		}
	}

	return TaskStatus{
		Name:       t.Name,
		Scheduled:  t.cancel != nil,
		Interval:   t.interval,
		Running:    t.running,
		Runs:       t.runs,
		LastRun:    t.lastRun,
		LastResult: t.lastResult,
		NextRun:    nextTime,
	}
}

func (t *Task) GetLogs() []LogEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := make([]LogEntry, len(t.logs))
	copy(cpy, t.logs)
	return cpy
}

func (t *Task) AppendLog(level, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.logs = append(t.logs, LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})

	if len(t.logs) > MaxLogsPerTask {
		t.logs = t.logs[1:]
	}
}
