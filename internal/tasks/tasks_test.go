package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darmiel/paytrust/internal/logging"
)

func TestRunRecordsResultAndLogs(t *testing.T) {
	task := NewTask("job", func(ctx context.Context, logger logging.InternalLogger) error {
		logger.Debug("not kept")
		logger.Info("working on %d item(s)", 2)
		return errors.New("boom")
	})

	err := task.Run()
	require.EqualError(t, err, "boom")

	st := task.Status()
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, "failed: boom", st.LastResult)
	assert.False(t, st.Scheduled)
	assert.True(t, st.NextRun.IsZero())

	var messages []string
	for _, e := range task.GetLogs() {
		assert.NotEqual(t, "debug", e.Level)
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "working on 2 item(s)")
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	started, release := make(chan struct{}), make(chan struct{})
	task := NewTask("slow", func(ctx context.Context, logger logging.InternalLogger) error {
		close(started)
		<-release
		return nil
	})

	errc := make(chan error, 1)
	go func() { errc <- task.Run() }()
	<-started

	assert.ErrorIs(t, task.Run(), ErrAlreadyRunning)
	close(release)
	require.NoError(t, <-errc)
	assert.Equal(t, "success", task.Status().LastResult)
}

func TestStartStop(t *testing.T) {
	ran := make(chan struct{}, 1)
	task := NewTask("tick", func(ctx context.Context, logger logging.InternalLogger) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})

	assert.False(t, task.Start(0))
	require.True(t, task.Start(10*time.Millisecond))
	assert.False(t, task.Start(time.Hour), "second start keeps the first schedule")
	assert.True(t, task.Scheduled())
	assert.Equal(t, 10*time.Millisecond, task.Status().Interval)

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled task did not run")
	}

	task.Stop()
	assert.False(t, task.Scheduled())
	task.Stop()
}

func TestManager(t *testing.T) {
	m := NewManager()
	m.Add(NewTask("b", func(context.Context, logging.InternalLogger) error { return nil }))
	m.Add(NewTask("a", func(context.Context, logging.InternalLogger) error { return nil }))

	list := m.ListStatus()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, "b", list[1].Name)

	_, err := m.Get("nope")
	var notFound TaskNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "nope", notFound.Name)
	assert.ErrorAs(t, m.Trigger("nope"), &notFound)

	require.NoError(t, m.Trigger("a"))
	assert.Eventually(t, func() bool {
		st, _ := m.Get("a")
		return st.Status().Runs == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTaskStoreLoggerRing(t *testing.T) {
	task := NewTask("ring", nil)
	l := NewTaskStoreLogger(task, zerolog.WarnLevel)

	l.Info("dropped")
	for i := 0; i < MaxLogsPerTask+5; i++ {
		l.Warn("entry %d", i)
	}
	l.Error("last")

	logs := task.GetLogs()
	require.Len(t, logs, MaxLogsPerTask)
	assert.Equal(t, "entry 6", logs[0].Message)
	assert.Equal(t, "error", logs[len(logs)-1].Level)
	assert.Equal(t, "last", logs[len(logs)-1].Message)
}
