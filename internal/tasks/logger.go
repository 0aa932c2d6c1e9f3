package tasks

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/darmiel/paytrust/internal/logging"
)

var _ logging.InternalLogger = (*TaskStoreLogger)(nil)

// TaskStoreLogger keeps messages of at least minLevel in the log ring of a task.
type TaskStoreLogger struct {
	task     *Task
	minLevel zerolog.Level
}

func NewTaskStoreLogger(task *Task, minLevel zerolog.Level) *TaskStoreLogger {
	return &TaskStoreLogger{task: task, minLevel: minLevel}
}

func (t *TaskStoreLogger) Debug(format string, args ...any) { t.store(zerolog.DebugLevel, format, args) }
func (t *TaskStoreLogger) Info(format string, args ...any) { t.store(zerolog.InfoLevel, format, args) }
func (t *TaskStoreLogger) Warn(format string, args ...any) { t.store(zerolog.WarnLevel, format, args) }
func (t *TaskStoreLogger) Error(format string, args ...any) { t.store(zerolog.ErrorLevel, format, args) }

func (t *TaskStoreLogger) store(level zerolog.Level, format string, args []any) {
	if level < t.minLevel {
		return
	}
	t.task.AppendLog(level.String(), fmt.Sprintf(format, args...))
}

// NewCompositeLogger logs to zlog and keeps info and above in the task log.
func NewCompositeLogger(task *Task, zlog zerolog.Logger) logging.MultiLogger {
	return logging.NewMultiLogger(
		logging.NewZLogger(zlog),
		NewTaskStoreLogger(task, zerolog.InfoLevel),
	)
}
