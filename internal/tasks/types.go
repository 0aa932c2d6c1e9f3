package tasks

import (
	"context"
	"time"

	"github.com/darmiel/paytrust/internal/logging"
)

// TaskFunc is the unit of work.
// It receives a TaskLogger which stores the logging output (at runtime).
// ctx is cancelled when the task is stopped.
type TaskFunc func(ctx context.Context, logger logging.InternalLogger) error

type TaskStatus struct {
	Name       string        `json:"name,omitempty"`
	Scheduled  bool          `json:"scheduled"`
	Interval   time.Duration `json:"interval,omitempty"`
	Running    bool          `json:"running,omitempty"`
	Runs       int           `json:"runs"`
	LastRun    time.Time     `json:"last_run"`
	LastResult string        `json:"last_result,omitempty"`
	NextRun    time.Time     `json:"next_run"`
}

type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level,omitempty"`
	Message string    `json:"message,omitempty"`
}
