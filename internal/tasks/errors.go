package tasks

import (
	"errors"
	"fmt"
)

// ErrAlreadyRunning is returned by Run when the previous run has not finished yet.
var ErrAlreadyRunning = errors.New("task is already running")

type TaskNotFoundError struct {
	Name string
}

func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task '%s' not found", e.Name)
}
