package engine

import (
	"errors"

	"github.com/seantiz/forge/internal/model"
)

var (
	// ErrAlreadyStarted is returned when Start is called more than once.
	ErrAlreadyStarted = errors.New("pool already started")
	// ErrPoolStopped is returned when Start is called after Shutdown.
	ErrPoolStopped = errors.New("pool stopped")
	// ErrTaskPanic wraps a panic recovered from a task.
	ErrTaskPanic = errors.New("task panicked")
)

// Task is a unit of work. Execute must be safe to call from any goroutine.
// A validation problem is reported inside the Outcome; a returned error is an
// execution fault and marks the job failed.
type Task interface {
	Execute() (model.Outcome, error)
}

// kinded is implemented by tasks that can name what they compute, for logs.
type kinded interface {
	Kind() string
}

func taskKind(t Task) string {
	if k, ok := t.(kinded); ok {
		return k.Kind()
	}
	return "unknown"
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc func() (model.Outcome, error)

// Execute calls f.
func (f TaskFunc) Execute() (model.Outcome, error) {
	return f()
}
