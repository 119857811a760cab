package thread

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRunning is returned by Start and Exec when the manager is
	// not Idle.
	ErrAlreadyRunning = errors.New("pipeline is already running")

	// ErrNotStopped is returned by Reset while a run is still in flight.
	ErrNotStopped = errors.New("pipeline must be stopped before reset")

	// ErrNoGroups is returned by Start when no thread group was added.
	ErrNoGroups = errors.New("no thread groups configured")
)

// StageError reports an unrecoverable failure signalled by a stage while
// processing an item. It terminates the whole pipeline run.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
