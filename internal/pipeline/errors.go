package pipeline

import (
	"errors"

	"github.com/drostifrosti/openpose/internal/pipeline/thread"
	"github.com/drostifrosti/openpose/internal/pipeline/topology"
)

// ConfigError reports an invalid pipeline specification, detected during
// Configure before any resource is allocated.
type ConfigError = topology.ConfigError

// StageError reports the stage failure that terminated a run.
type StageError = thread.StageError

var (
	// ErrNotConfigured is returned when Start, Exec or a boundary call
	// happens before a successful Configure.
	ErrNotConfigured = errors.New("pipeline is not configured")

	// ErrAlreadyRunning is returned by Configure, Start and Exec while a
	// run is in flight.
	ErrAlreadyRunning = thread.ErrAlreadyRunning

	// ErrNotStopped is returned by Start and Exec after a run finished;
	// Reset and Configure again for a fresh run.
	ErrNotStopped = thread.ErrNotStopped

	// ErrInputBound is returned by the emplace/push boundary calls when
	// the input side is driven by a bound producer, not externally.
	ErrInputBound = errors.New("pipeline input is bound to an internal producer")

	// ErrOutputBound is returned by the pop boundary calls when the
	// output side ends in internal sinks, not an external consumer.
	ErrOutputBound = errors.New("pipeline output is bound to internal sinks")
)
