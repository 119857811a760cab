// Package id provides run identifiers for pipeline executions.
//
// Every Start/Exec of a pipeline gets a fresh ULID-based run id, so the
// log lines and metrics of one run can be correlated even when the same
// pipeline instance is reset and started again. ULIDs are lexicographically
// sortable, which keeps runs ordered by start time in log storage.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RunID identifies one execution of a pipeline, from Start to Stopped.
type RunID string

// RunPrefix is prepended to run ids for readability in logs.
const RunPrefix = "run"

func (id RunID) String() string { return string(id) }

// Generator generates ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator with cryptographically secure entropy.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source, useful for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// NewRunID generates a prefixed run id.
func NewRunID() RunID {
	return RunID(fmt.Sprintf("%s_%s", RunPrefix, Default().Generate().String()))
}

// Timestamp extracts the start time encoded in a run id.
func Timestamp(id RunID) (time.Time, error) {
	raw := string(id)
	if len(raw) > len(RunPrefix)+1 && raw[:len(RunPrefix)+1] == RunPrefix+"_" {
		raw = raw[len(RunPrefix)+1:]
	}
	parsed, err := ulid.Parse(raw)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
