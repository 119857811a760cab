// Package stages defines the item type flowing through the demo
// pipeline and is the parent of the concrete stage implementations.
package stages

import (
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Frame is one unit of work: a captured matrix payload, the estimation
// result once the compute region has run, and identity for tracing.
type Frame struct {
	seq uint64

	// TraceID correlates one frame across stages and log lines.
	TraceID uuid.UUID

	// Index is the position in the source stream, which differs from the
	// sequence id after a seek.
	Index int

	CapturedAt time.Time

	// Data is the captured payload.
	Data *mat.Dense

	// Pose holds the estimation result, nil until the estimate stage ran.
	Pose *mat.Dense

	// Score is the estimation confidence.
	Score float64
}

// SeqID returns the pipeline sequence id.
func (f *Frame) SeqID() uint64 { return f.seq }

// SetSeqID assigns the pipeline sequence id.
func (f *Frame) SetSeqID(v uint64) { f.seq = v }
