// Package source produces synthetic frames at a fixed rate, standing in
// for a camera or video reader at the head of the pipeline.
package source

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
	"gonum.org/v1/gonum/mat"

	"github.com/drostifrosti/openpose/internal/stages"
)

// Config describes a synthetic source.
type Config struct {
	// FPS paces frame production in frames per second.
	FPS float64

	// Frames bounds the stream; 0 means unbounded.
	Frames int

	// Size is the side length of the square frame payload.
	Size int

	// Seed makes the payload deterministic for tests; 0 seeds from time.
	Seed int64
}

// Source implements the producer contract for a paced synthetic stream.
// Not safe for concurrent use; a source feeds exactly one thread group.
type Source struct {
	limiter *rate.Limiter
	frames  int
	size    int
	next    int
	rng     *rand.Rand
	ctrl    *Control
}

// New creates a source producing cfg.Frames frames at cfg.FPS.
func New(cfg Config) *Source {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	size := cfg.Size
	if size < 1 {
		size = 1
	}
	limit := rate.Limit(cfg.FPS)
	if cfg.FPS <= 0 {
		limit = rate.Inf
	}
	return &Source{
		limiter: rate.NewLimiter(limit, 1),
		frames:  cfg.Frames,
		size:    size,
		rng:     rand.New(rand.NewSource(seed)),
		ctrl:    &Control{},
	}
}

// Name implements the producer contract.
func (s *Source) Name() string { return "source" }

// Control returns the seek handle shared with external collaborators.
func (s *Source) Control() *Control { return s.ctrl }

// Next produces the next frame, honoring any pending seek request and
// the configured pacing. End-of-stream after the configured frame count.
func (s *Source) Next() (*stages.Frame, bool, error) {
	if target, ok := s.ctrl.take(); ok {
		s.next = target
	}
	if s.frames > 0 && s.next >= s.frames {
		return nil, false, nil
	}
	if err := s.limiter.Wait(context.Background()); err != nil {
		return nil, false, err
	}

	data := make([]float64, s.size*s.size)
	for i := range data {
		data[i] = s.rng.Float64()
	}
	frame := &stages.Frame{
		TraceID:    uuid.New(),
		Index:      s.next,
		CapturedAt: time.Now(),
		Data:       mat.NewDense(s.size, s.size, data),
	}
	s.next++
	return frame, true, nil
}
