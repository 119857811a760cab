// Package estimate is the heavy compute region of the demo pipeline: a
// dense matrix model applied to every frame, the stage worth replicating
// across threads for throughput.
package estimate

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/drostifrosti/openpose/internal/stages"
)

// Estimator applies a fixed random-weight model to each frame payload.
// The weights are read-only after construction; give every pipeline
// replica its own instance.
type Estimator struct {
	name    string
	weights *mat.Dense
}

// New creates an estimator for size×size frames. The seed fixes the
// weights so replicas built with the same seed are interchangeable.
func New(name string, size int, seed int64) *Estimator {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, size*size)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	return &Estimator{name: name, weights: mat.NewDense(size, size, data)}
}

func (e *Estimator) Name() string { return e.name }

// Process multiplies the model into the frame payload and records the
// result and its confidence score on the frame.
func (e *Estimator) Process(f *stages.Frame) ([]*stages.Frame, error) {
	_, wc := e.weights.Dims()
	dr, dc := f.Data.Dims()
	if wc != dr {
		return nil, fmt.Errorf("frame %d: payload is %dx%d, model expects %d rows",
			f.Index, dr, dc, wc)
	}

	var pose mat.Dense
	pose.Mul(e.weights, f.Data)
	f.Pose = &pose
	f.Score = mat.Norm(&pose, 2)
	return []*stages.Frame{f}, nil
}
