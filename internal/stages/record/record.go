// Package record persists pipeline results as gzip-compressed JSON
// lines, one per frame.
package record

import (
	"fmt"
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/klauspost/compress/gzip"

	"github.com/drostifrosti/openpose/internal/stages"
)

// Line is the persisted shape of one frame result.
type Line struct {
	TraceID    string    `json:"trace_id"`
	Seq        uint64    `json:"seq"`
	Index      int       `json:"index"`
	Score      float64   `json:"score"`
	CapturedAt time.Time `json:"captured_at"`
}

// Recorder is an output sink appending one JSON line per frame to a
// gzip stream. It runs inside a single thread group and must be closed
// after the pipeline stopped to flush the compressor.
type Recorder struct {
	path  string
	file  *os.File
	gz    *gzip.Writer
	count int
}

// New creates the output file, truncating an existing one.
func New(path string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create record output: %w", err)
	}
	return &Recorder{path: path, file: file, gz: gzip.NewWriter(file)}, nil
}

func (r *Recorder) Name() string { return "record" }

// Process appends the frame's result line and forwards the frame.
func (r *Recorder) Process(f *stages.Frame) ([]*stages.Frame, error) {
	line := Line{
		TraceID:    f.TraceID.String(),
		Seq:        f.SeqID(),
		Index:      f.Index,
		Score:      f.Score,
		CapturedAt: f.CapturedAt,
	}
	buf, err := sonic.Marshal(&line)
	if err != nil {
		return nil, fmt.Errorf("encode record line: %w", err)
	}
	buf = append(buf, '\n')
	if _, err := r.gz.Write(buf); err != nil {
		return nil, fmt.Errorf("write record line: %w", err)
	}
	r.count++
	return []*stages.Frame{f}, nil
}

// Count returns how many lines were written.
func (r *Recorder) Count() int { return r.count }

// Close flushes the gzip stream and closes the file.
func (r *Recorder) Close() error {
	if err := r.gz.Close(); err != nil {
		r.file.Close()
		return fmt.Errorf("flush record output: %w", err)
	}
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close record output: %w", err)
	}
	return nil
}
