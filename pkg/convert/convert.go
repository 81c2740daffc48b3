// Package convert consolidates sharded DeepSpeed ZeRO checkpoints into a
// single fp32 checkpoint file.
//
// The merge itself is done by an external routine behind the Merger
// interface. Converter adds the path contract around it: the output path is
// derived from the input, the input is never touched, and a failed merge
// leaves no output file behind.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputExt is the extension given to consolidated checkpoints.
const OutputExt = ".pt"

var DebugLog func(string, ...interface{})

// ErrInputNotFound is returned when the sharded checkpoint does not exist.
var ErrInputNotFound = errors.New("sharded checkpoint not found")

// Merger consolidates the sharded checkpoint at shardedPath into a single
// file written at outputPath.
type Merger interface {
	Merge(ctx context.Context, shardedPath, outputPath string) error
}

// MergerFunc adapts a function to Merger.
type MergerFunc func(ctx context.Context, shardedPath, outputPath string) error

func (f MergerFunc) Merge(ctx context.Context, shardedPath, outputPath string) error {
	return f(ctx, shardedPath, outputPath)
}

// OutputPath derives the consolidated checkpoint path from the sharded one
// by replacing the extension of the last path element with OutputExt. A
// name without an extension gets OutputExt appended; a leading dot does not
// start an extension.
//
//	run/ckpt        -> run/ckpt.pt
//	run/last.ckpt   -> run/last.pt
//	run/last.ckpt/  -> run/last.pt
func OutputPath(input string) string {
	cleaned := filepath.Clean(input)
	dir, base := filepath.Split(cleaned)

	stem := base
	if i := strings.LastIndex(base, "."); i > 0 && i < len(base)-1 {
		stem = base[:i]
	}
	return dir + stem + OutputExt
}

// Status of a conversion run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result records one conversion run.
type Result struct {
	ID         string        `json:"id"`
	InputPath  string        `json:"input_path"`
	OutputPath string        `json:"output_path"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	StartTime  time.Time     `json:"start_time"`
	EndTime    time.Time     `json:"end_time"`
	Duration   time.Duration `json:"duration"`
}

type Converter struct {
	merger Merger
}

func NewConverter(m Merger) *Converter {
	return &Converter{merger: m}
}

// Convert consolidates the sharded checkpoint at input and returns the path
// of the written file. The merger writes into a temporary file next to the
// destination, which is renamed into place only once the merge succeeds.
func (c *Converter) Convert(ctx context.Context, input string) (string, error) {
	if c.merger == nil {
		return "", errors.New("no checkpoint merger configured")
	}

	if _, err := os.Stat(input); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrInputNotFound, input)
		}
		return "", fmt.Errorf("failed to stat sharded checkpoint: %w", err)
	}

	output := OutputPath(input)
	if output == filepath.Clean(input) {
		return "", fmt.Errorf("sharded checkpoint %s already has the %s extension", input, OutputExt)
	}

	tmp, err := os.CreateTemp(filepath.Dir(output), "."+filepath.Base(output)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to create temporary output: %w", err)
	}

	if DebugLog != nil {
		DebugLog("merging %s into %s", input, tmpPath)
	}

	if err := c.merger.Merge(ctx, input, tmpPath); err != nil {
		os.Remove(tmpPath)
		return "", err
	}

	if err := os.Rename(tmpPath, output); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move consolidated checkpoint into place: %w", err)
	}

	return output, nil
}

// Run is Convert with a timed record of the attempt. The record is filled
// in whether or not the conversion succeeds.
func (c *Converter) Run(ctx context.Context, input string) (*Result, error) {
	result := &Result{
		ID:         uuid.NewString(),
		InputPath:  input,
		OutputPath: OutputPath(input),
		StartTime:  time.Now(),
	}

	_, err := c.Convert(ctx, input)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if err != nil {
		result.Status = StatusFailed
		result.Error = err.Error()
		return result, err
	}
	result.Status = StatusSucceeded
	return result, nil
}
