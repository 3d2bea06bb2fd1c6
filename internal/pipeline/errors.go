// Package pipeline sequences story generation end to end: text streaming,
// segment parsing, voice casting, audio synthesis, and playback scheduling.
package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Stage names the pipeline phase an error belongs to.
type Stage string

const (
	StageGeneration Stage = "generation"
	StageParsing    Stage = "parsing"
	StageCasting    Stage = "casting"
	StageSynthesis  Stage = "synthesis"
	StagePlayback   Stage = "playback"
)

// StageError tags a fatal error with the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// TimeoutError marks a stage that exceeded its deadline, distinct from
// transport failures in the same stage.
type TimeoutError struct {
	Stage Stage
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s stage timed out", e.Stage)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// classify wraps a stage failure, promoting deadline errors to TimeoutError.
func classify(stage Stage, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Stage: stage, Err: err}
	}
	return &StageError{Stage: stage, Err: err}
}
