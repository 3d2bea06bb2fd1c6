package story

import "fmt"

// GenerationError reports a fatal failure of the text generation stage.
// Status carries the upstream HTTP status when one was received, 0 for
// transport-level failures.
type GenerationError struct {
	Status  int
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("story generation failed: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("story generation failed: %s", e.Message)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports that no usable structured story could be produced
// from the segmentation response. It is never returned alongside partial
// results.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("story parsing failed: %s", e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
