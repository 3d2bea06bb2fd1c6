package synth

import "fmt"

// SynthesisError is fatal for the whole synthesis stage. It is raised
// before any segment is attempted, e.g. for missing credentials. Individual
// segment failures are not SynthesisErrors; they are logged and skipped.
type SynthesisError struct {
	Provider string
	Reason   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis unavailable (%s): %s", e.Provider, e.Reason)
}
