package nfa

import (
	"errors"
	"fmt"
)

// Common NFA errors
var (
	// ErrUnsupported indicates the pattern uses a construct that needs the
	// backtracking engine.
	ErrUnsupported = errors.New("unsupported by the linear engine")

	// ErrTooComplex indicates counted repeats expand beyond the configured
	// state limit.
	ErrTooComplex = errors.New("pattern too complex")
)

// UnsupportedError reports the first construct the linear engine cannot
// execute and its byte offset in the pattern.
type UnsupportedError struct {
	Construct string
	Pos       int
	Err       error // ErrUnsupported or ErrTooComplex
}

// Error implements the error interface
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s at position %d", e.Construct, e.Pos)
}

// Unwrap returns the underlying error
func (e *UnsupportedError) Unwrap() error {
	return e.Err
}

// BuildError represents an error during NFA construction via the Builder API
type BuildError struct {
	Message string
	StateID StateID
}

// Error implements the error interface
func (e *BuildError) Error() string {
	if e.StateID != InvalidState {
		return fmt.Sprintf("NFA build error at state %d: %s", e.StateID, e.Message)
	}
	return fmt.Sprintf("NFA build error: %s", e.Message)
}
