package firstcall

import "errors"

var (
	// ErrCaseNotFound indicates the case doesn't exist. Workflow operations
	// never return it; lookups made on behalf of an API caller do.
	ErrCaseNotFound = errors.New("case not found")
	// ErrInvalidInput indicates invalid case input.
	ErrInvalidInput = errors.New("invalid case input")
	// ErrConflict indicates the case kept changing underneath the engine
	// after every retry.
	ErrConflict = errors.New("case modified concurrently")
)
