package gate

import (
	"errors"
	"fmt"
)

// Error types returned by the gate.
var (
	// ErrBlocked is the base error for every rejected entry. Use
	// errors.As with *BlockError to get the resource and reason.
	ErrBlocked = errors.New("entry blocked")

	// ErrDoubleRelease is returned by Handle.Release when the handle has
	// already been released. The second release has no effect.
	ErrDoubleRelease = errors.New("handle already released")

	// ErrInvalidResource is returned for resources with an empty name or
	// an unknown entry type. It is an input error, not a block.
	ErrInvalidResource = errors.New("invalid resource")
)

// BlockError reports that the decider rejected an entry.
type BlockError struct {
	// Resource is the resource whose entry was rejected.
	Resource Resource

	// Reason is the decider's explanation, e.g. "qps limit exceeded (10/1s)".
	Reason string
}

// Error implements the error interface.
func (e *BlockError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("resource %s blocked", e.Resource)
	}
	return fmt.Sprintf("resource %s blocked: %s", e.Resource, e.Reason)
}

// Unwrap returns ErrBlocked so callers can test with errors.Is.
func (e *BlockError) Unwrap() error {
	return ErrBlocked
}

// IsBlocked reports whether err is, or wraps, a block error.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrBlocked)
}
