package finance

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidGrid is returned for unusable scenario-grid overrides:
	// fewer than 2 steps or an inverted min/max range.
	ErrInvalidGrid = errors.New("invalid scenario grid")
)

// GridError wraps ErrInvalidGrid with the offending field.
type GridError struct {
	Field  string
	Reason string
}

func (e *GridError) Error() string {
	return fmt.Sprintf("invalid scenario grid: %s %s", e.Field, e.Reason)
}

func (e *GridError) Unwrap() error { return ErrInvalidGrid }
