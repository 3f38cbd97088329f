package rove

import (
	"errors"
	"fmt"
)

// ErrMaxStepsExceeded is returned when a reasoning loop exhausts its step
// budget without producing a final answer. The partial Result is returned
// alongside it.
var ErrMaxStepsExceeded = errors.New("rove: maximum steps exceeded")

// ErrRunTimeout is returned when a run's deadline expires. The in-flight
// call is allowed to complete first; the partial Result is returned
// alongside the error.
var ErrRunTimeout = errors.New("rove: run deadline exceeded")

// ParseError reports that the model's output matched none of the expected
// markers, after the corrective retry budget was exhausted.
type ParseError struct {
	// Raw is the model output that failed to parse.
	Raw string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("rove: unparsable model output: %.80q", e.Raw)
}

// PlanParseError reports that a planning response yielded zero steps. It is
// fatal: execution order depends on the plan, so no partial plan is
// acceptable.
type PlanParseError struct {
	// Raw is the planner output that yielded no steps.
	Raw string
}

func (e *PlanParseError) Error() string {
	return fmt.Sprintf("rove: no plan steps recovered from planner output: %.80q", e.Raw)
}
