package rove

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Agent turns one task string into a Result through repeated LLM and tool
// calls. The closed set of strategies lives under agents/: react implements
// the reason-act-observe loop, plansolve implements plan-then-execute, and
// reflection implements execute-reflect-refine.
//
// A single Agent instance must not run concurrently: the History (and, for
// plan-and-solve, the plan) is exclusively owned by the in-flight run. In
// stateless mode (the default) each Run starts from a fresh History, so
// sequential reuse is always safe.
type Agent interface {
	// Run executes the task to completion and returns the final answer
	// plus the full transcript.
	//
	// On fatal errors Run returns the error together with the partial
	// Result, so callers can always inspect the transcript. The returned
	// Result is nil only when the run could not start at all.
	Run(ctx context.Context, task string) (*Result, error)
}

// Result is the terminal output of one agent run.
type Result struct {
	// RunID uniquely identifies this run.
	RunID string

	// FinalAnswer is the answer text. Non-empty unless the run terminated
	// with an error.
	FinalAnswer string

	// History is the full transcript of the run, in call order.
	History *History

	// StepsTaken is the number of LLM calls made during the run.
	StepsTaken int
}

// Config holds the loop-control settings shared by all agent strategies.
// Retry counts and step budgets are deliberately explicit configuration;
// the defaults are small.
type Config struct {
	// MaxSteps bounds the number of Thinking cycles (LLM calls) in a
	// reasoning loop. Exceeding it fails the run with ErrMaxStepsExceeded.
	MaxSteps int

	// MaxParseRetries bounds the corrective retries after the model
	// produces unparsable output, before the run fails with *ParseError.
	MaxParseRetries int

	// Timeout bounds the wall-clock duration of one run. Zero means no
	// deadline. An in-flight LLM or tool call is allowed to complete; the
	// loop then stops with ErrRunTimeout.
	Timeout time.Duration

	// Stateless, when true (the default), gives every Run a fresh History.
	// When false the agent retains its history across runs and appends to
	// it (conversational mode).
	Stateless bool

	// Logger receives loop transition events. Defaults to a no-op logger.
	Logger zerolog.Logger

	// CallOptions are applied to every LLM call made by the agent.
	CallOptions []CallOption
}

// DefaultConfig returns a config with small, bounded defaults.
func DefaultConfig() Config {
	return Config{
		MaxSteps:        15,
		MaxParseRetries: 2,
		Stateless:       true,
		Logger:          zerolog.Nop(),
	}
}
