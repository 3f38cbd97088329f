// Package reflection implements the execute-reflect-refine agent strategy:
// produce an answer, critique it, and refine it until the critique finds
// nothing to improve or the iteration budget runs out.
//
// Suited to tasks that benefit from iterative polish (code, documents,
// analysis) rather than tool use.
package reflection

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmelwick/rove"
)

// DefaultMaxIterations bounds the reflect/refine cycles.
const DefaultMaxIterations = 3

// DefaultStopMarker ends the loop early when it appears in a reflection,
// compared case-insensitively.
const DefaultStopMarker = "no improvement needed"

// Prompts are the three templates driving the loop. Each must contain the
// named %s verbs shown in the defaults.
type Prompts struct {
	// Initial receives the task.
	Initial string
	// Reflect receives the task and the current attempt.
	Reflect string
	// Refine receives the task, the previous attempt, and the feedback.
	Refine string
}

// DefaultPrompts returns the built-in prompt set.
func DefaultPrompts() Prompts {
	return Prompts{
		Initial: "Complete the following task. Provide a complete and accurate answer.\n\nTask: %s",
		Reflect: "Review the answer below and identify issues or improvements.\n\n" +
			"Task:\n%s\n\nCurrent answer:\n%s\n\n" +
			"Point out shortcomings and suggest concrete improvements. " +
			"If the answer is already satisfactory, reply with \"" + DefaultStopMarker + "\".",
		Refine: "Improve your answer based on the feedback.\n\n" +
			"Task:\n%s\n\nPrevious answer:\n%s\n\nFeedback:\n%s\n\nProvide an improved answer.",
	}
}

// Agent implements the reflection loop. Every model call streams and
// accumulates the response, so consumers subscribed to the provider's
// stream see tokens as they arrive.
type Agent struct {
	client        rove.Client
	config        rove.Config
	prompts       Prompts
	maxIterations int
	stopMarker    string
}

// New creates a reflection agent with the given client and
// rove.DefaultConfig().
func New(client rove.Client) *Agent {
	return &Agent{
		client:        client,
		config:        rove.DefaultConfig(),
		prompts:       DefaultPrompts(),
		maxIterations: DefaultMaxIterations,
		stopMarker:    DefaultStopMarker,
	}
}

// WithConfig sets the loop-control configuration.
func (a *Agent) WithConfig(cfg rove.Config) *Agent {
	a.config = cfg
	return a
}

// WithPrompts replaces the prompt set.
func (a *Agent) WithPrompts(p Prompts) *Agent {
	a.prompts = p
	return a
}

// WithMaxIterations bounds the reflect/refine cycles.
func (a *Agent) WithMaxIterations(n int) *Agent {
	a.maxIterations = n
	return a
}

// WithStopMarker sets the phrase that ends the loop when it appears in a
// reflection (case-insensitive).
func (a *Agent) WithStopMarker(marker string) *Agent {
	a.stopMarker = marker
	return a
}

// Run executes the task. The transcript records the task and every
// attempt and reflection in order; FinalAnswer is the last attempt.
func (a *Agent) Run(ctx context.Context, task string) (*rove.Result, error) {
	history := rove.NewHistory()
	if err := history.Append(rove.NewMessage(rove.RoleUser, task)); err != nil {
		return nil, err
	}

	result := &rove.Result{RunID: uuid.NewString(), History: history}
	log := a.config.Logger.With().
		Str("agent", "reflection").
		Str("run_id", result.RunID).
		Logger()
	log.Debug().Str("task", task).Msg("run started")

	var deadline time.Time
	if a.config.Timeout > 0 {
		deadline = time.Now().Add(a.config.Timeout)
	}

	// Initial attempt.
	attempt, err := a.generate(ctx, result, history, "attempt",
		fmt.Sprintf(a.prompts.Initial, task))
	if err != nil {
		return result, err
	}

	for i := 0; i < a.maxIterations; i++ {
		if expired(deadline) {
			result.FinalAnswer = attempt
			return result, rove.ErrRunTimeout
		}

		feedback, err := a.generate(ctx, result, history, "reflection",
			fmt.Sprintf(a.prompts.Reflect, task, attempt))
		if err != nil {
			result.FinalAnswer = attempt
			return result, err
		}
		if strings.Contains(strings.ToLower(feedback), strings.ToLower(a.stopMarker)) {
			log.Debug().Int("iteration", i).Msg("reflection found nothing to improve")
			break
		}

		if expired(deadline) {
			result.FinalAnswer = attempt
			return result, rove.ErrRunTimeout
		}

		attempt, err = a.generate(ctx, result, history, "attempt",
			fmt.Sprintf(a.prompts.Refine, task, attempt, feedback))
		if err != nil {
			return result, err
		}
	}

	result.FinalAnswer = attempt
	log.Debug().Int("steps_taken", result.StepsTaken).Msg("run finished")
	return result, nil
}

// generate makes one streaming model call with a single-prompt history and
// records the exchange in the main transcript tagged with its phase.
func (a *Agent) generate(
	ctx context.Context,
	result *rove.Result,
	history *rove.History,
	phase string,
	prompt string,
) (string, error) {
	callHistory := rove.NewHistory()
	if err := callHistory.Append(rove.NewMessage(rove.RoleUser, prompt)); err != nil {
		return "", err
	}

	stream, err := a.client.Stream(ctx, callHistory, a.config.CallOptions...)
	result.StepsTaken++
	if err != nil {
		return "", err
	}
	defer stream.Close()

	content, err := stream.Text()
	if err != nil {
		return "", err
	}

	msg := rove.Message{
		Role:     rove.RoleAssistant,
		Content:  content,
		Metadata: map[string]string{"phase": phase},
	}
	if err := history.Append(msg); err != nil {
		return "", err
	}
	return content, nil
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

// Compile-time check that Agent implements rove.Agent.
var _ rove.Agent = (*Agent)(nil)
