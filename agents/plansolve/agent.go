package plansolve

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jmelwick/rove"
	"github.com/jmelwick/rove/agents/react"
)

// DefaultMaxPlanSteps bounds how many steps the planner is asked for.
const DefaultMaxPlanSteps = 5

// Agent implements the plan-and-solve loop: Planning -> Executing(0..n) ->
// Aggregating.
//
// Step execution is strictly sequential: step i+1's prompt context contains
// step i's result. A failing step is recorded as StepFailed and execution
// continues; only a planning failure is fatal.
type Agent struct {
	client          rove.Client
	tools           *rove.Registry
	config          rove.Config
	plannerPrompt   string
	aggregatePrompt string
	maxPlanSteps    int

	// Plan of the most recent run, for inspection.
	lastPlan []PlanStep
}

// New creates a plan-and-solve agent with the given client, an empty tool
// registry, and rove.DefaultConfig().
func New(client rove.Client) *Agent {
	return &Agent{
		client:          client,
		tools:           rove.NewRegistry(),
		config:          rove.DefaultConfig(),
		plannerPrompt:   DefaultPlannerPrompt,
		aggregatePrompt: DefaultAggregatePrompt,
		maxPlanSteps:    DefaultMaxPlanSteps,
	}
}

// WithConfig sets the loop-control configuration. MaxSteps applies per step
// sub-loop, not to the plan as a whole.
func (a *Agent) WithConfig(cfg rove.Config) *Agent {
	a.config = cfg
	return a
}

// WithTools replaces the tool registry used by the step sub-loops.
func (a *Agent) WithTools(tools *rove.Registry) *Agent {
	a.tools = tools
	return a
}

// RegisterTool adds a tool to the agent's registry.
func (a *Agent) RegisterTool(tool rove.Tool) *Agent {
	a.tools.Register(tool)
	return a
}

// WithPlannerPrompt replaces the planning system prompt. The prompt should
// contain one %d verb for the maximum step count.
func (a *Agent) WithPlannerPrompt(prompt string) *Agent {
	a.plannerPrompt = prompt
	return a
}

// WithAggregatePrompt replaces the aggregation instruction.
func (a *Agent) WithAggregatePrompt(prompt string) *Agent {
	a.aggregatePrompt = prompt
	return a
}

// WithMaxPlanSteps bounds how many steps the planner is asked to produce.
func (a *Agent) WithMaxPlanSteps(n int) *Agent {
	a.maxPlanSteps = n
	return a
}

// Plan returns the plan of the most recent run, with final statuses and
// results. Owned by that run; valid until the next Run call.
func (a *Agent) Plan() []PlanStep {
	out := make([]PlanStep, len(a.lastPlan))
	copy(out, a.lastPlan)
	return out
}

// Run executes the task. The returned Result's History carries the
// planning exchange, one summary exchange per step, and the aggregation
// exchange; StepsTaken counts every LLM call including those made by the
// step sub-loops.
func (a *Agent) Run(ctx context.Context, task string) (*rove.Result, error) {
	history := rove.NewHistoryWithSystem(plannerSystemPrompt(a.plannerPrompt, a.maxPlanSteps))
	if err := history.Append(rove.NewMessage(rove.RoleUser, task)); err != nil {
		return nil, err
	}

	result := &rove.Result{RunID: uuid.NewString(), History: history}
	log := a.config.Logger.With().
		Str("agent", "plansolve").
		Str("run_id", result.RunID).
		Logger()
	log.Debug().Str("task", task).Msg("run started")

	var deadline time.Time
	if a.config.Timeout > 0 {
		deadline = time.Now().Add(a.config.Timeout)
	}

	// Planning. A plan with zero steps is fatal: execution order depends
	// on the plan, so there is nothing to fall back to.
	planMsg, err := a.client.Invoke(ctx, history, a.config.CallOptions...)
	result.StepsTaken++
	if err != nil {
		log.Error().Err(err).Msg("planning call failed")
		return result, err
	}
	if err := history.Append(planMsg); err != nil {
		return result, err
	}

	steps := parsePlan(planMsg.Content)
	a.lastPlan = steps
	if len(steps) == 0 {
		log.Warn().Msg("planner produced no steps")
		return result, &rove.PlanParseError{Raw: planMsg.Content}
	}
	log.Debug().Int("steps", len(steps)).Msg("plan created")

	// Executing, strictly in index order. Failures are recorded and the
	// remaining steps still run, so aggregation can report what succeeded.
	for i := range steps {
		if expired(deadline) {
			return result, rove.ErrRunTimeout
		}

		steps[i].Status = StepInProgress
		sub := react.New(a.client).
			WithTools(a.tools).
			WithConfig(a.subConfig(deadline))

		stepResult, stepErr := sub.Run(ctx, stepTask(task, steps, i))
		if stepResult != nil {
			result.StepsTaken += stepResult.StepsTaken
		}
		if stepErr != nil {
			steps[i].Status = StepFailed
			steps[i].Result = stepErr.Error()
			log.Warn().Int("step", i).Err(stepErr).Msg("step failed")
		} else {
			steps[i].Status = StepDone
			steps[i].Result = stepResult.FinalAnswer
			log.Debug().Int("step", i).Msg("step done")
		}

		if err := appendExchange(history, steps[i]); err != nil {
			return result, err
		}
	}

	if expired(deadline) {
		return result, rove.ErrRunTimeout
	}

	// Aggregating.
	if err := history.Append(rove.NewMessage(rove.RoleUser, aggregateTask(a.aggregatePrompt, task, steps))); err != nil {
		return result, err
	}
	finalMsg, err := a.client.Invoke(ctx, history, a.config.CallOptions...)
	result.StepsTaken++
	if err != nil {
		log.Error().Err(err).Msg("aggregation call failed")
		return result, err
	}
	if err := history.Append(finalMsg); err != nil {
		return result, err
	}

	result.FinalAnswer = finalMsg.Content
	log.Debug().Int("steps_taken", result.StepsTaken).Msg("run finished")
	return result, nil
}

// appendExchange records one executed step in the main transcript as a
// user/assistant message pair.
func appendExchange(history *rove.History, step PlanStep) error {
	prompt := rove.NewMessage(rove.RoleUser, stepSummaryPrompt(step))
	if err := history.Append(prompt); err != nil {
		return err
	}
	return history.Append(rove.Message{
		Role:     rove.RoleAssistant,
		Content:  step.Result,
		Metadata: map[string]string{"step_status": string(step.Status)},
	})
}

// subConfig derives the per-step sub-loop configuration: always stateless,
// bounded by the remaining run deadline.
func (a *Agent) subConfig(deadline time.Time) rove.Config {
	cfg := a.config
	cfg.Stateless = true
	if !deadline.IsZero() {
		cfg.Timeout = time.Until(deadline)
	}
	return cfg
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

// Compile-time check that Agent implements rove.Agent.
var _ rove.Agent = (*Agent)(nil)
