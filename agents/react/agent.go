package react

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jmelwick/rove"
	"github.com/jmelwick/rove/schema"
)

// Agent implements the ReAct loop: Thinking -> (Acting -> Observing)* ->
// Finishing.
//
// Configure with the builder methods, then call Run. An Agent must not
// serve concurrent runs; with Config.Stateless (the default) each Run
// starts from a fresh transcript, so sequential reuse is safe.
type Agent struct {
	client         rove.Client
	tools          *rove.Registry
	config         rove.Config
	extra          string
	systemTemplate *template.Template

	// Retained transcript in conversational mode (Config.Stateless false).
	history *rove.History

	// Compiled argument schemas, built once per tool name.
	schemas map[string]*schema.Schema
}

// New creates a ReAct agent with the given client, an empty tool registry,
// and rove.DefaultConfig().
func New(client rove.Client) *Agent {
	return &Agent{
		client:         client,
		tools:          rove.NewRegistry(),
		config:         rove.DefaultConfig(),
		systemTemplate: DefaultSystemTemplate,
		schemas:        make(map[string]*schema.Schema),
	}
}

// WithConfig sets the loop-control configuration.
func (a *Agent) WithConfig(cfg rove.Config) *Agent {
	a.config = cfg
	return a
}

// WithTools replaces the tool registry.
func (a *Agent) WithTools(tools *rove.Registry) *Agent {
	a.tools = tools
	return a
}

// RegisterTool adds a tool to the agent's registry.
func (a *Agent) RegisterTool(tool rove.Tool) *Agent {
	a.tools.Register(tool)
	return a
}

// WithSystemPrompt sets extra instructions appended to the default system
// prompt. This does not replace the ReAct grammar instructions; use
// WithSystemTemplate for full control.
func (a *Agent) WithSystemPrompt(extra string) *Agent {
	a.extra = extra
	return a
}

// WithSystemTemplate replaces the system prompt template. See
// DefaultSystemTemplate for the expected data fields.
func (a *Agent) WithSystemTemplate(tmpl *template.Template) *Agent {
	a.systemTemplate = tmpl
	return a
}

// History returns the retained transcript in conversational mode. Nil
// before the first run or in stateless mode.
func (a *Agent) History() *rove.History {
	return a.history
}

// Reset discards the retained transcript so the next conversational run
// starts fresh.
func (a *Agent) Reset() {
	a.history = nil
}

// Run executes the task. On fatal errors the partial Result is returned
// alongside the error; the transcript is never discarded.
func (a *Agent) Run(ctx context.Context, task string) (*rove.Result, error) {
	history, err := a.historyForRun()
	if err != nil {
		return nil, err
	}
	if err := history.Append(rove.NewMessage(rove.RoleUser, task)); err != nil {
		return nil, err
	}

	result := &rove.Result{RunID: uuid.NewString()}
	log := a.config.Logger.With().
		Str("agent", "react").
		Str("run_id", result.RunID).
		Logger()
	log.Debug().Str("task", task).Msg("run started")

	var deadline time.Time
	if a.config.Timeout > 0 {
		deadline = time.Now().Add(a.config.Timeout)
	}

	finish := func(err error) (*rove.Result, error) {
		result.History = a.snapshot(history)
		return result, err
	}

	parseRetries := 0
	for {
		if result.StepsTaken >= a.config.MaxSteps {
			log.Warn().Int("steps", result.StepsTaken).Msg("step budget exhausted")
			return finish(fmt.Errorf("%w: exceeded %d steps", rove.ErrMaxStepsExceeded, a.config.MaxSteps))
		}
		if expired(deadline) {
			return finish(rove.ErrRunTimeout)
		}

		// Thinking.
		msg, err := a.client.Invoke(ctx, history, a.config.CallOptions...)
		result.StepsTaken++
		if err != nil {
			log.Error().Err(err).Msg("model call failed")
			return finish(err)
		}
		if appendErr := history.Append(msg); appendErr != nil {
			return finish(appendErr)
		}

		step := rove.Parse(msg.Content)
		switch step.Kind {
		case rove.StepFinalAnswer:
			// Finishing. Final answer wins over a co-present action.
			result.FinalAnswer = step.FinalAnswer
			log.Debug().Int("steps", result.StepsTaken).Msg("run finished")
			return finish(nil)

		case rove.StepAction:
			// Acting. Tool failures of any kind become observations; the
			// model gets the chance to self-correct.
			parseRetries = 0
			observation := a.executeAction(ctx, log, step.Action)

			// Observing.
			obs := rove.Message{
				Role:     rove.RoleTool,
				Content:  observation,
				Metadata: map[string]string{"tool": step.Action.Name},
			}
			if appendErr := history.Append(obs); appendErr != nil {
				return finish(appendErr)
			}

		case rove.StepUnparsable:
			if parseRetries >= a.config.MaxParseRetries {
				log.Warn().Msg("parse retries exhausted")
				return finish(&rove.ParseError{Raw: msg.Content})
			}
			parseRetries++
			log.Debug().Int("retry", parseRetries).Msg("unparsable output, adding corrective note")
			note := rove.NewMessage(rove.RoleUser, correctiveNote)
			if appendErr := history.Append(note); appendErr != nil {
				return finish(appendErr)
			}
		}
	}
}

// correctiveNote is sent as a user message rather than a system message so
// the single-system-first history invariant holds.
const correctiveNote = "Your last response did not match the required format. " +
	"Respond with either an Action (and Action Input) to call a tool, " +
	"or a Final Answer, using the exact markers."

// executeAction resolves and runs one tool call, returning the observation
// text. Never returns an error: unknown tools, invalid arguments, and tool
// failures all become observations.
func (a *Agent) executeAction(ctx context.Context, log zerolog.Logger, call *rove.ToolCall) string {
	tool, ok := a.tools.Lookup(call.Name)
	if !ok {
		log.Debug().Str("tool", call.Name).Msg("tool not found")
		return fmt.Sprintf(
			"tool %q not found; available tools: %s",
			call.Name, strings.Join(a.tools.Names(), ", "),
		)
	}

	if sch := a.schemaFor(tool); sch != nil {
		if err := sch.Validate(call.Args); err != nil {
			log.Debug().Str("tool", call.Name).Err(err).Msg("argument validation failed")
			return fmt.Sprintf("invalid arguments for %q: %v", call.Name, err)
		}
	}

	start := time.Now()
	output, err := tool.Execute(ctx, call.Args)
	log.Debug().
		Str("tool", call.Name).
		Dur("duration", time.Since(start)).
		Err(err).
		Msg("tool executed")
	if err != nil {
		return fmt.Sprintf("tool %q failed: %v", call.Name, err)
	}
	return output
}

// schemaFor returns the compiled argument schema for a tool, or nil when
// the tool declares none or the schema does not compile.
func (a *Agent) schemaFor(tool rove.Tool) *schema.Schema {
	if compiled, ok := a.schemas[tool.Name()]; ok {
		return compiled
	}

	var compiled *schema.Schema
	if sp, ok := tool.(rove.SchemaProvider); ok && sp.ParameterSchema() != nil {
		c, err := schema.Compile(sp.ParameterSchema())
		if err == nil {
			compiled = c
		} else {
			a.config.Logger.Warn().
				Str("tool", tool.Name()).
				Err(err).
				Msg("tool schema does not compile, skipping validation")
		}
	}
	a.schemas[tool.Name()] = compiled
	return compiled
}

// historyForRun returns the transcript for this run: a fresh seeded history
// in stateless mode, the retained one otherwise.
func (a *Agent) historyForRun() (*rove.History, error) {
	if a.config.Stateless || a.history == nil {
		prompt, err := a.systemPrompt()
		if err != nil {
			return nil, err
		}
		h := rove.NewHistoryWithSystem(prompt)
		if !a.config.Stateless {
			a.history = h
		}
		return h, nil
	}
	return a.history, nil
}

// snapshot returns the history to place in a Result. Conversational agents
// keep appending to their transcript, so the Result gets a copy.
func (a *Agent) snapshot(history *rove.History) *rove.History {
	if a.config.Stateless {
		return history
	}
	return history.Clone()
}

func (a *Agent) systemPrompt() (string, error) {
	return ExecuteTemplate(a.systemTemplate, SystemPromptData{
		ToolCatalog:       a.tools.Catalog(),
		ExtraInstructions: a.extra,
	})
}

func expired(deadline time.Time) bool {
	return !deadline.IsZero() && time.Now().After(deadline)
}

// Compile-time check that Agent implements rove.Agent.
var _ rove.Agent = (*Agent)(nil)
