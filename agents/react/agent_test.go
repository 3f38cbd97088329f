package react

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmelwick/rove"
	"github.com/jmelwick/rove/internal/tt"
	"github.com/jmelwick/rove/schema"
)

func echoTool() rove.Tool {
	return rove.NewToolFunc(
		"echo", "Echoes the input back.",
		schema.Object(map[string]*schema.Property{
			"input": schema.String("Text to echo"),
		}, "input"),
		func(_ context.Context, args map[string]string) (string, error) {
			return args["input"], nil
		},
	)
}

func failingTool() rove.Tool {
	return rove.NewToolFunc(
		"broken", "Always fails.", nil,
		func(_ context.Context, _ map[string]string) (string, error) {
			return "", errors.New("disk on fire")
		},
	)
}

// toolMessages filters the transcript down to tool observations.
func toolMessages(h *rove.History) []rove.Message {
	var out []rove.Message
	for _, msg := range h.Messages() {
		if msg.Role == rove.RoleTool {
			out = append(out, msg)
		}
	}
	return out
}

func TestAgent_Run_DirectFinalAnswer(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Thought: easy one\nFinal Answer: 42")

	result, err := New(client).Run(context.Background(), "what is 6*7?")
	require.NoError(t, err)

	assert.Equal(t, "42", result.FinalAnswer)
	assert.Equal(t, 1, result.StepsTaken)
	assert.NotEmpty(t, result.RunID)

	// system, user task, assistant answer
	require.NotNil(t, result.History)
	require.Equal(t, 3, result.History.Len())
	assert.Equal(t, rove.RoleSystem, result.History.At(0).Role)
	assert.Equal(t, "what is 6*7?", result.History.At(1).Content)
}

func TestAgent_Run_ToolExecution(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Thought: I should echo it.\nAction: echo(\"hi\")").
		AddResponse("Final Answer: done")

	agent := New(client).RegisterTool(echoTool())
	result, err := agent.Run(context.Background(), "echo hi, then say done")
	require.NoError(t, err)

	assert.Equal(t, "done", result.FinalAnswer)
	assert.Equal(t, 2, result.StepsTaken)

	obs := toolMessages(result.History)
	require.Len(t, obs, 1)
	assert.Equal(t, "hi", obs[0].Content)
	assert.Equal(t, "echo", obs[0].Metadata["tool"])
}

func TestAgent_Run_MaxStepsMakesExactlyNCalls(t *testing.T) {
	// The model proposes an action every time, so the loop can only stop
	// on the step budget.
	client := tt.NewClient().
		AddResponse("Action: echo(\"again\")")

	cfg := rove.DefaultConfig()
	cfg.MaxSteps = 3

	agent := New(client).RegisterTool(echoTool()).WithConfig(cfg)
	result, err := agent.Run(context.Background(), "loop forever")

	require.ErrorIs(t, err, rove.ErrMaxStepsExceeded)
	assert.Equal(t, 3, client.CallCount())
	assert.Equal(t, 3, result.StepsTaken)
	assert.NotNil(t, result.History, "partial transcript must be returned")
	assert.Empty(t, result.FinalAnswer)
}

func TestAgent_Run_TimeoutReturnsPartialResult(t *testing.T) {
	// The tool outlives the deadline, so the deadline check after the first
	// full step is the earliest point the loop can stop.
	client := tt.NewClient().
		AddResponse("Action: slow()")

	slow := rove.NewToolFunc(
		"slow", "Takes a while.", nil,
		func(_ context.Context, _ map[string]string) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return "finally", nil
		},
	)

	cfg := rove.DefaultConfig()
	cfg.Timeout = 20 * time.Millisecond

	agent := New(client).RegisterTool(slow).WithConfig(cfg)
	result, err := agent.Run(context.Background(), "take your time")

	require.ErrorIs(t, err, rove.ErrRunTimeout)
	assert.Equal(t, 1, client.CallCount(), "the in-flight step completes before the loop stops")
	assert.Equal(t, 1, result.StepsTaken)
	assert.Empty(t, result.FinalAnswer)

	obs := toolMessages(result.History)
	require.Len(t, obs, 1, "the completed step's observation must be in the partial transcript")
	assert.Equal(t, "finally", obs[0].Content)
}

func TestAgent_Run_ToolNotFoundBecomesObservation(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Action: missing()").
		AddResponse("Final Answer: recovered")

	agent := New(client).RegisterTool(echoTool())
	result, err := agent.Run(context.Background(), "use a tool")
	require.NoError(t, err)

	assert.Equal(t, "recovered", result.FinalAnswer)
	obs := toolMessages(result.History)
	require.Len(t, obs, 1)
	assert.Contains(t, obs[0].Content, `tool "missing" not found`)
	assert.Contains(t, obs[0].Content, "echo")
}

func TestAgent_Run_ToolErrorBecomesObservation(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Action: broken()").
		AddResponse("Final Answer: gave up")

	agent := New(client).RegisterTool(failingTool())
	result, err := agent.Run(context.Background(), "break something")
	require.NoError(t, err, "tool failures are never fatal")

	obs := toolMessages(result.History)
	require.Len(t, obs, 1)
	assert.Contains(t, obs[0].Content, "disk on fire")
}

func TestAgent_Run_InvalidArgumentsBecomeObservation(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Action: echo()"). // missing required "input"
		AddResponse("Final Answer: fine")

	agent := New(client).RegisterTool(echoTool())
	result, err := agent.Run(context.Background(), "echo nothing")
	require.NoError(t, err)

	obs := toolMessages(result.History)
	require.Len(t, obs, 1)
	assert.Contains(t, obs[0].Content, `invalid arguments for "echo"`)
}

func TestAgent_Run_ParseRetry(t *testing.T) {
	client := tt.NewClient().
		AddResponse("I will now think very hard about this.").
		AddResponse("Final Answer: ok")

	result, err := New(client).Run(context.Background(), "task")
	require.NoError(t, err)

	assert.Equal(t, "ok", result.FinalAnswer)
	assert.Equal(t, 2, result.StepsTaken)

	// The corrective note goes in as a user message so the system message
	// stays single and first.
	var notes []rove.Message
	for _, msg := range result.History.Messages() {
		if msg.Role == rove.RoleUser && msg.Content == correctiveNote {
			notes = append(notes, msg)
		}
	}
	require.Len(t, notes, 1)
}

func TestAgent_Run_ParseRetriesExhausted(t *testing.T) {
	client := tt.NewClient().
		AddResponse("gibberish")

	cfg := rove.DefaultConfig()
	cfg.MaxParseRetries = 1

	result, err := New(client).WithConfig(cfg).Run(context.Background(), "task")

	var parseErr *rove.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "gibberish", parseErr.Raw)
	assert.Equal(t, 2, client.CallCount(), "one attempt plus one retry")
	assert.NotNil(t, result.History)
}

func TestAgent_Run_ModelErrorIsFatal(t *testing.T) {
	boom := &rove.RequestError{Err: errors.New("connection refused")}
	client := tt.NewClient().AddError(boom)

	result, err := New(client).Run(context.Background(), "task")

	var reqErr *rove.RequestError
	require.ErrorAs(t, err, &reqErr)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.StepsTaken)
	assert.NotNil(t, result.History)
}

func TestAgent_Run_SystemPromptContainsCatalog(t *testing.T) {
	client := tt.NewClient().AddResponse("Final Answer: done")

	agent := New(client).
		RegisterTool(echoTool()).
		WithSystemPrompt("Answer in French.")
	_, err := agent.Run(context.Background(), "task")
	require.NoError(t, err)

	require.NotEmpty(t, client.CapturedHistories)
	system := client.CapturedHistories[0][0]
	assert.Equal(t, rove.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "echo: Echoes the input back.")
	assert.Contains(t, system.Content, "Answer in French.")
	assert.Contains(t, system.Content, "Final Answer:")
}

func TestAgent_Run_ConversationalModeRetainsHistory(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Final Answer: first").
		AddResponse("Final Answer: second")

	cfg := rove.DefaultConfig()
	cfg.Stateless = false

	agent := New(client).WithConfig(cfg)

	first, err := agent.Run(context.Background(), "one")
	require.NoError(t, err)
	second, err := agent.Run(context.Background(), "two")
	require.NoError(t, err)

	// system, user one, assistant first, user two, assistant second
	require.NotNil(t, agent.History())
	assert.Equal(t, 5, agent.History().Len())

	// Each Result snapshots the transcript as of its own run.
	assert.Equal(t, 3, first.History.Len())
	assert.Equal(t, 5, second.History.Len())

	// The second call saw the first exchange.
	require.Len(t, client.CapturedHistories, 2)
	assert.Equal(t, "first", client.CapturedHistories[1][2].Content)

	agent.Reset()
	assert.Nil(t, agent.History())
}

func TestAgent_Run_StatelessModeStartsFresh(t *testing.T) {
	client := tt.NewClient().
		AddResponse("Final Answer: first").
		AddResponse("Final Answer: second")

	agent := New(client)

	_, err := agent.Run(context.Background(), "one")
	require.NoError(t, err)
	_, err = agent.Run(context.Background(), "two")
	require.NoError(t, err)

	require.Len(t, client.CapturedHistories, 2)
	assert.Len(t, client.CapturedHistories[1], 2, "second run must not carry the first exchange")
}
