package plansolve

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmelwick/rove"
	"github.com/jmelwick/rove/internal/tt"
)

func TestAgent_Run_ExecutesStepsInOrder(t *testing.T) {
	client := tt.NewClient().
		AddResponse("1. Compute A\n2. Compute B"). // planning
		AddResponse("Final Answer: result A").     // step 1 sub-loop
		AddResponse("Final Answer: result B").     // step 2 sub-loop
		AddResponse("A and B combined")            // aggregation

	agent := New(client)
	result, err := agent.Run(context.Background(), "compute A and B")
	require.NoError(t, err)

	assert.Equal(t, "A and B combined", result.FinalAnswer)
	assert.Equal(t, 4, result.StepsTaken)

	plan := agent.Plan()
	require.Len(t, plan, 2)
	assert.Equal(t, StepDone, plan[0].Status)
	assert.Equal(t, "result A", plan[0].Result)
	assert.Equal(t, StepDone, plan[1].Status)
	assert.Equal(t, "result B", plan[1].Result)

	// Step 2's prompt carried step 1's result.
	require.Len(t, client.CapturedHistories, 4)
	stepBTask := client.CapturedHistories[2][1].Content
	assert.Contains(t, stepBTask, "Compute B")
	assert.Contains(t, stepBTask, "result A")

	// The aggregation prompt carried both results.
	aggPrompt := client.CapturedHistories[3][len(client.CapturedHistories[3])-1].Content
	assert.Contains(t, aggPrompt, "result A")
	assert.Contains(t, aggPrompt, "result B")
}

func TestAgent_Run_FailedStepDoesNotStopExecution(t *testing.T) {
	client := tt.NewClient().
		AddResponse("1. Do A\n2. Do B").
		AddError(errors.New("model unavailable")). // step 1 sub-loop dies
		AddResponse("Final Answer: result B").     // step 2 still runs
		AddResponse("best effort answer")          // aggregation

	agent := New(client)
	result, err := agent.Run(context.Background(), "do A and B")
	require.NoError(t, err, "a failing step is recorded, not fatal")

	assert.Equal(t, "best effort answer", result.FinalAnswer)
	assert.Equal(t, 4, result.StepsTaken)

	plan := agent.Plan()
	require.Len(t, plan, 2)
	assert.Equal(t, StepFailed, plan[0].Status)
	assert.Contains(t, plan[0].Result, "model unavailable")
	assert.Equal(t, StepDone, plan[1].Status)
}

func TestAgent_Run_TimeoutStopsRemainingSteps(t *testing.T) {
	client := tt.NewClient().
		AddResponse("1. Do A\n2. Do B"). // planning
		AddResponse("Action: slow()")    // step 1 sub-loop

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
	result, err := agent.Run(context.Background(), "do A and B")

	require.ErrorIs(t, err, rove.ErrRunTimeout)
	require.NotNil(t, result, "partial result with the completed exchanges")
	assert.Equal(t, 2, result.StepsTaken, "planning plus the in-flight sub-loop call")
	assert.Empty(t, result.FinalAnswer)

	plan := agent.Plan()
	require.Len(t, plan, 2)
	assert.Equal(t, StepFailed, plan[0].Status)
	assert.Contains(t, plan[0].Result, "deadline exceeded")
	assert.Equal(t, StepPending, plan[1].Status, "steps after the deadline must not run")
}

func TestAgent_Run_UnparsablePlanIsFatal(t *testing.T) {
	client := tt.NewClient().
		AddResponse("I would rather not make a plan.")

	agent := New(client)
	result, err := agent.Run(context.Background(), "task")

	var planErr *rove.PlanParseError
	require.ErrorAs(t, err, &planErr)
	assert.Equal(t, "I would rather not make a plan.", planErr.Raw)

	require.NotNil(t, result, "partial result with the planning exchange")
	assert.Equal(t, 1, result.StepsTaken)
	assert.Equal(t, 1, client.CallCount(), "no steps may execute without a plan")
}

func TestAgent_Run_PlanningCallErrorIsFatal(t *testing.T) {
	client := tt.NewClient().
		AddError(errors.New("connection refused"))

	result, err := New(client).Run(context.Background(), "task")
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.StepsTaken)
}

func TestAgent_Run_TranscriptRecordsStepExchanges(t *testing.T) {
	client := tt.NewClient().
		AddResponse("1. Only step").
		AddResponse("Final Answer: step result").
		AddResponse("done")

	result, err := New(client).Run(context.Background(), "task")
	require.NoError(t, err)

	// system, user task, assistant plan, user step summary,
	// assistant step result, user aggregate, assistant final
	require.Equal(t, 7, result.History.Len())
	assert.Equal(t, "Execute step 1: Only step", result.History.At(3).Content)
	assert.Equal(t, "step result", result.History.At(4).Content)
	assert.Equal(t, string(StepDone), result.History.At(4).Metadata["step_status"])
}

func TestAgent_Run_PlannerPromptCarriesMaxSteps(t *testing.T) {
	client := tt.NewClient().
		AddResponse("1. Only step").
		AddResponse("Final Answer: r").
		AddResponse("done")

	agent := New(client).WithMaxPlanSteps(3)
	_, err := agent.Run(context.Background(), "task")
	require.NoError(t, err)

	system := client.CapturedHistories[0][0]
	require.Equal(t, rove.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "at most 3 steps")
}
