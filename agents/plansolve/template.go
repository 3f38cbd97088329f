package plansolve

import (
	"fmt"
	"strings"
)

// DefaultPlannerPrompt instructs the model to decompose the task into an
// ordered numbered list. The %d verb receives the maximum step count.
// Override via Agent.WithPlannerPrompt.
const DefaultPlannerPrompt = `You are a planning expert. Decompose the user's task into a short ordered plan of independent, executable steps, in strict logical order.

Output only the plan as a numbered list, one step per line, at most %d steps:
1. First step
2. Second step`

// DefaultAggregatePrompt instructs the model to synthesize the final answer
// from the executed plan. Override via Agent.WithAggregatePrompt.
const DefaultAggregatePrompt = `You executed a plan to solve a task. Using the step results below, write the final answer to the original task. If some steps failed, answer as well as possible from the steps that succeeded and note any gaps.`

func plannerSystemPrompt(prompt string, maxSteps int) string {
	if strings.Contains(prompt, "%d") {
		return fmt.Sprintf(prompt, maxSteps)
	}
	return prompt
}

// stepTask renders the task given to the per-step sub-loop: the original
// task, the full plan, results so far, and the current step.
func stepTask(task string, steps []PlanStep, current int) string {
	var sb strings.Builder
	sb.WriteString("You are executing one step of a plan.\n\n")
	fmt.Fprintf(&sb, "Original task:\n%s\n\nPlan:\n", task)
	for _, s := range steps {
		fmt.Fprintf(&sb, "%d. %s\n", s.Index+1, s.Description)
	}

	if current > 0 {
		sb.WriteString("\nCompleted steps:\n")
		for _, s := range steps[:current] {
			fmt.Fprintf(&sb, "%d. %s [%s]\n%s\n", s.Index+1, s.Description, s.Status, s.Result)
		}
	}

	fmt.Fprintf(&sb,
		"\nCurrent step:\n%s\n\nSolve only the current step and give its result as your final answer.",
		steps[current].Description,
	)
	return sb.String()
}

// stepSummaryPrompt is the user-side message recorded in the main
// transcript for one executed step.
func stepSummaryPrompt(step PlanStep) string {
	return fmt.Sprintf("Execute step %d: %s", step.Index+1, step.Description)
}

// aggregateTask renders the final synthesis prompt from the executed plan.
func aggregateTask(prompt, task string, steps []PlanStep) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	fmt.Fprintf(&sb, "\n\nOriginal task:\n%s\n\nExecuted plan:\n", task)
	for _, s := range steps {
		fmt.Fprintf(&sb, "%d. %s [%s]\nResult: %s\n\n", s.Index+1, s.Description, s.Status, s.Result)
	}
	sb.WriteString("Final answer:")
	return sb.String()
}
