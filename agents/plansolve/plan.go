package plansolve

import (
	"regexp"
	"strings"
)

// StepStatus is the lifecycle state of one plan step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in_progress"
	StepDone       StepStatus = "done"
	StepFailed     StepStatus = "failed"
)

// PlanStep is one step of an execution plan. Steps are produced in order by
// the planning phase and executed strictly in index order; a step is owned
// by a single run.
type PlanStep struct {
	Index       int
	Description string
	Status      StepStatus

	// Result holds the step's answer when Status is StepDone, or the
	// error text when Status is StepFailed.
	Result string
}

var (
	numberedLine = regexp.MustCompile(`^\s*(\d+)[.):]\s+(.+)$`)
	bulletLine   = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
)

// parsePlan recovers an ordered step list from a planner response. It
// accepts numbered lines ("1. ...", "2) ...") and bullet lines ("- ...");
// code fences and blank lines are skipped. Returns nil when no steps are
// found.
func parsePlan(output string) []PlanStep {
	var steps []PlanStep
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, " \t")
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}

		var description string
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			description = m[2]
		} else if m := bulletLine.FindStringSubmatch(line); m != nil {
			description = m[1]
		} else {
			continue
		}

		description = strings.TrimSpace(description)
		if description == "" {
			continue
		}
		steps = append(steps, PlanStep{
			Index:       len(steps),
			Description: description,
			Status:      StepPending,
		})
	}
	return steps
}
