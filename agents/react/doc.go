// Package react implements the reason-act-observe agent strategy.
//
// Each iteration the agent asks the model to think, then either call a tool
// (Action) or terminate (Final Answer). Tool output is appended to the
// transcript as an observation and the loop continues until a final answer,
// the step budget, or the run deadline is reached.
package react
