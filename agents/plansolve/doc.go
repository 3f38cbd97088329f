// Package plansolve implements the plan-then-execute agent strategy.
//
// One planning call decomposes the task into an ordered step list. Each
// step is then solved by an embedded reason-act-observe sub-loop, strictly
// in plan order, with prior step results as context. A failing step is
// recorded and execution continues: the aggregation call at the end
// synthesizes a final answer from whatever succeeded.
package plansolve
