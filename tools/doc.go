// Package tools provides built-in tools for agents: workspace-scoped file
// access and web search. All tools declare parameter schemas, so agent
// loops validate arguments before execution.
package tools

import "github.com/jmelwick/rove"

var (
	_ rove.Tool           = (*ReadFile)(nil)
	_ rove.Tool           = (*WriteFile)(nil)
	_ rove.Tool           = (*ListFiles)(nil)
	_ rove.Tool           = (*Search)(nil)
	_ rove.SchemaProvider = (*ReadFile)(nil)
	_ rove.SchemaProvider = (*WriteFile)(nil)
	_ rove.SchemaProvider = (*ListFiles)(nil)
	_ rove.SchemaProvider = (*Search)(nil)
)
