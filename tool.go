package rove

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tool is a named capability an agent may invoke mid-reasoning.
//
// Execute may return any error; agent loops convert tool errors into
// observation text fed back to the model, so a failing tool never crashes a
// run.
type Tool interface {
	// Name returns the tool's identifier used in action parsing.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Execute runs the tool with the parsed arguments and returns the
	// observation text.
	Execute(ctx context.Context, args map[string]string) (string, error)
}

// SchemaProvider is an optional interface for tools that declare a JSON
// Schema for their arguments. When implemented, the registry validates
// arguments before execution and includes the schema in the tool catalog.
type SchemaProvider interface {
	// ParameterSchema returns the JSON Schema for the tool's arguments.
	// Returns nil if the tool takes no arguments.
	ParameterSchema() map[string]any
}

// ToolFunc adapts a plain function into a Tool.
type ToolFunc struct {
	name        string
	description string
	schema      map[string]any
	fn          func(ctx context.Context, args map[string]string) (string, error)
}

// NewToolFunc creates a Tool from a function. schema may be nil.
func NewToolFunc(
	name, description string,
	schema map[string]any,
	fn func(ctx context.Context, args map[string]string) (string, error),
) *ToolFunc {
	return &ToolFunc{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

// Name returns the tool's identifier.
func (t *ToolFunc) Name() string { return t.name }

// Description returns a human-readable description for the LLM.
func (t *ToolFunc) Description() string { return t.description }

// ParameterSchema returns the JSON Schema for the tool's arguments.
func (t *ToolFunc) ParameterSchema() map[string]any { return t.schema }

// Execute runs the wrapped function.
func (t *ToolFunc) Execute(ctx context.Context, args map[string]string) (string, error) {
	return t.fn(ctx, args)
}

// Registry resolves tool names to Tool values. The set of tools is closed
// at construction time: agents look names up, they never discover tools at
// runtime.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry creates a Registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds a tool to the registry. Returns the registry for chaining.
//
// Panics if the tool is nil, has an empty name, or a tool with the same name
// is already registered. Duplicate registration is a programming error, not
// a runtime condition.
func (r *Registry) Register(tool Tool) *Registry {
	if tool == nil {
		panic("rove: cannot register nil tool")
	}
	name := tool.Name()
	if name == "" {
		panic("rove: cannot register tool with empty name")
	}
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("rove: tool %q already registered", name))
	}
	r.tools[name] = tool
	return r
}

// Lookup returns the tool with the given name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.tools)
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Catalog renders the tool catalog for inclusion in a system prompt: each
// tool's name, description, and argument schema (YAML-rendered, indented).
// Returns "" when the registry is empty.
func (r *Registry) Catalog() string {
	if len(r.tools) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, name := range r.Names() {
		tool := r.tools[name]
		fmt.Fprintf(&sb, "- %s: %s\n", tool.Name(), tool.Description())

		sp, ok := tool.(SchemaProvider)
		if !ok || sp.ParameterSchema() == nil {
			continue
		}
		schemaYAML, err := yaml.Marshal(sp.ParameterSchema())
		if err != nil {
			continue
		}
		sb.WriteString("  Arguments:\n")
		for _, line := range strings.Split(strings.TrimRight(string(schemaYAML), "\n"), "\n") {
			sb.WriteString("    ")
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
