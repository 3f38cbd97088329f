package rove

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StepKind tags the outcome of parsing one assistant response.
type StepKind int

const (
	// StepUnparsable means neither a final answer nor an action was found.
	StepUnparsable StepKind = iota

	// StepAction means the response requests a tool invocation.
	StepAction

	// StepFinalAnswer means the response carries the final answer.
	StepFinalAnswer
)

// ToolCall is a parsed tool invocation. It is transient: constructed from
// one assistant message, consumed to produce an observation, then discarded.
type ToolCall struct {
	Name string
	Args map[string]string
}

// ParsedStep is the tagged result of parsing one assistant response.
// Loop code branches on Kind and never inspects raw model output itself.
type ParsedStep struct {
	Kind StepKind

	// Thought is the reasoning text, when present. Informational only.
	Thought string

	// Action is set when Kind is StepAction.
	Action *ToolCall

	// FinalAnswer is set when Kind is StepFinalAnswer.
	FinalAnswer string
}

// Markers recognized at the start of a line, case-insensitive.
const (
	markerThought     = "thought:"
	markerAction      = "action:"
	markerActionInput = "action input:"
	markerFinalAnswer = "final answer:"
)

// Parse extracts the reason/act/answer structure from one assistant
// response. Free-text parsing is fragile, so all of it is isolated here;
// the returned ParsedStep is the only thing agent loops look at.
//
// Recognized grammar, markers at line start (case-insensitive):
//
//	Thought: why the model is doing what it does
//	Action: tool_name
//	Action Input:
//	  arg: value
//	Final Answer: the answer text
//
// The action name line also accepts call syntax: tool_name(arg="value").
// A bare quoted argument is assigned to the "input" key. Action Input
// bodies are YAML mappings (JSON therefore also parses).
//
// When a response contains both a final answer and an action, the final
// answer wins: the loop always prefers terminating over acting.
func Parse(output string) *ParsedStep {
	sections := splitSections(output)

	step := &ParsedStep{Kind: StepUnparsable}
	if thought, ok := sections[markerThought]; ok {
		step.Thought = strings.TrimSpace(thought)
	}

	// Final answer takes precedence over action.
	if answer, ok := sections[markerFinalAnswer]; ok {
		if trimmed := strings.TrimSpace(answer); trimmed != "" {
			step.Kind = StepFinalAnswer
			step.FinalAnswer = trimmed
			return step
		}
	}

	actionLine, ok := sections[markerAction]
	if !ok {
		return step
	}
	call, err := parseAction(actionLine, sections[markerActionInput])
	if err != nil {
		return step
	}
	step.Kind = StepAction
	step.Action = call
	return step
}

// splitSections cuts the output into marker-delimited sections. Content
// runs from a marker to the next marker or end of output.
func splitSections(output string) map[string]string {
	markers := []string{markerActionInput, markerFinalAnswer, markerThought, markerAction}
	sections := make(map[string]string)

	current := ""
	var buf strings.Builder
	flush := func() {
		if current != "" {
			// First marker instance wins; repeats are appended.
			if prev, ok := sections[current]; ok {
				sections[current] = prev + "\n" + buf.String()
			} else {
				sections[current] = buf.String()
			}
		}
		buf.Reset()
	}

	for _, line := range strings.Split(output, "\n") {
		matched := false
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, marker := range markers {
			if !strings.HasPrefix(lower, marker) {
				continue
			}
			flush()
			current = marker
			rest := strings.TrimSpace(line)[len(marker):]
			buf.WriteString(strings.TrimSpace(rest))
			matched = true
			break
		}
		if !matched && current != "" {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(line)
		}
	}
	flush()

	return sections
}

// parseAction builds a ToolCall from the action section and the optional
// action-input section.
func parseAction(actionLine, inputBody string) (*ToolCall, error) {
	name := strings.TrimSpace(strings.Split(actionLine, "\n")[0])
	if name == "" {
		return nil, fmt.Errorf("empty action name")
	}

	call := &ToolCall{Args: map[string]string{}}

	// Call syntax: tool_name(arg="value", ...)
	if open := strings.Index(name, "("); open >= 0 && strings.HasSuffix(name, ")") {
		argsText := name[open+1 : len(name)-1]
		name = strings.TrimSpace(name[:open])
		if err := parseCallArgs(argsText, call.Args); err != nil {
			return nil, err
		}
	}

	if strings.ContainsAny(name, " \t") {
		return nil, fmt.Errorf("invalid action name %q", name)
	}
	call.Name = name

	if body := strings.TrimSpace(inputBody); body != "" {
		parsed := map[string]any{}
		if err := yaml.Unmarshal([]byte(body), &parsed); err != nil {
			return nil, fmt.Errorf("invalid action input: %w", err)
		}
		for k, v := range parsed {
			call.Args[k] = stringifyScalar(v)
		}
	}

	return call, nil
}

// parseCallArgs parses the inside of call syntax parentheses: comma
// separated key=value pairs, or a single bare value assigned to "input".
func parseCallArgs(text string, args map[string]string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, part := range splitTopLevel(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.Index(part, "=")
		if eq < 0 {
			args["input"] = unquote(part)
			continue
		}
		key := strings.TrimSpace(part[:eq])
		if key == "" {
			return fmt.Errorf("empty argument name in %q", part)
		}
		args[key] = unquote(strings.TrimSpace(part[eq+1:]))
	}
	return nil
}

// splitTopLevel splits on commas that are not inside quotes.
func splitTopLevel(text string) []string {
	var parts []string
	var buf strings.Builder
	var quote rune

	for _, r := range text {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			buf.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			buf.WriteRune(r)
		case r == ',':
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteRune(r)
		}
	}
	parts = append(parts, buf.String())
	return parts
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

func stringifyScalar(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}
