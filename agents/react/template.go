package react

import (
	"bytes"
	_ "embed"
	"text/template"
)

//go:embed system.tmpl
var systemTemplateContent string

// SystemPromptData contains the data passed to the system prompt template.
type SystemPromptData struct {
	// ToolCatalog lists the registered tools with their argument schemas.
	// Empty when no tools are registered.
	ToolCatalog string

	// ExtraInstructions is additional context from Agent.WithSystemPrompt.
	ExtraInstructions string
}

// DefaultSystemTemplate explains the think-act-observe loop and the output
// grammar to the model. Replace it via Agent.WithSystemTemplate for full
// control over prompting.
var DefaultSystemTemplate = template.Must(
	template.New("react_system").Parse(systemTemplateContent),
)

// ExecuteTemplate executes a system prompt template with the given data.
func ExecuteTemplate(tmpl *template.Template, data SystemPromptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
