package generation

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// DefaultPromptTemplate is the user message sent for a query.
const DefaultPromptTemplate = "Please summarize the following query: {{.Query}}."

// promptData represents the data passed to the prompt template
type promptData struct {
	Query string
}

// PromptRenderer renders the user message for a query.
type PromptRenderer struct {
	tmpl *template.Template
}

// NewPromptRenderer parses a text/template with a {{.Query}} placeholder.
// An empty template selects DefaultPromptTemplate.
func NewPromptRenderer(text string) (*PromptRenderer, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultPromptTemplate
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v", ErrInvalidConfig, err)
	}
	return &PromptRenderer{tmpl: tmpl}, nil
}

// Render executes the template for query.
func (p *PromptRenderer) Render(query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}

	var buf bytes.Buffer
	if err := p.tmpl.Execute(&buf, promptData{Query: query}); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}
	return buf.String(), nil
}
