package expand

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

const (
	questionVar = "question"
	countVar    = "n_queries"

	questionPlaceholder = "{" + questionVar + "}"
	questionSuffix      = "\n\nUser question: " + questionPlaceholder
)

// DefaultPrompt is the instruction used when no template is configured.
const DefaultPrompt = "You are an expert at generating alternative search queries for a vector database.\n" +
	"Given the user question, produce {n_queries} diverse, concise search queries that preserve " +
	"the original intent. Output one query per line." + questionSuffix

// NormalizeTemplate trims the template, falls back to DefaultPrompt when it is
// blank and appends a question line when {question} is missing.
func NormalizeTemplate(template string) string {
	template = strings.TrimSpace(template)
	if template == "" {
		return DefaultPrompt
	}
	if !strings.Contains(template, questionPlaceholder) {
		template += questionSuffix
	}
	return template
}

// BuildPrompt renders template for question, asking for n queries.
func BuildPrompt(template, question string, n int) (string, error) {
	tmpl := prompts.PromptTemplate{
		Template:         NormalizeTemplate(template),
		InputVariables:   []string{questionVar},
		TemplateFormat:   prompts.TemplateFormatFString,
		PartialVariables: map[string]any{countVar: n},
	}

	prompt, err := tmpl.Format(map[string]any{questionVar: question})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	return prompt, nil
}
