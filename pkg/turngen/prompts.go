package turngen

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

// Prompt construction is the only place topic and persona context enters the
// pipeline. History is folded in oldest-first, bounded by the configured
// window.

const initialUserPromptTemplate = `You are simulating a user talking to an AI assistant.
Your persona: '{{ .Persona }}'.
The conversation topic: '{{ .Topic }}'.
{{- if .Tools }}
The assistant has access to these tools: {{ join ", " .Tools }}.
{{- end }}
Generate a single, short, initial question a user would ask about this topic.
Do not add any preamble or explanation. Just provide the question.`

const followupUserPromptTemplate = `You are simulating a user in an ongoing conversation with an AI assistant.
Your persona: '{{ .Persona }}'.

Here is the conversation history so far:
--- HISTORY ---
{{ .History }}
--- END HISTORY ---

Based on the assistant's last response and the entire conversation context, generate a single, short, relevant follow-up question.
Do not add any preamble or explanation. Just provide the next question from the user's perspective.`

const assistantPromptTemplate = `You are an advanced, helpful AI assistant.

Here is the conversation history so far. The last message is the user's current query.
--- HISTORY ---
{{ .History }}
--- END HISTORY ---
{{- if .ToolOutputs }}

You have just used your internal tools to gather information for your response and received the following data:
--- TOOL OUTPUTS ---
{{- range .ToolOutputs }}
- {{ . }}
{{- end }}
--- END TOOL OUTPUTS ---

Synthesize the information from your tools into a concise, conversational, and helpful response.
Do not mention your tools explicitly (e.g., don't say "my tool says...").
{{- else }}

Write a concise, conversational, and helpful response.
{{- end }}
Your response must directly address the user's last message, continuing the conversation naturally.`

type promptData struct {
	Persona     string
	Topic       string
	History     string
	Tools       []string
	ToolOutputs []string
}

func renderPrompt(name, tmplStr string, data promptData) (string, error) {
	tmpl, err := template.New(name).Funcs(sprig.FuncMap()).Parse(tmplStr)
	if err != nil {
		return "", errors.Wrapf(err, "parse %s prompt template", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render %s prompt", name)
	}
	return buf.String(), nil
}

// formatHistory renders the last `window` turns oldest-first as a readable
// transcript. window <= 0 means no bound.
func formatHistory(history []conversation.Turn, window int) string {
	if len(history) == 0 {
		return "This is the beginning of the conversation."
	}
	turns := history
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		label := "User"
		if t.Role == conversation.RoleAssistant {
			label = "Assistant"
		}
		lines = append(lines, label+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}

// lastUserContent returns the content of the most recent user turn in the
// history, or the empty string when there is none.
func lastUserContent(history []conversation.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == conversation.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
