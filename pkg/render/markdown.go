package render

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

// Markdown rendering of a conversation record, for eyeballing generated data
// without digging through JSON.

const transcriptTemplate = `# Conversation {{ .ID }}

- **Topic:** {{ .Topic }}
- **Persona:** {{ .Persona }}
- **Created:** {{ .CreatedAt.Format "2006-01-02 15:04:05 MST" }}
- **Status:** {{ .Status }}
- **Turns:** {{ .Stats.TotalTurns }} ({{ .Stats.TotalTokens }} tokens, {{ .Stats.TotalLatencyMS }}ms total latency)

## Summary

{{ .Summary }}

## Transcript
{{ range .Turns }}
### Turn {{ .Index }} — {{ title (printf "%s" .Role) }}

{{ .Content }}

*{{ .Tokens }} tokens, {{ .LatencyMS }}ms*
{{- range .ToolCalls }}

> **Tool call:** ` + "`{{ .Name }}`" + ` ({{ .LatencyMS }}ms)
{{- range $k, $v := .Arguments }}
> - {{ $k }}: {{ $v }}
{{- end }}
>
> {{ .Result }}
{{- end }}
{{ end }}`

// Transcript renders a conversation as a markdown document.
func Transcript(conv *conversation.Conversation) (string, error) {
	tmpl, err := template.New("transcript").Funcs(sprig.FuncMap()).Parse(transcriptTemplate)
	if err != nil {
		return "", errors.Wrap(err, "parse transcript template")
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, conv); err != nil {
		return "", errors.Wrap(err, "render transcript")
	}
	return buf.String(), nil
}
