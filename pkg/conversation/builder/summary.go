package builder

import (
	"bytes"
	"context"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/convogen/pkg/conversation"
)

const summaryPromptTemplate = `Summarize the following conversation between a user and an AI assistant in one or two sentences.
Mention the topic and what the user was trying to accomplish. Do not add any preamble.

--- CONVERSATION ---
{{ .Transcript }}
--- END CONVERSATION ---`

const maxSummaryChars = 500

// summarize derives the conversation summary through the engine, falling back
// to a local excerpt when the completion fails. Summary failures never fail
// the build; the transcript itself is already complete.
func (b *Builder) summarize(ctx context.Context, conv *conversation.Conversation) string {
	tmpl := template.Must(template.New("summary").Funcs(sprig.FuncMap()).Parse(summaryPromptTemplate))

	var transcript strings.Builder
	for _, t := range conv.Turns {
		label := "User"
		if t.Role == conversation.RoleAssistant {
			label = "Assistant"
		}
		transcript.WriteString(label + ": " + t.Content + "\n")
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"Transcript": transcript.String()}); err != nil {
		log.Warn().Err(err).Msg("summary prompt rendering failed, using excerpt")
		return excerptSummary(conv)
	}

	summary, err := b.engine.Complete(ctx, buf.String())
	if err != nil {
		log.Warn().
			Err(err).
			Str("conversation_id", conv.ID).
			Msg("summary completion failed, using excerpt")
		return excerptSummary(conv)
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return excerptSummary(conv)
	}
	return truncate(summary, maxSummaryChars)
}

// excerptSummary builds a local fallback summary from the opening question
// and the closing answer.
func excerptSummary(conv *conversation.Conversation) string {
	if len(conv.Turns) == 0 {
		return "Conversation about " + conv.Topic + "."
	}
	first := conv.Turns[0].Content
	last := conv.Turns[len(conv.Turns)-1].Content
	return truncate("The user asked: "+first+" The conversation ended with: "+last, maxSummaryChars)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
