package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/go-go-golems/convogen/pkg/engine"
)

// Scenario is one generated conversation premise: a concrete situation
// within the batch topic and the persona of the user living it.
type Scenario struct {
	Situation string `json:"situation"`
	Persona   string `json:"user_persona"`
}

const scenarioPromptTemplate = `You are helping build a dataset of simulated conversations about '{{ .Topic }}'.
Invent {{ .Count }} distinct scenarios. Each scenario has a concrete situation within the topic
and a short description of the user asking about it.

Respond with ONLY a JSON array, no preamble, in this exact shape:
[{"situation": "...", "user_persona": "..."}]`

const scenarioSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["situation", "user_persona"],
		"properties": {
			"situation": {"type": "string", "minLength": 1},
			"user_persona": {"type": "string", "minLength": 1}
		}
	}
}`

// Generator derives per-conversation scenarios from the batch topic with a
// single completion call, so one request for N conversations yields N
// distinct premises.
type Generator struct {
	engine engine.Engine
}

func NewGenerator(eng engine.Engine) (*Generator, error) {
	if eng == nil {
		return nil, errors.New("nil engine")
	}
	return &Generator{engine: eng}, nil
}

// Generate returns exactly count scenarios. The model may return fewer than
// asked; in that case the list cycles to fill the count. An empty or invalid
// response is an error and aborts the batch before any generation starts.
func (g *Generator) Generate(ctx context.Context, topic string, count int) ([]Scenario, error) {
	if count < 1 {
		return nil, errors.Errorf("scenario count must be >= 1, got %d", count)
	}

	tmpl := template.Must(template.New("scenarios").Funcs(sprig.FuncMap()).Parse(scenarioPromptTemplate))
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{"Topic": topic, "Count": count}); err != nil {
		return nil, errors.Wrap(err, "render scenario prompt")
	}

	raw, err := g.engine.Complete(ctx, buf.String())
	if err != nil {
		return nil, errors.Wrap(err, "scenario completion")
	}

	doc := stripCodeFences(raw)
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(scenarioSchema),
		gojsonschema.NewStringLoader(doc),
	)
	if err != nil {
		return nil, errors.Wrap(err, "validate scenario response")
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, d := range result.Errors() {
			descs = append(descs, d.String())
		}
		return nil, errors.Errorf("scenario response failed schema validation: %s", strings.Join(descs, "; "))
	}

	var scenarios []Scenario
	if err := json.Unmarshal([]byte(doc), &scenarios); err != nil {
		return nil, errors.Wrap(err, "unmarshal scenarios")
	}

	if len(scenarios) < count {
		log.Warn().
			Int("requested", count).
			Int("received", len(scenarios)).
			Msg("model returned fewer scenarios than requested, cycling")
		n := len(scenarios)
		for i := 0; len(scenarios) < count; i++ {
			scenarios = append(scenarios, scenarios[i%n])
		}
	}

	return scenarios[:count], nil
}

// stripCodeFences unwraps a ```json ... ``` fenced response into the bare
// document.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
