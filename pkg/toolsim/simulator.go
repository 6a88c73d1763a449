package toolsim

import (
	"bytes"
	"encoding/json"
	"math/rand"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/metrics"
)

// Simulator builds simulated tool invocations: a catalog tool name, synthetic
// arguments valid against the tool's schema, a rendered result string, and
// metrics from the synthesizer. No tool is ever actually executed.
//
// Like the metrics synthesizer, a Simulator is bound to one conversation
// build's random source and is not safe for concurrent use.
type Simulator struct {
	catalog *Catalog
	naming  NamingStrategy
	metrics *metrics.Synthesizer
	rng     *rand.Rand
}

func NewSimulator(catalog *Catalog, naming NamingStrategy, synth *metrics.Synthesizer, rng *rand.Rand) (*Simulator, error) {
	if catalog == nil {
		return nil, errors.New("nil catalog")
	}
	if naming == nil {
		naming = NewKeywordStrategy(catalog)
	}
	if synth == nil {
		return nil, errors.New("nil metrics synthesizer")
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	return &Simulator{catalog: catalog, naming: naming, metrics: synth, rng: rng}, nil
}

// Catalog exposes the simulator's tool registry, mostly for prompt builders
// that want to describe the available tools.
func (s *Simulator) Catalog() *Catalog {
	return s.catalog
}

// Simulate picks a topic-relevant tool and builds one invocation for it.
func (s *Simulator) Simulate(topic string, lastUserMessage string) (conversation.ToolCall, error) {
	names := s.naming.SelectTools(s.rng, topic, lastUserMessage, 1)
	if len(names) == 0 {
		return conversation.ToolCall{}, errors.New("naming strategy selected no tool")
	}
	return s.SimulateNamed(names[0])
}

// SimulateNamed builds one invocation of the named catalog tool.
func (s *Simulator) SimulateNamed(name string) (conversation.ToolCall, error) {
	def, ok := s.catalog.Tools[name]
	if !ok {
		return conversation.ToolCall{}, errors.Errorf("tool %q not in catalog", name)
	}

	args := s.synthesizeArgs(def)
	if err := s.validateArgs(def, args); err != nil {
		return conversation.ToolCall{}, err
	}

	result, err := s.renderResult(def, args)
	if err != nil {
		return conversation.ToolCall{}, err
	}

	tokens, latencyMS := s.metrics.Synthesize(result, metrics.KindToolCall)

	log.Debug().
		Str("tool", name).
		Int("latency_ms", latencyMS).
		Msg("simulated tool call")

	return conversation.ToolCall{
		Name:      name,
		Arguments: args,
		Result:    result,
		Tokens:    tokens,
		LatencyMS: latencyMS,
	}, nil
}

// synthesizeArgs draws a random-but-valid value for every declared parameter,
// iterating in sorted parameter order so the rng sequence is reproducible.
func (s *Simulator) synthesizeArgs(def Definition) map[string]interface{} {
	args := make(map[string]interface{}, len(def.Params))
	for _, name := range def.ParamNames() {
		p := def.Params[name]
		switch {
		case len(p.Enum) > 0:
			args[name] = p.Enum[s.rng.Intn(len(p.Enum))]
		case p.Type == ParamInt:
			lo, hi := p.Min, p.Max
			if hi <= lo {
				lo, hi = 1, 100
			}
			args[name] = lo + s.rng.Intn(hi-lo+1)
		case p.Type == ParamFloat:
			args[name] = float64(1+s.rng.Intn(100)) + float64(s.rng.Intn(100))/100.0
		case p.Type == ParamBool:
			args[name] = s.rng.Intn(2) == 1
		case len(p.Samples) > 0:
			args[name] = p.Samples[s.rng.Intn(len(p.Samples))]
		default:
			args[name] = "synthetic_value"
		}
	}
	return args
}

// validateArgs checks the synthesized arguments against the tool's JSON
// schema before the call gets attached to a turn.
func (s *Simulator) validateArgs(def Definition, args map[string]interface{}) error {
	schemaJSON, err := def.SchemaJSON()
	if err != nil {
		return err
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return errors.Wrapf(err, "marshal arguments for tool %s", def.Name)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(argsJSON),
	)
	if err != nil {
		return errors.Wrapf(err, "validate arguments for tool %s", def.Name)
	}
	if !result.Valid() {
		descs := make([]string, 0, len(result.Errors()))
		for _, d := range result.Errors() {
			descs = append(descs, d.String())
		}
		return errors.Errorf("tool %s arguments failed schema validation: %s",
			def.Name, strings.Join(descs, "; "))
	}
	return nil
}

// renderResult fills the tool's result template with the arguments plus a set
// of synthetic observation values the templates can draw on.
func (s *Simulator) renderResult(def Definition, args map[string]interface{}) (string, error) {
	tmpl, err := template.New(def.Name).Funcs(sprig.FuncMap()).Parse(def.ResultTemplate)
	if err != nil {
		return "", errors.Wrapf(err, "parse result template for tool %s", def.Name)
	}

	data := map[string]interface{}{
		"Args": args,
		"Values": map[string]interface{}{
			"price":  (150 + s.rng.Intn(71)) * 1000,
			"amount": 100 + s.rng.Intn(401),
			"volume": 50 + s.rng.Intn(151),
			"chance": 10 + s.rng.Intn(51),
		},
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrapf(err, "render result for tool %s", def.Name)
	}
	return strings.TrimSpace(buf.String()), nil
}
