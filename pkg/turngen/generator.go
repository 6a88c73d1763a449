package turngen

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/convogen/pkg/conversation"
	"github.com/go-go-golems/convogen/pkg/engine"
	"github.com/go-go-golems/convogen/pkg/metrics"
	"github.com/go-go-golems/convogen/pkg/toolsim"
)

// Config tunes turn generation.
type Config struct {
	// HistoryWindow bounds how many prior turns are folded into the prompt,
	// oldest dropped first.
	HistoryWindow int `json:"history_window" yaml:"history_window"`
	// InterTurnGap models the human think time between one turn ending and
	// the next starting.
	InterTurnGap time.Duration `json:"inter_turn_gap" yaml:"inter_turn_gap"`
	// ToolProbability is the chance an assistant turn simulates tool use.
	ToolProbability float64 `json:"tool_probability" yaml:"tool_probability"`
	// MaxToolCalls caps the number of simulated calls per assistant turn.
	MaxToolCalls int `json:"max_tool_calls" yaml:"max_tool_calls"`
}

func DefaultConfig() Config {
	return Config{
		HistoryWindow:   12,
		InterTurnGap:    1500 * time.Millisecond,
		ToolProbability: 0.6,
		MaxToolCalls:    2,
	}
}

func (c Config) WithHistoryWindow(n int) Config {
	c.HistoryWindow = n
	return c
}

func (c Config) WithInterTurnGap(d time.Duration) Config {
	c.InterTurnGap = d
	return c
}

func (c Config) WithToolProbability(p float64) Config {
	c.ToolProbability = p
	return c
}

func (c Config) WithMaxToolCalls(n int) Config {
	c.MaxToolCalls = n
	return c
}

func (c Config) Validate() error {
	if c.HistoryWindow < 1 {
		return errors.Errorf("history_window must be >= 1, got %d", c.HistoryWindow)
	}
	if c.InterTurnGap < time.Millisecond {
		return errors.Errorf("inter_turn_gap must be >= 1ms, got %s", c.InterTurnGap)
	}
	if c.ToolProbability < 0 || c.ToolProbability > 1 {
		return errors.Errorf("tool_probability must be in [0, 1], got %f", c.ToolProbability)
	}
	if c.MaxToolCalls < 1 {
		return errors.Errorf("max_tool_calls must be >= 1, got %d", c.MaxToolCalls)
	}
	return nil
}

// TurnRequest carries everything one turn generation needs. Start is the
// conversation creation time and anchors turn 0; later turns derive their
// timestamp from the last history turn.
type TurnRequest struct {
	Index   int
	Role    conversation.Role
	Start   time.Time
	History []conversation.Turn
	Topic   string
	Persona string
}

// Generator produces one fully populated turn per call: completion text from
// the engine, simulated tool calls for assistant turns, and synthesized
// metrics. Not safe for concurrent use; one Generator per conversation build.
type Generator struct {
	engine  engine.Engine
	metrics *metrics.Synthesizer
	tools   *toolsim.Simulator
	rng     *rand.Rand
	cfg     Config
}

func NewGenerator(eng engine.Engine, synth *metrics.Synthesizer, sim *toolsim.Simulator, rng *rand.Rand, cfg Config) (*Generator, error) {
	if eng == nil {
		return nil, errors.New("nil engine")
	}
	if synth == nil {
		return nil, errors.New("nil metrics synthesizer")
	}
	if sim == nil {
		return nil, errors.New("nil tool simulator")
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid turn generator config")
	}
	return &Generator{engine: eng, metrics: synth, tools: sim, rng: rng, cfg: cfg}, nil
}

// Generate builds the turn at req.Index. Tool calls are simulated strictly
// before the assistant's answer text is requested, so the response can be
// prompted with the synthetic tool output.
func (g *Generator) Generate(ctx context.Context, req TurnRequest) (conversation.Turn, error) {
	var decision ToolDecision
	if req.Role == conversation.RoleAssistant {
		var err error
		decision, err = g.decideToolUse(req.Topic, req.History)
		if err != nil {
			return conversation.Turn{}, &GenerationError{TurnIndex: req.Index, Role: req.Role, Err: err}
		}
	}

	prompt, err := g.buildPrompt(req, decision)
	if err != nil {
		return conversation.Turn{}, &GenerationError{TurnIndex: req.Index, Role: req.Role, Err: err}
	}

	content, err := g.engine.Complete(ctx, prompt)
	if err != nil {
		return conversation.Turn{}, &GenerationError{TurnIndex: req.Index, Role: req.Role, Err: err}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return conversation.Turn{}, &GenerationError{
			TurnIndex: req.Index,
			Role:      req.Role,
			Err:       errors.New("engine returned empty completion"),
		}
	}

	tokens, latencyMS := g.metrics.Synthesize(content, metrics.KindTurn)

	turn := conversation.Turn{
		Index:     req.Index,
		Role:      req.Role,
		Timestamp: g.timestampFor(req),
		Content:   content,
		Tokens:    tokens,
		LatencyMS: latencyMS,
		ToolCalls: decision.Calls,
	}

	// Tool time is nested inside the response time, not concurrent with it.
	turn.LatencyMS += turn.ToolLatencyMS()

	log.Debug().
		Int("index", turn.Index).
		Str("role", string(turn.Role)).
		Int("tokens", turn.Tokens).
		Int("latency_ms", turn.LatencyMS).
		Int("tool_calls", len(turn.ToolCalls)).
		Msg("generated turn")

	return turn, nil
}

func (g *Generator) buildPrompt(req TurnRequest, decision ToolDecision) (string, error) {
	data := promptData{
		Persona: req.Persona,
		Topic:   req.Topic,
		History: formatHistory(req.History, g.cfg.HistoryWindow),
	}

	switch {
	case req.Role == conversation.RoleUser && len(req.History) == 0:
		data.Tools = g.tools.Catalog().ToolNames()
		return renderPrompt("initial-user", initialUserPromptTemplate, data)
	case req.Role == conversation.RoleUser:
		return renderPrompt("followup-user", followupUserPromptTemplate, data)
	default:
		data.ToolOutputs = decision.Outputs()
		return renderPrompt("assistant", assistantPromptTemplate, data)
	}
}

// timestampFor places the turn on the timeline: turn 0 starts at the
// conversation creation time, every later turn starts after the previous
// turn ended plus the inter-turn gap.
func (g *Generator) timestampFor(req TurnRequest) time.Time {
	if req.Index == 0 || len(req.History) == 0 {
		return req.Start
	}
	prev := req.History[len(req.History)-1]
	return prev.End().Add(g.cfg.InterTurnGap)
}
