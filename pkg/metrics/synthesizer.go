package metrics

import (
	"math"
	"math/rand"

	"github.com/pkg/errors"
)

// Kind selects which latency profile a synthesized value is drawn from.
type Kind string

const (
	KindTurn     Kind = "turn"
	KindToolCall Kind = "tool-call"
)

// LatencyProfile bounds the synthetic latency distribution for one kind of
// work. Values are drawn from a normal distribution centered on MeanMS and
// clamped to [MinMS, MaxMS].
type LatencyProfile struct {
	MinMS  int `json:"min_ms" yaml:"min_ms"`
	MaxMS  int `json:"max_ms" yaml:"max_ms"`
	MeanMS int `json:"mean_ms" yaml:"mean_ms"`
}

func (p LatencyProfile) Validate() error {
	if p.MinMS < 1 {
		return errors.Errorf("min_ms must be >= 1, got %d", p.MinMS)
	}
	if p.MaxMS < p.MinMS {
		return errors.Errorf("max_ms %d below min_ms %d", p.MaxMS, p.MinMS)
	}
	if p.MeanMS < p.MinMS || p.MeanMS > p.MaxMS {
		return errors.Errorf("mean_ms %d outside [%d, %d]", p.MeanMS, p.MinMS, p.MaxMS)
	}
	return nil
}

// Config holds the distribution parameters for the synthesizer. Tool calls
// carry a higher mean and spread than plain turns, modeling network and tool
// overhead on top of inference time.
type Config struct {
	CharsPerToken int            `json:"chars_per_token" yaml:"chars_per_token"`
	Turn          LatencyProfile `json:"turn" yaml:"turn"`
	ToolCall      LatencyProfile `json:"tool_call" yaml:"tool_call"`
}

// DefaultConfig returns the stock distribution parameters.
func DefaultConfig() Config {
	return Config{
		CharsPerToken: 4,
		Turn:          LatencyProfile{MinMS: 300, MaxMS: 2500, MeanMS: 900},
		ToolCall:      LatencyProfile{MinMS: 200, MaxMS: 4000, MeanMS: 1200},
	}
}

func (c Config) WithCharsPerToken(n int) Config {
	c.CharsPerToken = n
	return c
}

func (c Config) WithTurnProfile(p LatencyProfile) Config {
	c.Turn = p
	return c
}

func (c Config) WithToolCallProfile(p LatencyProfile) Config {
	c.ToolCall = p
	return c
}

func (c Config) Validate() error {
	if c.CharsPerToken < 1 {
		return errors.Errorf("chars_per_token must be >= 1, got %d", c.CharsPerToken)
	}
	if err := c.Turn.Validate(); err != nil {
		return errors.Wrap(err, "turn profile")
	}
	if err := c.ToolCall.Validate(); err != nil {
		return errors.Wrap(err, "tool call profile")
	}
	return nil
}

// Synthesizer produces plausible token counts and latencies for generated
// text. Token counts derive deterministically from text length using a fixed
// characters-per-token ratio; the true tokenizer of the completion service is
// never consulted. Latencies come from the injected random source, so a fixed
// seed reproduces the same sequence of values.
//
// A Synthesizer is not safe for concurrent use; give each conversation build
// its own instance seeded from the batch seed.
type Synthesizer struct {
	cfg Config
	rng *rand.Rand
}

func NewSynthesizer(cfg Config, rng *rand.Rand) (*Synthesizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid metrics config")
	}
	if rng == nil {
		return nil, errors.New("nil random source")
	}
	return &Synthesizer{cfg: cfg, rng: rng}, nil
}

// Synthesize returns (tokens, latencyMS) for the given text and kind. Both
// values are positive; latency is never zero.
func (s *Synthesizer) Synthesize(text string, kind Kind) (int, int) {
	return s.Tokens(text), s.Latency(kind)
}

// Tokens approximates a token count as ceil(len(text) / charsPerToken).
// The empty string counts as zero tokens.
func (s *Synthesizer) Tokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + s.cfg.CharsPerToken - 1) / s.cfg.CharsPerToken
}

// Latency draws one latency sample for the given kind.
func (s *Synthesizer) Latency(kind Kind) int {
	profile := s.cfg.Turn
	if kind == KindToolCall {
		profile = s.cfg.ToolCall
	}

	// Spread chosen so that ~99.7% of raw samples already land inside the
	// bounds; the clamp handles the tail.
	stddev := float64(profile.MaxMS-profile.MinMS) / 6.0
	sample := s.rng.NormFloat64()*stddev + float64(profile.MeanMS)

	ms := int(math.Round(sample))
	if ms < profile.MinMS {
		ms = profile.MinMS
	}
	if ms > profile.MaxMS {
		ms = profile.MaxMS
	}
	if ms < 1 {
		ms = 1
	}
	return ms
}
