package metrics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSynthesizer(t *testing.T, seed int64) *Synthesizer {
	t.Helper()
	s, err := NewSynthesizer(DefaultConfig(), rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return s
}

func TestTokensApproximation(t *testing.T) {
	s := newTestSynthesizer(t, 1)

	assert.Equal(t, 0, s.Tokens(""))
	assert.Equal(t, 1, s.Tokens("hi"))
	assert.Equal(t, 1, s.Tokens("abcd"))
	assert.Equal(t, 2, s.Tokens("abcde"))
	assert.Equal(t, 25, s.Tokens(string(make([]byte, 100))))
}

func TestLatencyStaysWithinProfileBounds(t *testing.T) {
	cfg := DefaultConfig()
	s, err := NewSynthesizer(cfg, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	for i := 0; i < 1000; i++ {
		turnMS := s.Latency(KindTurn)
		assert.GreaterOrEqual(t, turnMS, cfg.Turn.MinMS)
		assert.LessOrEqual(t, turnMS, cfg.Turn.MaxMS)

		toolMS := s.Latency(KindToolCall)
		assert.GreaterOrEqual(t, toolMS, cfg.ToolCall.MinMS)
		assert.LessOrEqual(t, toolMS, cfg.ToolCall.MaxMS)
	}
}

func TestSynthesizeIsDeterministicUnderFixedSeed(t *testing.T) {
	a := newTestSynthesizer(t, 1234)
	b := newTestSynthesizer(t, 1234)

	for i := 0; i < 50; i++ {
		tokensA, latencyA := a.Synthesize("some generated response text", KindTurn)
		tokensB, latencyB := b.Synthesize("some generated response text", KindTurn)
		require.Equal(t, tokensA, tokensB)
		require.Equal(t, latencyA, latencyB)
	}
}

func TestToolCallProfileDiffersFromTurnProfile(t *testing.T) {
	cfg := DefaultConfig()
	s, err := NewSynthesizer(cfg, rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	turnTotal, toolTotal := 0, 0
	const samples = 2000
	for i := 0; i < samples; i++ {
		turnTotal += s.Latency(KindTurn)
		toolTotal += s.Latency(KindToolCall)
	}

	// The tool call profile carries a higher mean, which must show in the
	// sample average over a few thousand draws.
	assert.Greater(t, toolTotal/samples, turnTotal/samples)
}

func TestConfigValidation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	_, err := NewSynthesizer(DefaultConfig().WithCharsPerToken(0), rng)
	assert.Error(t, err)

	_, err = NewSynthesizer(DefaultConfig().WithTurnProfile(LatencyProfile{MinMS: 0, MaxMS: 10, MeanMS: 5}), rng)
	assert.Error(t, err)

	_, err = NewSynthesizer(DefaultConfig().WithTurnProfile(LatencyProfile{MinMS: 100, MaxMS: 50, MeanMS: 75}), rng)
	assert.Error(t, err)

	_, err = NewSynthesizer(DefaultConfig().WithToolCallProfile(LatencyProfile{MinMS: 10, MaxMS: 100, MeanMS: 500}), rng)
	assert.Error(t, err)

	_, err = NewSynthesizer(DefaultConfig(), nil)
	assert.Error(t, err)
}
