package scenario

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/convogen/pkg/engine"
)

func TestGenerateParsesScenarioList(t *testing.T) {
	eng := engine.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return `[
			{"situation": "first harvest planning", "user_persona": "new farmer"},
			{"situation": "export pricing", "user_persona": "wholesale trader"}
		]`, nil
	})
	g, err := NewGenerator(eng)
	require.NoError(t, err)

	scenarios, err := g.Generate(context.Background(), "durian cultivation", 2)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "first harvest planning", scenarios[0].Situation)
	assert.Equal(t, "wholesale trader", scenarios[1].Persona)
}

func TestGenerateStripsCodeFences(t *testing.T) {
	eng := engine.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "```json\n[{\"situation\": \"s\", \"user_persona\": \"p\"}]\n```", nil
	})
	g, err := NewGenerator(eng)
	require.NoError(t, err)

	scenarios, err := g.Generate(context.Background(), "t", 1)
	require.NoError(t, err)
	require.Len(t, scenarios, 1)
	assert.Equal(t, "s", scenarios[0].Situation)
}

func TestGenerateCyclesWhenModelReturnsTooFew(t *testing.T) {
	eng := engine.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return `[{"situation": "only one", "user_persona": "p"}]`, nil
	})
	g, err := NewGenerator(eng)
	require.NoError(t, err)

	scenarios, err := g.Generate(context.Background(), "t", 3)
	require.NoError(t, err)
	require.Len(t, scenarios, 3)
	assert.Equal(t, scenarios[0], scenarios[2])
}

func TestGenerateRejectsMalformedResponse(t *testing.T) {
	for _, reply := range []string{
		"not json at all",
		"[]",
		`[{"situation": "missing persona"}]`,
		`[{"situation": "", "user_persona": "empty situation"}]`,
	} {
		eng := engine.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
			return reply, nil
		})
		g, err := NewGenerator(eng)
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), "t", 1)
		assert.Error(t, err, "reply %q should be rejected", reply)
	}
}

func TestGeneratePropagatesEngineFailure(t *testing.T) {
	eng := engine.CompleteFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", engine.NewFatalError("complete", assert.AnError)
	})
	g, err := NewGenerator(eng)
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "t", 1)
	require.Error(t, err)
}
