package turngen

import (
	"github.com/go-go-golems/convogen/pkg/conversation"
)

// ToolDecision is the explicit outcome of the "maybe call a tool" branch for
// an assistant turn: either no calls, or one or more fully simulated calls.
// Keeping the branch as a value makes it testable apart from text generation.
type ToolDecision struct {
	Calls []conversation.ToolCall
}

func (d ToolDecision) UseTools() bool {
	return len(d.Calls) > 0
}

// Outputs returns the synthetic result strings, in call order, for folding
// into the assistant's answer prompt.
func (d ToolDecision) Outputs() []string {
	outs := make([]string, 0, len(d.Calls))
	for _, c := range d.Calls {
		outs = append(outs, c.Result)
	}
	return outs
}

// decideToolUse rolls the configured probability and, on success, simulates
// between 1 and MaxToolCalls invocations biased by the user's last message.
// Only assistant turns ever reach this.
func (g *Generator) decideToolUse(topic string, history []conversation.Turn) (ToolDecision, error) {
	if g.rng.Float64() >= g.cfg.ToolProbability {
		return ToolDecision{}, nil
	}

	count := 1
	if g.cfg.MaxToolCalls > 1 {
		count = 1 + g.rng.Intn(g.cfg.MaxToolCalls)
	}

	lastUser := lastUserContent(history)
	calls := make([]conversation.ToolCall, 0, count)
	for i := 0; i < count; i++ {
		tc, err := g.tools.Simulate(topic, lastUser)
		if err != nil {
			return ToolDecision{}, err
		}
		calls = append(calls, tc)
	}
	return ToolDecision{Calls: calls}, nil
}
