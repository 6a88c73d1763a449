package conversation

import (
	"github.com/pkg/errors"
)

// Validate checks the structural invariants of a finished conversation:
//
//   - turns strictly alternate role starting with "user"
//   - turn indices are 0-based and sequential
//   - each turn starts strictly after the previous turn ended
//   - an assistant turn's latency covers the latency of its tool calls
//   - token counts and latencies are never negative
//   - tool calls only appear on assistant turns
func (c *Conversation) Validate() error {
	if c.ID == "" {
		return errors.New("conversation has no id")
	}
	for i, t := range c.Turns {
		if t.Index != i {
			return errors.Errorf("turn %d: index %d out of sequence", i, t.Index)
		}
		wantRole := RoleUser
		if i%2 == 1 {
			wantRole = RoleAssistant
		}
		if t.Role != wantRole {
			return errors.Errorf("turn %d: role %q, expected %q", i, t.Role, wantRole)
		}
		if t.Tokens < 0 {
			return errors.Errorf("turn %d: negative token count %d", i, t.Tokens)
		}
		if t.LatencyMS <= 0 {
			return errors.Errorf("turn %d: non-positive latency %d", i, t.LatencyMS)
		}
		if t.Role != RoleAssistant && len(t.ToolCalls) > 0 {
			return errors.Errorf("turn %d: tool calls on a %s turn", i, t.Role)
		}
		for j, tc := range t.ToolCalls {
			if tc.Tokens < 0 {
				return errors.Errorf("turn %d tool call %d: negative token count %d", i, j, tc.Tokens)
			}
			if tc.LatencyMS <= 0 {
				return errors.Errorf("turn %d tool call %d: non-positive latency %d", i, j, tc.LatencyMS)
			}
		}
		if t.LatencyMS < t.ToolLatencyMS() {
			return errors.Errorf(
				"turn %d: latency %dms below nested tool call latency %dms",
				i, t.LatencyMS, t.ToolLatencyMS())
		}
		if i == 0 {
			if t.Timestamp.Before(c.CreatedAt) {
				return errors.Errorf("turn 0 starts before conversation creation time")
			}
			continue
		}
		prev := c.Turns[i-1]
		if !t.Timestamp.After(prev.End()) {
			return errors.Errorf(
				"turn %d: starts at %s, before previous turn ended at %s",
				i, t.Timestamp.Format(timeFormat), prev.End().Format(timeFormat))
		}
	}
	return nil
}

const timeFormat = "15:04:05.000"
