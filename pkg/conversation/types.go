package conversation

import (
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Status tracks the lifecycle of a conversation record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SchemaVersion is stamped on every serialized conversation.
const SchemaVersion = "2.0.0"

// ToolCall is a simulated tool invocation nested inside an assistant turn.
// It is created fully populated and never mutated after being attached.
type ToolCall struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    string                 `json:"result"`
	Tokens    int                    `json:"tokens"`
	LatencyMS int                    `json:"latency_ms"`
}

// Turn is one message in a conversation, authored by either the simulated
// user or the assistant. ToolCalls is empty unless Role is assistant.
type Turn struct {
	Index     int        `json:"index"`
	Role      Role       `json:"role"`
	Timestamp time.Time  `json:"timestamp"`
	Content   string     `json:"content"`
	Tokens    int        `json:"tokens"`
	LatencyMS int        `json:"latency_ms"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// End returns the instant the turn finished, i.e. Timestamp plus latency.
func (t Turn) End() time.Time {
	return t.Timestamp.Add(time.Duration(t.LatencyMS) * time.Millisecond)
}

// ToolLatencyMS returns the summed latency of all nested tool calls.
func (t Turn) ToolLatencyMS() int {
	total := 0
	for _, tc := range t.ToolCalls {
		total += tc.LatencyMS
	}
	return total
}

// Stats aggregates per-conversation metrics over all turns.
type Stats struct {
	TotalTurns       int `json:"total_turns"`
	TotalTokens      int `json:"total_tokens"`
	TotalLatencyMS   int `json:"total_latency_ms"`
	AverageLatencyMS int `json:"average_latency_ms"`
}

// Conversation is a complete synthesized transcript. Timestamps are RFC3339
// in UTC with millisecond precision.
type Conversation struct {
	ID            string    `json:"id"`
	Topic         string    `json:"topic"`
	Persona       string    `json:"persona"`
	CreatedAt     time.Time `json:"created_at"`
	Turns         []Turn    `json:"turns"`
	Summary       string    `json:"summary"`
	Status        Status    `json:"status"`
	Tags          []string  `json:"tags,omitempty"`
	SchemaVersion string    `json:"schema_version"`
	Stats         Stats     `json:"stats"`
}

// AppendTurn attaches a turn to the conversation. Construction is
// append-only; turns are never modified once attached.
func (c *Conversation) AppendTurn(t Turn) {
	c.Turns = append(c.Turns, t)
}

// ComputeStats derives the aggregate metrics block from the attached turns.
func (c *Conversation) ComputeStats() Stats {
	s := Stats{TotalTurns: len(c.Turns)}
	for _, t := range c.Turns {
		s.TotalTokens += t.Tokens
		s.TotalLatencyMS += t.LatencyMS
	}
	if len(c.Turns) > 0 {
		s.AverageLatencyMS = s.TotalLatencyMS / len(c.Turns)
	}
	return s
}
