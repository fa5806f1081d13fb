// Package agent talks to the upstream reasoning service that produces
// assistant replies for dispatched turns.
package agent

import "context"

// RespondRequest is the normalized turn forwarded upstream.
type RespondRequest struct {
	SessionID string            `json:"session_id"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ToolCall is a structured tool invocation proposed by the agent.
type ToolCall struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// RespondResponse is the agent's reply for one turn.
type RespondResponse struct {
	SessionID string    `json:"session_id"`
	ReplyText string    `json:"reply_text"`
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
	Source    string    `json:"source"`
}

// Client bridges the gateway with the reasoning service.
type Client interface {
	Respond(ctx context.Context, req RespondRequest) (RespondResponse, error)
	Probe(ctx context.Context) bool
}
