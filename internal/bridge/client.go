// Package bridge talks to the home-automation bridge that executes tool
// calls against real devices.
package bridge

import "context"

// CallRequest is a tool invocation relayed verbatim to the bridge.
type CallRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	TraceID   string         `json:"trace_id,omitempty"`
}

// CallResult is the bridge's outcome payload.
type CallResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type Client interface {
	CallTool(ctx context.Context, req CallRequest) (CallResult, error)
	Probe(ctx context.Context) bool
}
