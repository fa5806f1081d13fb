// Package protocol defines the frames exchanged on the streaming turn
// channel.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/agent"
)

var ErrEmptyText = errors.New("text is required")

// TurnFrame is one inbound turn on the stream channel.
type TurnFrame struct {
	SessionID string            `json:"session_id,omitempty"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ResultFrame is the success reply for one dispatched turn.
type ResultFrame struct {
	SessionID string          `json:"session_id"`
	ReplyText string          `json:"reply_text"`
	Source    string          `json:"source"`
	ToolCall  *agent.ToolCall `json:"tool_call,omitempty"`
}

// ErrorFrame reports a per-message failure in-band; the connection
// stays open.
type ErrorFrame struct {
	Error string `json:"error"`
}

// ParseTurnFrame decodes an inbound frame, rejecting anything that is
// not a structured turn with non-blank text.
func ParseTurnFrame(raw []byte) (TurnFrame, error) {
	var frame TurnFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return TurnFrame{}, fmt.Errorf("invalid frame: %w", err)
	}
	if strings.TrimSpace(frame.Text) == "" {
		return TurnFrame{}, ErrEmptyText
	}
	return frame, nil
}
