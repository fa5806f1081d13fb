// Package dispatch orchestrates a single turn: input validation, wake
// ownership enforcement, session continuity, the upstream agent call and
// its degraded-mode fallback.
package dispatch

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/agent"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/history"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/observability"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/session"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/textenc"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/wake"
)

var (
	// ErrEmptyText and ErrWakeFieldsMissing are client input errors.
	ErrEmptyText         = errors.New("text is required")
	ErrWakeFieldsMissing = errors.New("home_id and device_id are required when wake_token is provided")

	// ErrWakeRejected is an ownership conflict, distinct from a generic
	// client error: the caller should re-claim and retry.
	ErrWakeRejected = errors.New("wake token invalid or claimed by another device")
)

// SourceFallback tags replies synthesized by the gateway when the agent
// is unreachable.
const SourceFallback = "gateway_fallback"

const fallbackReply = "Sorry, the assistant is temporarily unavailable. Please try again in a moment."

// TurnRequest is one inbound turn from either transport.
type TurnRequest struct {
	SessionID string
	Text      string
	DeviceID  string
	HomeID    string
	WakeToken string
	Metadata  map[string]string
}

// TurnResult is the uniform outcome returned to the transport adapter.
type TurnResult struct {
	SessionID string          `json:"session_id"`
	ReplyText string          `json:"reply_text"`
	ToolCall  *agent.ToolCall `json:"tool_call,omitempty"`
	Source    string          `json:"source"`
}

// Dispatcher is the single orchestration path shared by the
// request/response and streaming transports.
type Dispatcher struct {
	sessions       *session.Store
	wake           *wake.Arbiter
	agent          agent.Client
	transcripts    history.Store
	metrics        *observability.Metrics
	agentTimeout   time.Duration
	strictEncoding bool
}

func New(sessions *session.Store, arbiter *wake.Arbiter, agentClient agent.Client, transcripts history.Store, metrics *observability.Metrics, agentTimeout time.Duration, strictEncoding bool) *Dispatcher {
	if agentTimeout <= 0 {
		agentTimeout = 15 * time.Second
	}
	return &Dispatcher{
		sessions:       sessions,
		wake:           arbiter,
		agent:          agentClient,
		transcripts:    transcripts,
		metrics:        metrics,
		agentTimeout:   agentTimeout,
		strictEncoding: strictEncoding,
	}
}

// HandleTurn runs one turn end to end. Client input errors and wake
// conflicts are returned before any state mutation or upstream call;
// upstream failures never surface as errors, they produce a fallback
// result instead.
func (d *Dispatcher) HandleTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if strings.TrimSpace(req.Text) == "" {
		return TurnResult{}, ErrEmptyText
	}

	text, err := textenc.NormalizeText(req.Text, "text", d.strictEncoding)
	if err != nil {
		return TurnResult{}, err
	}
	metadata, err := textenc.NormalizeStringMap(req.Metadata, "metadata", d.strictEncoding)
	if err != nil {
		return TurnResult{}, err
	}

	if req.WakeToken != "" {
		if strings.TrimSpace(req.HomeID) == "" || strings.TrimSpace(req.DeviceID) == "" {
			return TurnResult{}, ErrWakeFieldsMissing
		}
		check := d.wake.Validate(req.HomeID, req.DeviceID, req.WakeToken, true)
		if !check.Valid {
			return TurnResult{}, ErrWakeRejected
		}
	}

	sess := d.sessions.Resolve(req.SessionID, req.DeviceID)

	result := d.callAgent(ctx, agent.RespondRequest{
		SessionID: sess.ID,
		Text:      text,
		Metadata:  mergeMetadata(metadata, req.HomeID, req.DeviceID, req.WakeToken),
	})
	if err := ctx.Err(); err != nil {
		// The caller is gone; nothing useful can be delivered.
		return TurnResult{}, err
	}

	d.recordTranscript(ctx, sess, text, result)
	return result, nil
}

// callAgent forwards the turn upstream under a bounded deadline and maps
// any failure to the fixed fallback reply.
func (d *Dispatcher) callAgent(ctx context.Context, req agent.RespondRequest) TurnResult {
	callCtx, cancel := context.WithTimeout(ctx, d.agentTimeout)
	defer cancel()

	started := time.Now()
	resp, err := d.agent.Respond(callCtx, req)
	if d.metrics != nil {
		d.metrics.ObserveAgentLatency(time.Since(started))
	}
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("agent call failed for session %s: %v", req.SessionID, err)
		}
		return TurnResult{
			SessionID: req.SessionID,
			ReplyText: fallbackReply,
			Source:    SourceFallback,
		}
	}

	return TurnResult{
		SessionID: resp.SessionID,
		ReplyText: resp.ReplyText,
		ToolCall:  resp.ToolCall,
		Source:    resp.Source,
	}
}

// recordTranscript appends both sides of a completed turn, best effort.
func (d *Dispatcher) recordTranscript(ctx context.Context, sess *session.Session, text string, result TurnResult) {
	if d.transcripts == nil {
		return
	}
	entries := []history.TurnEntry{
		{SessionID: result.SessionID, DeviceID: sess.DeviceID, Role: "user", Content: text},
		{SessionID: result.SessionID, DeviceID: sess.DeviceID, Role: "assistant", Content: result.ReplyText, Source: result.Source},
	}
	for _, entry := range entries {
		if err := d.transcripts.Append(ctx, entry); err != nil {
			log.Printf("transcript append failed for session %s: %v", result.SessionID, err)
			return
		}
	}
}

// mergeMetadata folds the derived wake/identity fields into the caller's
// metadata. Keys merge case-insensitively and derived fields win.
func mergeMetadata(metadata map[string]string, homeID, deviceID, wakeToken string) map[string]string {
	merged := make(map[string]string, len(metadata)+3)
	for key, value := range metadata {
		setFold(merged, key, value)
	}
	if strings.TrimSpace(homeID) != "" {
		setFold(merged, "home_id", homeID)
	}
	if strings.TrimSpace(deviceID) != "" {
		setFold(merged, "device_id", deviceID)
	}
	if strings.TrimSpace(wakeToken) != "" {
		setFold(merged, "wake_token", wakeToken)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

// setFold inserts key=value, evicting any existing key that differs only
// in case.
func setFold(m map[string]string, key, value string) {
	for existing := range m {
		if existing != key && strings.EqualFold(existing, key) {
			delete(m, existing)
		}
	}
	m[key] = value
}
