package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/bridge"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/dispatch"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/textenc"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/wake"
)

type sessionStartRequest struct {
	DeviceID string `json:"device_id"`
}

type sessionStartResponse struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Mode      string    `json:"mode"`
}

type turnTextRequest struct {
	SessionID string            `json:"session_id"`
	Text      string            `json:"text"`
	DeviceID  string            `json:"device_id"`
	HomeID    string            `json:"home_id"`
	WakeToken string            `json:"wake_token"`
	Metadata  map[string]string `json:"metadata"`
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	var req sessionStartRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess := s.sessions.Start(req.DeviceID)
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))

	respondJSON(w, http.StatusOK, sessionStartResponse{
		SessionID: sess.ID,
		CreatedAt: sess.CreatedAt,
		Mode:      "hybrid",
	})
}

func (s *Server) handleTurnText(w http.ResponseWriter, r *http.Request) {
	var req turnTextRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.runTurn(w, r, dispatch.TurnRequest{
		SessionID: req.SessionID,
		Text:      req.Text,
		DeviceID:  req.DeviceID,
		HomeID:    req.HomeID,
		WakeToken: req.WakeToken,
		Metadata:  req.Metadata,
	}, "http")
}

// handleAssistantTurnForm is the multipart debug bridge used by device
// firmware during bring-up: audio uploads are acknowledged but only the
// text field is dispatched.
func (s *Server) handleAssistantTurnForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		respondError(w, http.StatusBadRequest, "multipart/form-data required")
		return
	}

	hasAudio := false
	if r.MultipartForm != nil {
		for name := range r.MultipartForm.File {
			if strings.EqualFold(name, "audio") {
				hasAudio = true
				break
			}
		}
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		if hasAudio {
			text = "voice input (gateway debug mode)"
		} else {
			text = "voice input"
		}
	}

	inputType := "form_text"
	if hasAudio {
		inputType = "audio_multipart"
	}

	s.runTurn(w, r, dispatch.TurnRequest{
		SessionID: r.FormValue("session_id"),
		Text:      text,
		DeviceID:  r.FormValue("device_id"),
		HomeID:    r.FormValue("home_id"),
		WakeToken: r.FormValue("wake_token"),
		Metadata: map[string]string{
			"input_type":   inputType,
			"gateway_mode": "debug_bridge",
		},
	}, "http")
}

// runTurn dispatches a turn and maps the dispatcher's error taxonomy to
// HTTP statuses: client input errors to 400, wake conflicts to 409.
func (s *Server) runTurn(w http.ResponseWriter, r *http.Request, req dispatch.TurnRequest, transport string) {
	result, err := s.dispatcher.HandleTurn(r.Context(), req)
	if err != nil {
		var normErr *textenc.NormalizationError
		switch {
		case errors.Is(err, dispatch.ErrWakeRejected):
			s.metrics.TurnRejections.WithLabelValues("wake_conflict").Inc()
			respondError(w, http.StatusConflict, err.Error())
		case errors.Is(err, dispatch.ErrEmptyText), errors.Is(err, dispatch.ErrWakeFieldsMissing):
			s.metrics.TurnRejections.WithLabelValues("bad_request").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.As(err, &normErr):
			s.metrics.TurnRejections.WithLabelValues("bad_encoding").Inc()
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			// Context cancellation: the client is gone, nothing to send.
		}
		return
	}

	s.metrics.Turns.WithLabelValues(transport, result.Source).Inc()
	s.metrics.ActiveSessions.Set(float64(s.sessions.ActiveCount()))
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request) {
	var req bridge.CallRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ToolName) == "" {
		respondError(w, http.StatusBadRequest, "tool_name is required")
		return
	}

	result, err := s.bridge.CallTool(r.Context(), req)
	if err != nil {
		respondError(w, http.StatusBadGateway, "bridge call failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleWakeClaim(w http.ResponseWriter, r *http.Request) {
	var req wake.ClaimRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.arbiter.Claim(req)
	s.metrics.WakeOps.WithLabelValues("claim", resp.Reason).Inc()
	s.metrics.ActiveWakeLocks.Set(float64(s.arbiter.ActiveLocks()))
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWakeHeartbeat(w http.ResponseWriter, r *http.Request) {
	s.handleWakeValidation(w, r, true)
}

func (s *Server) handleWakeValidate(w http.ResponseWriter, r *http.Request) {
	s.handleWakeValidation(w, r, false)
}

func (s *Server) handleWakeValidation(w http.ResponseWriter, r *http.Request, refresh bool) {
	var req wake.ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.arbiter.Validate(req.HomeID, req.DeviceID, req.WakeToken, refresh)
	op := "validate"
	if refresh {
		op = "heartbeat"
	}
	outcome := "invalid"
	if resp.Valid {
		outcome = "valid"
	}
	s.metrics.WakeOps.WithLabelValues(op, outcome).Inc()
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWakeRelease(w http.ResponseWriter, r *http.Request) {
	var req wake.ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := s.arbiter.Release(req)
	s.metrics.WakeOps.WithLabelValues("release", resp.Reason).Inc()
	s.metrics.ActiveWakeLocks.Set(float64(s.arbiter.ActiveLocks()))
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSessionHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "missing session id")
		return
	}

	entries, err := s.transcripts.Recent(r.Context(), id, 50)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "history unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"turns":      entries,
	})
}

// handleHealth aggregates downstream liveness and the wake snapshot.
// Degraded upstreams are reported as status fields, never as an error.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	probeCtx, cancel := context.WithTimeout(r.Context(), s.cfg.ProbeTimeout)
	defer cancel()

	var agentAlive, bridgeAlive bool
	g, gctx := errgroup.WithContext(probeCtx)
	g.Go(func() error {
		agentAlive = s.agent.Probe(gctx)
		return nil
	})
	g.Go(func() error {
		bridgeAlive = s.bridge.Probe(gctx)
		return nil
	})
	_ = g.Wait()

	snapshot := s.arbiter.HealthSnapshot()
	s.metrics.ActiveWakeLocks.Set(float64(snapshot.ActiveLocks))

	respondJSON(w, http.StatusOK, map[string]any{
		"service": "smart_assistant_gateway",
		"status":  "ok",
		"downstream": map[string]string{
			"agent":            statusOf(agentAlive),
			"ha_bridge":        statusOf(bridgeAlive),
			"wake_coordinator": "ok",
		},
		"wake_arbitration": snapshot,
		"time":             time.Now().UTC(),
	})
}

func statusOf(alive bool) string {
	if alive {
		return "ok"
	}
	return "degraded"
}
