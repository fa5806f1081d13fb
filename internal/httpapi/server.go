// Package httpapi exposes the gateway over HTTP: request/response turn
// handling, the streaming turn channel, wake-lock arbitration endpoints
// and aggregated health.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/agent"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/bridge"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/config"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/dispatch"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/history"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/observability"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/session"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/wake"
)

// TurnHandler is the orchestration path shared by both transports.
type TurnHandler interface {
	HandleTurn(ctx context.Context, req dispatch.TurnRequest) (dispatch.TurnResult, error)
}

type Server struct {
	cfg         config.Config
	sessions    *session.Store
	arbiter     *wake.Arbiter
	dispatcher  TurnHandler
	agent       agent.Client
	bridge      bridge.Client
	transcripts history.Store
	metrics     *observability.Metrics
	upgrader    websocket.Upgrader
}

func New(cfg config.Config, sessions *session.Store, arbiter *wake.Arbiter, dispatcher TurnHandler, agentClient agent.Client, bridgeClient bridge.Client, transcripts history.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:         cfg,
		sessions:    sessions,
		arbiter:     arbiter,
		dispatcher:  dispatcher,
		agent:       agentClient,
		bridge:      bridgeClient,
		transcripts: transcripts,
		metrics:     metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Browser connections are only accepted from the same
				// origin unless explicitly opened up; device clients
				// omit Origin and are allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/session/start", s.handleSessionStart)
	r.Post("/turn/text", s.handleTurnText)
	r.Post("/api/assistant/text-turn", s.handleTurnText)
	r.Post("/api/assistant/turn", s.handleAssistantTurnForm)
	r.Get("/turn/stream", s.handleTurnStream)
	r.Post("/tool/call", s.handleToolCall)

	r.Post("/v1/wake/claim", s.handleWakeClaim)
	r.Post("/v1/wake/heartbeat", s.handleWakeHeartbeat)
	r.Post("/v1/wake/validate", s.handleWakeValidate)
	r.Post("/v1/wake/release", s.handleWakeRelease)

	r.Get("/v1/session/{id}/history", s.handleSessionHistory)

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
