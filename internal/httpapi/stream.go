package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/home-smart-assistant/smart-assistant-gateway/internal/dispatch"
	"github.com/home-smart-assistant/smart-assistant-gateway/internal/protocol"
)

const (
	streamReadLimit    = 1 << 20
	streamWriteTimeout = 10 * time.Second
	streamReadTimeout  = 120 * time.Second
)

// handleTurnStream runs the duplex turn channel: each inbound frame is
// dispatched and answered in order on the same connection. A malformed
// frame gets an in-band error frame; the connection is only torn down by
// a close frame, a transport error or cancellation. Stream clients are
// pre-authorized at connection time, so no wake enforcement happens on
// this path.
func (s *Server) handleTurnStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := r.Context()

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))
		return nil
	})

	for ctx.Err() == nil {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Close frames are acknowledged by the default close handler
			// before ReadMessage surfaces the error.
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(streamReadTimeout))

		frame, err := protocol.ParseTurnFrame(data)
		if err != nil {
			s.metrics.StreamFrames.WithLabelValues("inbound", "invalid").Inc()
			s.writeStreamFrame(conn, protocol.ErrorFrame{Error: "invalid message"})
			continue
		}
		s.metrics.StreamFrames.WithLabelValues("inbound", "turn").Inc()

		result, err := s.dispatcher.HandleTurn(ctx, dispatch.TurnRequest{
			SessionID: frame.SessionID,
			Text:      frame.Text,
			Metadata:  frame.Metadata,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				break
			}
			s.writeStreamFrame(conn, protocol.ErrorFrame{Error: "invalid message"})
			continue
		}

		s.metrics.Turns.WithLabelValues("stream", result.Source).Inc()
		s.metrics.StreamFrames.WithLabelValues("outbound", "result").Inc()
		s.writeStreamFrame(conn, protocol.ResultFrame{
			SessionID: result.SessionID,
			ReplyText: result.ReplyText,
			Source:    result.Source,
			ToolCall:  result.ToolCall,
		})
	}
}

func (s *Server) writeStreamFrame(conn *websocket.Conn, frame any) {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	_ = conn.WriteJSON(frame)
}
