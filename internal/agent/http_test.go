package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPClientRespond(t *testing.T) {
	var got RespondRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/agent/respond" {
			t.Errorf("path = %q, want /v1/agent/respond", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(RespondResponse{
			SessionID: got.SessionID,
			ReplyText: "lights are on",
			ToolCall:  &ToolCall{ToolName: "light_on", Arguments: map[string]any{"room": "kitchen"}},
			Source:    "llm",
		})
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 2*time.Second)
	resp, err := c.Respond(context.Background(), RespondRequest{
		SessionID: "s-1",
		Text:      "turn on the kitchen lights",
		Metadata:  map[string]string{"home_id": "home-1"},
	})
	if err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	if got.Metadata["home_id"] != "home-1" {
		t.Fatalf("metadata not forwarded: %+v", got.Metadata)
	}
	if resp.ReplyText != "lights are on" || resp.Source != "llm" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.ToolCall == nil || resp.ToolCall.ToolName != "light_on" {
		t.Fatalf("tool call not adopted: %+v", resp.ToolCall)
	}
}

func TestHTTPClientRespondNonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, 2*time.Second)
	if _, err := c.Respond(context.Background(), RespondRequest{SessionID: "s-1", Text: "hi"}); err == nil {
		t.Fatalf("Respond() error = nil, want non-success status error")
	}
}

func TestHTTPClientProbe(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewHTTPClient(ts.URL, time.Second)
	if !c.Probe(context.Background()) {
		t.Fatalf("Probe() = false, want true")
	}

	down := NewHTTPClient("http://127.0.0.1:1", 200*time.Millisecond)
	if down.Probe(context.Background()) {
		t.Fatalf("Probe() against closed port = true, want false")
	}
}
