package agent

import "context"

// MockClient provides deterministic replies for tests and local runs
// without a reachable agent service.
type MockClient struct {
	Response RespondResponse
	Err      error
	Alive    bool

	// Requests records every forwarded turn, letting tests assert that a
	// rejected turn never reached the agent.
	Requests []RespondRequest
}

func NewMockClient() *MockClient {
	return &MockClient{Alive: true}
}

func (m *MockClient) Respond(ctx context.Context, req RespondRequest) (RespondResponse, error) {
	if err := ctx.Err(); err != nil {
		return RespondResponse{}, err
	}
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return RespondResponse{}, m.Err
	}
	resp := m.Response
	if resp.SessionID == "" {
		resp.SessionID = req.SessionID
	}
	if resp.ReplyText == "" {
		resp.ReplyText = "I heard you: " + req.Text
	}
	if resp.Source == "" {
		resp.Source = "rule_chat"
	}
	return resp, nil
}

func (m *MockClient) Probe(ctx context.Context) bool {
	return m.Alive
}
