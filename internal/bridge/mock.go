package bridge

import "context"

// MockClient fakes the bridge for tests and bridge-less local runs.
type MockClient struct {
	Result CallResult
	Err    error
	Alive  bool

	Requests []CallRequest
}

func NewMockClient() *MockClient {
	return &MockClient{
		Result: CallResult{Success: true, Message: "ok"},
		Alive:  true,
	}
}

func (m *MockClient) CallTool(ctx context.Context, req CallRequest) (CallResult, error) {
	if err := ctx.Err(); err != nil {
		return CallResult{}, err
	}
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return CallResult{}, m.Err
	}
	res := m.Result
	if res.TraceID == "" {
		res.TraceID = req.TraceID
	}
	return res, nil
}

func (m *MockClient) Probe(ctx context.Context) bool {
	return m.Alive
}
