package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const toolCallPath = "/v1/tools/call"

// HTTPClient relays tool calls to the bridge service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClient) CallTool(ctx context.Context, req CallRequest) (CallResult, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return CallResult{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+toolCallPath, bytes.NewReader(payload))
	if err != nil {
		return CallResult{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(httpReq)
	if err != nil {
		return CallResult{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return CallResult{}, fmt.Errorf("read response: %w", err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return CallResult{}, fmt.Errorf("bridge http status %d: %s", res.StatusCode, string(body))
	}

	var out CallResult
	if err := json.Unmarshal(body, &out); err != nil {
		// The bridge answered 2xx with garbage; report that as a failed
		// call rather than dropping the success status on the floor.
		return CallResult{Success: false, Message: "bridge returned invalid payload"}, nil
	}
	return out, nil
}

// Probe reports whether the bridge's health endpoint answers successfully.
func (c *HTTPClient) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	res, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer res.Body.Close()
	return res.StatusCode >= 200 && res.StatusCode < 300
}
