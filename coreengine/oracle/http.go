package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jeeves-cluster-organization/selfheal/coreengine/typeutil"
)

// HTTPOracle talks to a planning model behind a simple JSON endpoint.
// The request body is {"prompt": "..."} and the response body must carry
// the model output under "content".
type HTTPOracle struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPOracle creates an HTTPOracle. The apiKey is optional; when set it
// is sent as a bearer token. Call deadlines come from the caller's context,
// so the underlying client carries no timeout of its own.
func NewHTTPOracle(endpoint, apiKey string) *HTTPOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
	}
}

var _ Oracle = (*HTTPOracle)(nil)

// Invoke implements the Oracle port.
func (o *HTTPOracle) Invoke(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(map[string]any{"prompt": prompt})
	if err != nil {
		return "", fmt.Errorf("failed to encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build oracle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode oracle response: %w", err)
	}

	content, ok := typeutil.SafeString(decoded["content"])
	if !ok || content == "" {
		return "", fmt.Errorf("oracle response missing content field")
	}
	return content, nil
}

// NullOracle always reports the planner as unavailable. Every planner call
// falls back deterministically, which keeps the engine usable offline.
type NullOracle struct{}

var _ Oracle = NullOracle{}

// Invoke implements the Oracle port.
func (NullOracle) Invoke(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("no planning oracle configured")
}
