package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/54b3r/kscan/internal/api"
)

// remoteTimeout bounds a single knowledge scan call. The function fans out
// to one chat completion per source PDF, so it is slow.
const remoteTimeout = 3 * time.Minute

// Remote forwards synthesis requests to the knowledge scan function.
type Remote struct {
	url    string
	apiKey string
	client *http.Client
}

// NewRemote returns a Remote posting to url. apiKey, when set, is sent as
// the x-functions-key header.
func NewRemote(url, apiKey string, hc *http.Client) (*Remote, error) {
	if url == "" {
		return nil, fmt.Errorf("synthesis: SYNTHESIS_URL is required for remote mode")
	}
	if hc == nil {
		hc = &http.Client{Timeout: remoteTimeout}
	}
	return &Remote{url: url, apiKey: apiKey, client: hc}, nil
}

// Synthesize posts req and returns the function's knowledge scan.
func (r *Remote) Synthesize(ctx context.Context, req *api.SynthesisRequest) (*api.KnowledgeScan, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis: marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("synthesis: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		httpReq.Header.Set("x-functions-key", r.apiKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, api.NewStatusError("synthesis", resp.StatusCode, raw)
	}

	var scan api.KnowledgeScan
	if err := json.NewDecoder(resp.Body).Decode(&scan); err != nil {
		return nil, fmt.Errorf("synthesis: decode response: %w", err)
	}
	return &scan, nil
}
