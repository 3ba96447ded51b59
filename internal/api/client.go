package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/54b3r/kscan/internal/version"
)

// defaultClientTimeout covers a full synthesis round-trip, which fans out to
// several chat-model calls upstream.
const defaultClientTimeout = 3 * time.Minute

// Client talks to a running kscan server. It implements Embedder, Searcher,
// Synthesizer and Bibliographer so the search and chat layers can run
// unchanged against a remote proxy. It is safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the Bearer token sent on every request (KSCAN_API_KEY).
func WithToken(token string) ClientOption {
	return func(c *Client) { c.token = token }
}

// NewClient returns a Client for the server at baseURL
// (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed calls POST /api/get-embedding.
func (c *Client) Embed(ctx context.Context, req *EmbeddingRequest) (*EmbeddingResponse, error) {
	var out EmbeddingResponse
	if err := c.do(ctx, http.MethodPost, "/api/get-embedding", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search calls POST /api/search-documents.
func (c *Client) Search(ctx context.Context, req *SearchRequest) (*SearchResponse, error) {
	var out SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/search-documents", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synthesize calls POST /api/generate-synthesis.
func (c *Client) Synthesize(ctx context.Context, req *SynthesisRequest) (*KnowledgeScan, error) {
	var out KnowledgeScan
	if err := c.do(ctx, http.MethodPost, "/api/generate-synthesis", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Bibliographies calls POST /api/bibliography.
func (c *Client) Bibliographies(ctx context.Context, req *BibliographyRequest) (*BibliographyResponse, error) {
	var out BibliographyResponse
	if err := c.do(ctx, http.MethodPost, "/api/bibliography", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scans calls GET /api/scans and returns at most limit entries (0 = server default).
func (c *Client) Scans(ctx context.Context, limit int) (*ScanList, error) {
	path := "/api/scans"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out ScanList
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan calls GET /api/scans/{id}.
func (c *Client) Scan(ctx context.Context, id string) (*KnowledgeScan, error) {
	var out KnowledgeScan
	if err := c.do(ctx, http.MethodGet, "/api/scans/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health calls GET /api/health and returns nil when the server is alive.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
// Non-2xx responses are returned as *StatusError carrying the server's
// error message.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api client: marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api client: create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var envelope ErrorResponse
		if json.Unmarshal(raw, &envelope) == nil && envelope.Message != "" {
			return &StatusError{Service: "kscan", Code: resp.StatusCode, Body: envelope.Message}
		}
		return NewStatusError("kscan", resp.StatusCode, raw)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api client: decode %s response: %w", path, err)
	}
	return nil
}
