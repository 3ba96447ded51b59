package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/54b3r/kscan/internal/api"
)

// serviceName labels upstream errors from the search backends.
const serviceName = "search"

// AzureConfig holds connection parameters for an Azure AI Search index.
type AzureConfig struct {
	// Endpoint is the search service URL (https://<name>.search.windows.net).
	Endpoint string
	// APIKey is the admin or query key, sent as the api-key header.
	APIKey string
	// Index is the index name.
	Index string
	// APIVersion is the REST api-version (default 2024-07-01).
	APIVersion string
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// AzureSearch implements Index against the Azure AI Search REST API.
type AzureSearch struct {
	base       string
	apiKey     string
	apiVersion string
	client     *http.Client
}

// NewAzureSearch returns an AzureSearch for cfg.
func NewAzureSearch(cfg *AzureConfig) (*AzureSearch, error) {
	if cfg.Endpoint == "" || cfg.Index == "" {
		return nil, fmt.Errorf("azure search: endpoint and index name are required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("azure search: api key is required")
	}
	version := cfg.APIVersion
	if version == "" {
		version = "2024-07-01"
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &AzureSearch{
		base:       strings.TrimRight(cfg.Endpoint, "/") + "/indexes/" + url.PathEscape(cfg.Index),
		apiKey:     cfg.APIKey,
		apiVersion: version,
		client:     hc,
	}, nil
}

// Search forwards req verbatim to /docs/search.
func (a *AzureSearch) Search(ctx context.Context, req *api.SearchRequest) (*api.SearchResponse, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}
	var out api.SearchResponse
	if err := a.do(ctx, http.MethodPost, "/docs/search", req, &out); err != nil {
		return nil, fmt.Errorf("azure search: search: %w", err)
	}
	return &out, nil
}

// Lookup fetches each key via GET /docs/{key}.
func (a *AzureSearch) Lookup(ctx context.Context, ids []string) ([]api.Record, error) {
	out := make([]api.Record, 0, len(ids))
	for _, id := range ids {
		var rec api.Record
		err := a.do(ctx, http.MethodGet, "/docs/"+url.PathEscape(id), nil, &rec)
		if err != nil {
			var se *api.StatusError
			if errors.As(err, &se) && se.Code == http.StatusNotFound {
				return nil, fmt.Errorf("azure search: lookup %q: %w", id, ErrNotFound)
			}
			return nil, fmt.Errorf("azure search: lookup %q: %w", id, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// azureRecords decodes a search response into full records.
type azureRecords struct {
	Value []api.Record `json:"value"`
}

// FirstChunk runs a filtered search for the base name's first chunk.
func (a *AzureSearch) FirstChunk(ctx context.Context, baseName string) (*api.Record, error) {
	req := &api.SearchRequest{
		Search: "*",
		Filter: fmt.Sprintf("file_name eq '%s'", odataQuote(baseName+FirstChunkSuffix)),
		Select: "id,file_name,summary,content_text",
		Top:    1,
	}
	var out azureRecords
	if err := a.do(ctx, http.MethodPost, "/docs/search", req, &out); err != nil {
		return nil, fmt.Errorf("azure search: first chunk %q: %w", baseName, err)
	}
	if len(out.Value) == 0 {
		return nil, nil
	}
	return &out.Value[0], nil
}

// Ping issues GET /docs/$count, which any valid key may call.
func (a *AzureSearch) Ping(ctx context.Context) error {
	if err := a.do(ctx, http.MethodGet, "/docs/$count", nil, nil); err != nil {
		return fmt.Errorf("azure search: ping: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client has no persistent state worth closing.
func (a *AzureSearch) Close() error { return nil }

func (a *AzureSearch) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	endpoint := a.base + path + "?api-version=" + url.QueryEscape(a.apiVersion)
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("api-key", a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return api.NewStatusError(serviceName, resp.StatusCode, raw)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// odataQuote escapes a string literal for an OData filter.
func odataQuote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
