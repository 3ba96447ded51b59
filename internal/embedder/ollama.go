package embedder

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/54b3r/kscan/internal/api"
)

// OllamaEmbedder implements api.Embedder using the Ollama /api/embed endpoint
// and reshapes the result into the OpenAI data[].embedding form. It is safe
// for concurrent use. No API key is required.
type OllamaEmbedder struct {
	// host is the Ollama server base URL (e.g. "http://localhost:11434").
	host string
	// model is the embedding model name (e.g. "nomic-embed-text").
	model string
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// OllamaConfig holds the settings for constructing an OllamaEmbedder.
type OllamaConfig struct {
	// Host is the Ollama server base URL (e.g. "http://localhost:11434").
	Host string
	// Model is the embedding model name (e.g. "nomic-embed-text").
	Model string
	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// NewOllamaEmbedder constructs an OllamaEmbedder from the given config.
func NewOllamaEmbedder(cfg *OllamaConfig) *OllamaEmbedder {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}
	return &OllamaEmbedder{
		host:   strings.TrimRight(cfg.Host, "/"),
		model:  cfg.Model,
		client: hc,
	}
}

// ollamaEmbedRequest is the JSON body sent to the Ollama /api/embed endpoint.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// ollamaEmbedResponse is the JSON body returned from the Ollama /api/embed endpoint.
type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed embeds req.Input and returns it in the OpenAI response shape.
func (e *OllamaEmbedder) Embed(ctx context.Context, req *api.EmbeddingRequest) (*api.EmbeddingResponse, error) {
	if err := api.Validate(req); err != nil {
		return nil, err
	}

	var result ollamaEmbedResponse
	body := ollamaEmbedRequest{Model: e.model, Input: []string{req.Input}}
	if err := postJSON(ctx, e.client, e.host+"/api/embed", nil, body, &result); err != nil {
		return nil, fmt.Errorf("ollama embedder: %w", err)
	}

	out := &api.EmbeddingResponse{Data: make([]api.EmbeddingData, 0, len(result.Embeddings))}
	for i, vec := range result.Embeddings {
		out.Data = append(out.Data, api.EmbeddingData{Embedding: vec, Index: i})
	}
	return out, nil
}
