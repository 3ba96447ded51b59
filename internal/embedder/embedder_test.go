package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/54b3r/kscan/internal/api"
)

func TestOpenAIEmbedder_AzureRouting(t *testing.T) {
	t.Parallel()

	var gotPath, gotQuery, gotKey, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("api-version")
		gotKey = r.Header.Get("api-key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2],"index":0}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{
		BaseURL:    srv.URL + "/",
		APIKey:     "secret",
		Model:      "text-embedding-ada-002",
		Azure:      true,
		APIVersion: "2023-05-15",
	})

	resp, err := e.Embed(context.Background(), &api.EmbeddingRequest{Input: "coastal erosion"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if gotPath != "/openai/deployments/text-embedding-ada-002/embeddings" {
		t.Errorf("path = %q", gotPath)
	}
	if gotQuery != "2023-05-15" {
		t.Errorf("api-version = %q", gotQuery)
	}
	if gotKey != "secret" || gotAuth != "" {
		t.Errorf("expected api-key header only, got api-key=%q auth=%q", gotKey, gotAuth)
	}
	if gotBody["input"] != "coastal erosion" {
		t.Errorf("input = %v", gotBody["input"])
	}
	if _, ok := gotBody["model"]; ok {
		t.Error("azure request should not carry a model field")
	}
	vec, ok := resp.First()
	if !ok || len(vec) != 2 {
		t.Fatalf("unexpected embedding %v", resp)
	}
}

func TestOpenAIEmbedder_OpenAIBearer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("auth = %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"data":[{"embedding":[1],"index":0}]}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "m"})
	if _, err := e.Embed(context.Background(), &api.EmbeddingRequest{Input: "x"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestOpenAIEmbedder_UpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL, APIKey: "k", Model: "m", Azure: true})
	_, err := e.Embed(context.Background(), &api.EmbeddingRequest{Input: "x"})

	var se *api.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *api.StatusError, got %v", err)
	}
	if se.Code != http.StatusUnauthorized || se.Service != "embedding" {
		t.Errorf("unexpected status error %+v", se)
	}
	if !strings.Contains(se.Body, "bad key") {
		t.Errorf("body not preserved: %q", se.Body)
	}
}

func TestEmbed_EmptyInputRejectedBeforeNetwork(t *testing.T) {
	t.Parallel()

	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	defer srv.Close()

	embedders := []api.Embedder{
		NewOpenAIEmbedder(&OpenAIConfig{BaseURL: srv.URL}),
		NewOllamaEmbedder(&OllamaConfig{Host: srv.URL}),
	}
	for _, e := range embedders {
		_, err := e.Embed(context.Background(), &api.EmbeddingRequest{})
		var verr *api.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("%T: expected validation error, got %v", e, err)
		}
	}
	if called {
		t.Error("upstream was called for an empty input")
	}
}

func TestOllamaEmbedder_Reshape(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Input) != 1 || body.Input[0] != "wetlands" {
			t.Errorf("unexpected input %v", body.Input)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.3,0.4,0.5]]}`))
	}))
	defer srv.Close()

	resp, err := NewOllamaEmbedder(&OllamaConfig{Host: srv.URL, Model: "nomic-embed-text"}).
		Embed(context.Background(), &api.EmbeddingRequest{Input: "wetlands"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) != 3 || resp.Data[0].Index != 0 {
		t.Fatalf("unexpected reshaped response %+v", resp)
	}
}

func TestNewFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		wantT   string
	}{
		{"azure default missing key", map[string]string{"EMBEDDING_PROVIDER": ""}, true, ""},
		{"azure ok", map[string]string{"EMBEDDING_PROVIDER": "azure", "EMBEDDING_API_KEY": "k", "EMBEDDING_ENDPOINT": "https://x"}, false, "*embedder.OpenAIEmbedder"},
		{"azure missing endpoint", map[string]string{"EMBEDDING_PROVIDER": "azure", "EMBEDDING_API_KEY": "k"}, true, ""},
		{"openai ok", map[string]string{"EMBEDDING_PROVIDER": "openai", "OPENAI_API_KEY": "k"}, false, "*embedder.OpenAIEmbedder"},
		{"ollama", map[string]string{"EMBEDDING_PROVIDER": "ollama"}, false, "*embedder.OllamaEmbedder"},
		{"unknown", map[string]string{"EMBEDDING_PROVIDER": "bedrock"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"EMBEDDING_PROVIDER", "EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT",
				"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "OPENAI_API_KEY"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			e, err := NewFromEnv()
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFromEnv() err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				if got := typeName(e); got != tt.wantT {
					t.Errorf("type = %s, want %s", got, tt.wantT)
				}
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *OpenAIEmbedder:
		return "*embedder.OpenAIEmbedder"
	case *OllamaEmbedder:
		return "*embedder.OllamaEmbedder"
	}
	return "unknown"
}

func TestValidate_WarnsOnChatModel(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "ollama")
	t.Setenv("EMBEDDING_MODEL", "llama3:8b")

	var buf bytes.Buffer
	if err := Validate(slog.New(slog.NewTextHandler(&buf, nil))); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !strings.Contains(buf.String(), "looks like a chat model") {
		t.Errorf("expected warning, got %q", buf.String())
	}
}

func TestLooksLikeChatModel(t *testing.T) {
	t.Parallel()
	cases := map[string]bool{
		"text-embedding-3-small": false,
		"nomic-embed-text":       false,
		"gpt-4o":                 true,
		"mistral:7b":             true,
		"mxbai-embed-large":      false,
	}
	for model, want := range cases {
		if got := looksLikeChatModel(model); got != want {
			t.Errorf("looksLikeChatModel(%q) = %v, want %v", model, got, want)
		}
	}
}
