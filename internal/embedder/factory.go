package embedder

import (
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/kscan/internal/api"
)

// Default embedding models per backend.
const (
	defaultOllamaModel  = "nomic-embed-text"
	defaultOpenAIModel  = "text-embedding-3-small"
	defaultAzureModel   = "text-embedding-ada-002"
	defaultAzureVersion = "2023-05-15"
)

// NewFromEnv constructs an api.Embedder from the environment.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — azure (default), openai or ollama
//  2. EMBEDDING_ENDPOINT — falls back to AZURE_OPENAI_ENDPOINT / OLLAMA_HOST / api.openai.com
//  3. EMBEDDING_API_KEY  — falls back to AZURE_OPENAI_API_KEY / OPENAI_API_KEY
//  4. EMBEDDING_MODEL    — model or Azure deployment name
//  5. EMBEDDING_API_VERSION, EMBEDDING_DIMENSIONS
func NewFromEnv() (api.Embedder, error) {
	backend := getEnvOrDefault("EMBEDDING_PROVIDER", "azure")

	switch backend {
	case "ollama":
		host := getEnv("EMBEDDING_ENDPOINT")
		if host == "" {
			host = getEnvOrDefault("OLLAMA_HOST", "http://localhost:11434")
		}
		return NewOllamaEmbedder(&OllamaConfig{
			Host:  host,
			Model: getEnvOrDefault("EMBEDDING_MODEL", defaultOllamaModel),
		}), nil

	case "openai":
		apiKey := firstEnv("EMBEDDING_API_KEY", "OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires EMBEDDING_API_KEY or OPENAI_API_KEY")
		}
		baseURL := getEnvOrDefault("EMBEDDING_ENDPOINT", "https://api.openai.com/v1")
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    baseURL,
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultOpenAIModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
		}), nil

	case "azure":
		apiKey := firstEnv("EMBEDDING_API_KEY", "AZURE_OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: azure requires EMBEDDING_API_KEY or AZURE_OPENAI_API_KEY")
		}
		endpoint := firstEnv("EMBEDDING_ENDPOINT", "AZURE_OPENAI_ENDPOINT")
		if endpoint == "" {
			return nil, fmt.Errorf("embedder: azure requires EMBEDDING_ENDPOINT or AZURE_OPENAI_ENDPOINT")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			BaseURL:    endpoint,
			APIKey:     apiKey,
			Model:      getEnvOrDefault("EMBEDDING_MODEL", defaultAzureModel),
			Dimensions: getEnvInt("EMBEDDING_DIMENSIONS", 0),
			Azure:      true,
			APIVersion: getEnvOrDefault("EMBEDDING_API_VERSION", defaultAzureVersion),
		}), nil

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q (valid: azure, openai, ollama)", backend)
	}
}

// getEnv returns the value of the named environment variable, or empty string.
func getEnv(key string) string {
	return os.Getenv(key)
}

// firstEnv returns the first non-empty value among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
