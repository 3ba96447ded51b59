// Package config provides YAML-based configuration for kscan.
// Configuration is loaded with a layered precedence: defaults → YAML file → .env → env vars.
// Environment variables always win; every other layer only fills in what is unset.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. KSCAN_CONFIG environment variable
//  3. ~/.kscan/config.yaml
//  4. ./kscan.yaml
//
// If no file is found the system runs entirely from env vars.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Server configures the HTTP server and static bundle.
	Server ServerConfig `yaml:"server"`

	// Embedding configures the embedding upstream.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Search configures the vector search upstream.
	Search SearchConfig `yaml:"search"`

	// Synthesis configures the synthesis upstream or the local generator.
	Synthesis SynthesisConfig `yaml:"synthesis"`

	// Model configures the chat model used by the local generator.
	Model ModelConfig `yaml:"model"`

	// Relevance overrides the score thresholds of the relevance buckets.
	Relevance RelevanceConfig `yaml:"relevance"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`

	// Store configures knowledge scan persistence.
	Store StoreConfig `yaml:"store"`

	// Tracing configures Langfuse tracing integration.
	Tracing TracingConfig `yaml:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for /api routes. Prefer env var KSCAN_API_KEY.
	APIKey string `yaml:"api_key"`
	// StaticDir is the compiled UI bundle served at "/".
	StaticDir string `yaml:"static_dir"`
	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `yaml:"cors_origins"`
}

// EmbeddingConfig holds embedding upstream settings.
type EmbeddingConfig struct {
	// Provider selects the backend: azure, openai, ollama.
	Provider string `yaml:"provider"`
	// Endpoint is the upstream base URL.
	Endpoint string `yaml:"endpoint"`
	// APIKey is injected server-side. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Model is the model or Azure deployment name.
	Model string `yaml:"model"`
	// APIVersion is the Azure OpenAI api-version query parameter.
	APIVersion string `yaml:"api_version"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
}

// SearchConfig holds vector search upstream settings.
type SearchConfig struct {
	// Backend selects the index: azure, qdrant.
	Backend string `yaml:"backend"`
	// Endpoint is the Azure AI Search service URL.
	Endpoint string `yaml:"endpoint"`
	// APIKey is the Azure AI Search key. Prefer env var SEARCH_SERVICE_ADMIN_KEY.
	APIKey string `yaml:"api_key"`
	// Index is the Azure AI Search index name.
	Index string `yaml:"index"`
	// APIVersion is the Azure AI Search api-version query parameter.
	APIVersion string `yaml:"api_version"`
	// Qdrant holds the Qdrant connection when Backend is qdrant.
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// Collection is the Qdrant collection name.
	Collection string `yaml:"collection"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// SynthesisConfig holds synthesis settings.
type SynthesisConfig struct {
	// Mode selects remote (forward to URL) or local (in-process generator).
	Mode string `yaml:"mode"`
	// URL is the remote synthesis function endpoint.
	URL string `yaml:"url"`
	// APIKey is the function key. Prefer env var SYNTHESIS_API_KEY.
	APIKey string `yaml:"api_key"`
	// Concurrency bounds parallel group summaries in local mode.
	Concurrency int `yaml:"concurrency"`
}

// ModelConfig holds chat model settings for the local generator.
type ModelConfig struct {
	// Provider selects the backend: ollama, openai, azure, ark, gemini.
	Provider string `yaml:"provider"`
	// MaxTokens is the maximum number of tokens in each response.
	MaxTokens int `yaml:"max_tokens"`
	// Temperature controls response randomness (0.0–1.0).
	Temperature float32 `yaml:"temperature"`
	// Name is the model name for the selected provider.
	Name string `yaml:"name"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url"`
	// APIKey is the provider key. Prefer the provider's native env var.
	APIKey string `yaml:"api_key"`
	// AzureDeployment is the Azure OpenAI deployment name.
	AzureDeployment string `yaml:"azure_deployment"`
	// AzureAPIVersion is the Azure OpenAI API version.
	AzureAPIVersion string `yaml:"azure_api_version"`
}

// RelevanceConfig holds the relevance bucket thresholds.
type RelevanceConfig struct {
	// Great is the exclusive lower bound of the Great bucket.
	Great float64 `yaml:"great"`
	// Good is the inclusive lower bound of the Good bucket.
	Good float64 `yaml:"good"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// StoreConfig holds knowledge scan persistence settings.
type StoreConfig struct {
	// DBPath is the SQLite database path. Set to "disabled" to disable.
	DBPath string `yaml:"db_path"`
}

// TracingConfig holds Langfuse tracing settings.
type TracingConfig struct {
	// PublicKey is the Langfuse public key. Prefer env var LANGFUSE_PUBLIC_KEY.
	PublicKey string `yaml:"public_key"`
	// SecretKey is the Langfuse secret key. Prefer env var LANGFUSE_SECRET_KEY.
	SecretKey string `yaml:"secret_key"`
	// Host is the Langfuse API host.
	Host string `yaml:"host"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"KSCAN_HOST", func(c *Config) string { return c.Server.Host }},
	{"KSCAN_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"KSCAN_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"KSCAN_STATIC_DIR", func(c *Config) string { return c.Server.StaticDir }},
	{"KSCAN_CORS_ORIGINS", func(c *Config) string { return c.Server.CORSOrigins }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_API_VERSION", func(c *Config) string { return c.Embedding.APIVersion }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"SEARCH_BACKEND", func(c *Config) string { return c.Search.Backend }},
	{"SEARCH_SERVICE_ENDPOINT", func(c *Config) string { return c.Search.Endpoint }},
	{"SEARCH_SERVICE_ADMIN_KEY", func(c *Config) string { return c.Search.APIKey }},
	{"SEARCH_INDEX_NAME", func(c *Config) string { return c.Search.Index }},
	{"SEARCH_API_VERSION", func(c *Config) string { return c.Search.APIVersion }},
	{"QDRANT_HOST", func(c *Config) string { return c.Search.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Search.Qdrant.Port) }},
	{"QDRANT_COLLECTION", func(c *Config) string { return c.Search.Qdrant.Collection }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Search.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Search.Qdrant.TLS) }},
	{"SYNTHESIS_MODE", func(c *Config) string { return c.Synthesis.Mode }},
	{"SYNTHESIS_URL", func(c *Config) string { return c.Synthesis.URL }},
	{"SYNTHESIS_API_KEY", func(c *Config) string { return c.Synthesis.APIKey }},
	{"SYNTHESIS_CONCURRENCY", func(c *Config) string { return intStr(c.Synthesis.Concurrency) }},
	{"MODEL_PROVIDER", func(c *Config) string { return c.Model.Provider }},
	{"MODEL_MAX_TOKENS", func(c *Config) string { return intStr(c.Model.MaxTokens) }},
	{"MODEL_TEMPERATURE", func(c *Config) string { return float32Str(c.Model.Temperature) }},
	{"MODEL_NAME", func(c *Config) string { return c.Model.Name }},
	{"MODEL_BASE_URL", func(c *Config) string { return c.Model.BaseURL }},
	{"MODEL_API_KEY", func(c *Config) string { return c.Model.APIKey }},
	{"AZURE_OPENAI_DEPLOYMENT", func(c *Config) string { return c.Model.AzureDeployment }},
	{"AZURE_OPENAI_API_VERSION", func(c *Config) string { return c.Model.AzureAPIVersion }},
	{"RELEVANCE_GREAT", func(c *Config) string { return float64Str(c.Relevance.Great) }},
	{"RELEVANCE_GOOD", func(c *Config) string { return float64Str(c.Relevance.Good) }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
	{"KSCAN_SCAN_DB", func(c *Config) string { return c.Store.DBPath }},
	{"LANGFUSE_PUBLIC_KEY", func(c *Config) string { return c.Tracing.PublicKey }},
	{"LANGFUSE_SECRET_KEY", func(c *Config) string { return c.Tracing.SecretKey }},
	{"LANGFUSE_HOST", func(c *Config) string { return c.Tracing.Host }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		if err := os.Setenv(m.envKey, yamlVal); err != nil {
			return "", fmt.Errorf("config: set %s: %w", m.envKey, err)
		}
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are skipped; a malformed file is an error.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("KSCAN_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".kscan", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("kscan.yaml"); err == nil {
		return "kscan.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

// float32Str converts a float32 to string, returning "" for zero values.
func float32Str(v float32) string {
	if v == 0 {
		return ""
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", v), "0"), ".")
}

// float64Str converts a float64 to its shortest string form, "" for zero.
func float64Str(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
