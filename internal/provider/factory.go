package provider

import (
	"context"
	"os"
	"strconv"

	"github.com/cloudwego/eino/components/model"
)

// ConfigFromEnv resolves a Config from the environment. The MODEL_* variables
// apply to whichever backend is selected; each backend also honours its
// native credential variables as a fallback.
//
//	MODEL_PROVIDER   = azure | openai | ollama | ark | gemini (default: azure)
//	MODEL_NAME, MODEL_BASE_URL, MODEL_API_KEY
//	Azure:   AZURE_OPENAI_API_KEY, AZURE_OPENAI_ENDPOINT, AZURE_OPENAI_DEPLOYMENT,
//	         AZURE_OPENAI_API_VERSION (default: 2024-02-01)
//	OpenAI:  OPENAI_API_KEY, OPENAI_MODEL (default: gpt-4o)
//	Ollama:  OLLAMA_HOST (default: http://localhost:11434), OLLAMA_MODEL (default: llama3)
//	Ark:     ARK_API_KEY
//	Gemini:  GOOGLE_API_KEY, GEMINI_MODEL (default: gemini-1.5-pro)
//	Shared:  MODEL_MAX_TOKENS (default: 1024), MODEL_TEMPERATURE (default: 0.2)
func ConfigFromEnv() *Config {
	return &Config{
		Backend: Backend(getEnvOrDefault("MODEL_PROVIDER", string(BackendAzure))),
		Ollama: ProviderOllama{
			Host:  firstEnvOr("http://localhost:11434", "MODEL_BASE_URL", "OLLAMA_HOST"),
			Model: firstEnvOr("llama3", "MODEL_NAME", "OLLAMA_MODEL"),
		},
		OpenAI: ProviderOpenAI{
			APIKey:  firstEnvOr("", "MODEL_API_KEY", "OPENAI_API_KEY"),
			Model:   firstEnvOr("gpt-4o", "MODEL_NAME", "OPENAI_MODEL"),
			BaseURL: os.Getenv("MODEL_BASE_URL"),
		},
		AzureOpenAI: ProviderAzureOpenAI{
			APIKey:     firstEnvOr("", "MODEL_API_KEY", "AZURE_OPENAI_API_KEY"),
			Endpoint:   firstEnvOr("", "MODEL_BASE_URL", "AZURE_OPENAI_ENDPOINT"),
			Deployment: firstEnvOr("", "AZURE_OPENAI_DEPLOYMENT", "MODEL_NAME"),
			APIVersion: getEnvOrDefault("AZURE_OPENAI_API_VERSION", "2024-02-01"),
		},
		Ark: ProviderArk{
			APIKey:  firstEnvOr("", "MODEL_API_KEY", "ARK_API_KEY"),
			Model:   os.Getenv("MODEL_NAME"),
			BaseURL: os.Getenv("MODEL_BASE_URL"),
		},
		Gemini: ProviderGemini{
			APIKey: firstEnvOr("", "MODEL_API_KEY", "GOOGLE_API_KEY"),
			Model:  firstEnvOr("gemini-1.5-pro", "MODEL_NAME", "GEMINI_MODEL"),
		},
		Tuning: SharedTuning{
			MaxTokens:   getEnvInt("MODEL_MAX_TOKENS", 1024),
			Temperature: getEnvFloat32("MODEL_TEMPERATURE", 0.2),
		},
	}
}

// NewFromEnv constructs a chat model from ConfigFromEnv.
func NewFromEnv(ctx context.Context) (model.BaseChatModel, error) {
	return New(ctx, ConfigFromEnv())
}

// New constructs a chat model from an explicit Config. It validates the
// config first so callers get a clear error at startup rather than on the
// first synthesis.
func New(ctx context.Context, cfg *Config) (model.BaseChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendOllama:
		return newOllama(ctx, cfg)
	case BackendOpenAI:
		return newOpenAI(ctx, cfg)
	case BackendAzure:
		return newAzure(ctx, cfg)
	case BackendArk:
		return newArk(ctx, cfg)
	default:
		return newGemini(ctx, cfg)
	}
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// firstEnvOr returns the first non-empty value among keys, else fallback.
func firstEnvOr(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
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

// getEnvFloat32 returns the float32 value of the named environment variable,
// or fallback if the variable is unset, empty, or not parseable.
func getEnvFloat32(key string, fallback float32) float32 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			return float32(f)
		}
	}
	return fallback
}
