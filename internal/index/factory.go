package index

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// NewFromEnv constructs the Index selected by SEARCH_BACKEND (azure|qdrant).
//
//	azure:  SEARCH_SERVICE_ENDPOINT, SEARCH_SERVICE_ADMIN_KEY, SEARCH_INDEX_NAME, SEARCH_API_VERSION
//	qdrant: QDRANT_HOST, QDRANT_PORT, QDRANT_COLLECTION, QDRANT_API_KEY, QDRANT_TLS
func NewFromEnv(ctx context.Context) (Index, error) {
	backend := os.Getenv("SEARCH_BACKEND")
	if backend == "" {
		backend = "azure"
	}

	switch backend {
	case "azure":
		return NewAzureSearch(&AzureConfig{
			Endpoint:   os.Getenv("SEARCH_SERVICE_ENDPOINT"),
			APIKey:     os.Getenv("SEARCH_SERVICE_ADMIN_KEY"),
			Index:      os.Getenv("SEARCH_INDEX_NAME"),
			APIVersion: os.Getenv("SEARCH_API_VERSION"),
		})

	case "qdrant":
		port := 6334
		if v := os.Getenv("QDRANT_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("index: invalid QDRANT_PORT %q: %w", v, err)
			}
			port = p
		}
		useTLS, _ := strconv.ParseBool(os.Getenv("QDRANT_TLS"))
		collection := os.Getenv("QDRANT_COLLECTION")
		if collection == "" {
			collection = "documents"
		}
		return NewQdrant(ctx, &QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       port,
			Collection: collection,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     useTLS,
		})

	default:
		return nil, fmt.Errorf("index: unknown SEARCH_BACKEND %q (valid: azure, qdrant)", backend)
	}
}
