package synthesis

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/provider"
)

// Synthesis modes selected by SYNTHESIS_MODE.
const (
	ModeRemote = "remote"
	ModeLocal  = "local"
)

// Service is what the server needs from this package. Bibliographer is nil
// in remote mode.
type Service struct {
	Synthesizer   api.Synthesizer
	Bibliographer api.Bibliographer
	// Mode is ModeRemote or ModeLocal.
	Mode string
}

// NewFromEnv builds the synthesizer selected by SYNTHESIS_MODE (default
// remote). Local mode needs records from the search index and a chat model
// configured through the MODEL_* variables.
//
//	SYNTHESIS_MODE        = remote | local
//	SYNTHESIS_URL         (remote) knowledge scan function URL
//	SYNTHESIS_API_KEY     (remote) x-functions-key
//	SYNTHESIS_CONCURRENCY (local)  parallel model calls (default: 4)
func NewFromEnv(ctx context.Context, records Records) (*Service, error) {
	mode := os.Getenv("SYNTHESIS_MODE")
	if mode == "" {
		mode = ModeRemote
	}

	switch mode {
	case ModeRemote:
		r, err := NewRemote(os.Getenv("SYNTHESIS_URL"), os.Getenv("SYNTHESIS_API_KEY"), nil)
		if err != nil {
			return nil, err
		}
		return &Service{Synthesizer: r, Mode: mode}, nil

	case ModeLocal:
		concurrency := DefaultConcurrency
		if v := os.Getenv("SYNTHESIS_CONCURRENCY"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("synthesis: SYNTHESIS_CONCURRENCY must be a positive integer, got %q", v)
			}
			concurrency = n
		}
		m, err := provider.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("synthesis: chat model: %w", err)
		}
		g, err := NewGenerator(GeneratorConfig{
			Records:     records,
			Model:       m,
			Concurrency: concurrency,
		})
		if err != nil {
			return nil, err
		}
		return &Service{Synthesizer: g, Bibliographer: g, Mode: mode}, nil

	default:
		return nil, fmt.Errorf("synthesis: unknown SYNTHESIS_MODE %q (want remote or local)", mode)
	}
}
