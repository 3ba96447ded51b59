// Package tracing wires Langfuse tracing into the eino chat model calls made
// by local synthesis. It is off unless both Langfuse keys are configured.
package tracing

import (
	"os"
	"sync"

	"github.com/cloudwego/eino-ext/callbacks/langfuse"
	"github.com/cloudwego/eino/callbacks"
)

// defaultHost is the self-hosted Langfuse default.
const defaultHost = "http://localhost:3000"

// Config holds Langfuse credentials.
type Config struct {
	Host      string
	PublicKey string
	SecretKey string
}

// Enabled reports whether both keys are present.
func (c Config) Enabled() bool {
	return c.PublicKey != "" && c.SecretKey != ""
}

// ConfigFromEnv reads LANGFUSE_HOST, LANGFUSE_PUBLIC_KEY and LANGFUSE_SECRET_KEY.
func ConfigFromEnv() Config {
	host := os.Getenv("LANGFUSE_HOST")
	if host == "" {
		host = defaultHost
	}
	return Config{
		Host:      host,
		PublicKey: os.Getenv("LANGFUSE_PUBLIC_KEY"),
		SecretKey: os.Getenv("LANGFUSE_SECRET_KEY"),
	}
}

var registerOnce sync.Once

// Setup registers a global Langfuse callback handler when cfg is enabled.
// The returned flush function must be called before process exit so queued
// traces are sent; it is a no-op when tracing is disabled. Global handlers
// can only be registered once per process, so later calls are no-ops.
func Setup(cfg Config) (flush func(), enabled bool) {
	if !cfg.Enabled() {
		return func() {}, false
	}
	flush = func() {}
	registerOnce.Do(func() {
		handler, flusher := langfuse.NewLangfuseHandler(&langfuse.Config{
			Host:      cfg.Host,
			PublicKey: cfg.PublicKey,
			SecretKey: cfg.SecretKey,
		})
		callbacks.AppendGlobalHandlers(handler)
		flush = flusher
	})
	return flush, true
}
