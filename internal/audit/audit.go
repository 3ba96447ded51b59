// Package audit provides a structured audit logger for CLI command invocations.
// It logs the command name, the config file source and the operational
// environment so operators can trace which upstreams a process talked to.
//
// Secrets are logged as presence/absence only. URL-valued settings are logged
// without their query string, since Azure Function URLs often carry the
// function key as ?code=.
package audit

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"strings"
)

// auditEntry defines an env var to include in the audit log.
type auditEntry struct {
	// key is the environment variable name.
	key string
	// secret indicates the value should be redacted to presence/absence.
	secret bool
}

// auditKeys is the ordered list of env vars included in every audit log entry.
var auditKeys = []auditEntry{
	{"KSCAN_HOST", false},
	{"KSCAN_PORT", false},
	{"KSCAN_API_KEY", true},
	{"KSCAN_STATIC_DIR", false},
	{"KSCAN_SCAN_DB", false},
	{"EMBEDDING_PROVIDER", false},
	{"EMBEDDING_ENDPOINT", false},
	{"EMBEDDING_MODEL", false},
	{"EMBEDDING_API_KEY", true},
	{"SEARCH_BACKEND", false},
	{"SEARCH_SERVICE_ENDPOINT", false},
	{"SEARCH_INDEX_NAME", false},
	{"SEARCH_SERVICE_ADMIN_KEY", true},
	{"QDRANT_HOST", false},
	{"QDRANT_COLLECTION", false},
	{"QDRANT_API_KEY", true},
	{"SYNTHESIS_MODE", false},
	{"SYNTHESIS_URL", false},
	{"SYNTHESIS_API_KEY", true},
	{"MODEL_PROVIDER", false},
	{"MODEL_NAME", false},
	{"MODEL_API_KEY", true},
	{"OPENAI_API_KEY", true},
	{"AZURE_OPENAI_API_KEY", true},
	{"GOOGLE_API_KEY", true},
	{"ARK_API_KEY", true},
	{"LOG_LEVEL", false},
	{"LOG_FORMAT", false},
	{"LANGFUSE_PUBLIC_KEY", true},
	{"LANGFUSE_SECRET_KEY", true},
}

// secretEnvKeys is derived from auditKeys so the two lists cannot drift.
var secretEnvKeys = func() map[string]bool {
	m := make(map[string]bool)
	for _, e := range auditKeys {
		if e.secret {
			m[e.key] = true
		}
	}
	return m
}()

// LogCommandStart emits a structured audit log entry when a CLI command begins.
func LogCommandStart(log *slog.Logger, command string, configPath string) {
	attrs := []slog.Attr{
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
	}

	for _, entry := range auditKeys {
		attrs = append(attrs, slog.String(entry.key, SanitiseKey(entry.key, os.Getenv(entry.key))))
	}

	log.LogAttrs(context.Background(), slog.LevelInfo, "audit: command start", attrs...)
}

// SanitiseKey returns "set" or "unset" for known secret keys, and the value
// (with any URL query string removed) for everything else.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(stripQuery(value))
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// stripQuery drops the query string and userinfo from absolute URLs.
// Non-URL values pass through unchanged.
func stripQuery(v string) string {
	if !strings.Contains(v, "://") {
		return v
	}
	u, err := url.Parse(v)
	if err != nil {
		return "<unparseable url>"
	}
	u.RawQuery = ""
	u.User = nil
	return u.String()
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
