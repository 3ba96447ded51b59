// Package version holds build-time version information for the kscan binary.
// The variables are populated via -ldflags:
//
//	go build -ldflags="-X github.com/54b3r/kscan/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/kscan/internal/version.Commit=abc1234 \
//	                    -X github.com/54b3r/kscan/internal/version.BuildDate=2026-10-01"
package version

import "fmt"

// Version is the semantic version of the binary. Defaults to "dev".
var Version = "dev"

// Commit is the short git SHA the binary was built from.
var Commit = "unknown"

// BuildDate is the UTC build date (RFC3339).
var BuildDate = "unknown"

// String returns the one-line version banner printed by `kscan version`.
func String() string {
	return fmt.Sprintf("kscan %s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// UserAgent is sent on every upstream request so operators can attribute
// traffic in the embedding, search and synthesis service logs.
func UserAgent() string {
	return "kscan/" + Version
}
