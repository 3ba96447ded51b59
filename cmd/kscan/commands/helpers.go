package commands

import (
	"os"
	"strings"

	"github.com/54b3r/kscan/internal/api"
	"github.com/54b3r/kscan/internal/search"
)

// defaultServerURL is used when neither --server nor KSCAN_URL is set.
const defaultServerURL = "http://127.0.0.1:8080"

// newClient returns an api.Client for the configured server, sending
// KSCAN_API_KEY as the Bearer token when set.
func newClient() *api.Client {
	base := serverURL
	if base == "" {
		base = os.Getenv("KSCAN_URL")
	}
	if base == "" {
		base = defaultServerURL
	}
	return api.NewClient(base, api.WithToken(os.Getenv("KSCAN_API_KEY")))
}

// newSearchService runs searches through c with the configured relevance
// thresholds.
func newSearchService(c *api.Client) (*search.Service, error) {
	th, err := search.ThresholdsFromEnv()
	if err != nil {
		return nil, err
	}
	return search.NewService(c, c, search.WithThresholds(th)), nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
