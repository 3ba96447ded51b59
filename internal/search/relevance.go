package search

import (
	"fmt"
	"os"
	"strconv"
)

// Relevance is the display label derived from a raw similarity score.
type Relevance string

// Relevance buckets, highest first.
const (
	Great Relevance = "Great"
	Good  Relevance = "Good"
	Fair  Relevance = "Fair"
)

// Default bucket boundaries. They suit Azure AI Search hybrid (RRF) scores,
// which cluster around 0.01-0.05.
const (
	DefaultGreatThreshold = 0.03
	DefaultGoodThreshold  = 0.02
)

// Thresholds are the bucket boundaries: score > Great is Great,
// Good <= score <= Great is Good, anything else is Fair.
type Thresholds struct {
	Great float64
	Good  float64
}

// DefaultThresholds returns the standard boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Great: DefaultGreatThreshold, Good: DefaultGoodThreshold}
}

// ThresholdsFromEnv reads RELEVANCE_GREAT and RELEVANCE_GOOD, falling back to
// the defaults for whichever is unset.
func ThresholdsFromEnv() (Thresholds, error) {
	th := DefaultThresholds()
	if v := os.Getenv("RELEVANCE_GREAT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return th, fmt.Errorf("search: invalid RELEVANCE_GREAT %q: %w", v, err)
		}
		th.Great = f
	}
	if v := os.Getenv("RELEVANCE_GOOD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return th, fmt.Errorf("search: invalid RELEVANCE_GOOD %q: %w", v, err)
		}
		th.Good = f
	}
	if th.Good > th.Great {
		return th, fmt.Errorf("search: RELEVANCE_GOOD (%g) must not exceed RELEVANCE_GREAT (%g)", th.Good, th.Great)
	}
	return th, nil
}

// Bucket maps score to a Relevance label.
func (t Thresholds) Bucket(score float64) Relevance {
	switch {
	case score > t.Great:
		return Great
	case score >= t.Good:
		return Good
	default:
		return Fair
	}
}

// Class returns the CSS class the chat shells use for r.
func (r Relevance) Class() string {
	switch r {
	case Great:
		return "relevance-high"
	case Good:
		return "relevance-medium"
	default:
		return "relevance-low"
	}
}
