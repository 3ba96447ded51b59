package synthesis

import (
	"strings"
)

// NoBibliography is used when a PDF's first chunk cannot be found.
const NoBibliography = "No bibliography available"

// bibliographyExcerpt is how many characters of the first chunk are sent
// to the model.
const bibliographyExcerpt = 1000

const bibliographySystem = "You are an AI assistant that extracts title, authors, and publication date in a structured bibliography format."

// bibliographyPrompt asks the model for "Authors (Year). Title. Institution."
func bibliographyPrompt(content string) string {
	r := []rune(content)
	if len(r) > bibliographyExcerpt {
		r = r[:bibliographyExcerpt]
	}
	return "Extract the title, authors, and publication date from the following document content. " +
		"Return the result in the format: 'Authors (Year). Title. Institution/Publisher.'. " +
		"If any information is missing, leave those fields blank but keep the format. " +
		"Content:\n\n" + string(r)
}

// Bibliography is a parsed citation.
type Bibliography struct {
	Authors     []string
	Year        string
	Title       string
	Institution string
}

// ParseBibliography parses "Authors (Year). Title. Institution." as returned
// by the model. Text without a parenthesised year yields a zero Bibliography.
func ParseBibliography(s string) Bibliography {
	s = strings.TrimSpace(s)
	before, after, ok := strings.Cut(s, "(")
	if !ok || !strings.Contains(after, ")") {
		return Bibliography{}
	}
	year, rest, _ := strings.Cut(after, ")")

	var b Bibliography
	for _, a := range strings.Split(before, ",") {
		if a = strings.TrimSpace(a); a != "" {
			b.Authors = append(b.Authors, a)
		}
	}
	b.Year = strings.TrimSpace(year)

	rest = strings.TrimLeft(strings.TrimSpace(rest), ". ")
	parts := strings.SplitN(rest, ". ", 2)
	b.Title = strings.TrimSpace(parts[0])
	if len(parts) == 2 {
		b.Institution = strings.TrimSpace(parts[1])
	}
	b.Title = strings.TrimSuffix(b.Title, ".")
	b.Institution = strings.TrimSuffix(b.Institution, ".")
	return b
}

// String formats the citation from whichever fields are present, e.g.
// "Smith, J. (2021). Coastal Change. NOAA." It returns "" when every field
// is empty.
func (b Bibliography) String() string {
	var parts []string
	// A trailing initial's dot is dropped so the join does not double it.
	if authors := strings.TrimSuffix(strings.Join(b.Authors, ", "), "."); authors != "" {
		parts = append(parts, authors)
	}
	if b.Year != "" {
		parts = append(parts, "("+b.Year+")")
	}
	if b.Title != "" {
		parts = append(parts, b.Title)
	}
	if b.Institution != "" {
		parts = append(parts, b.Institution)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ". ") + "."
}
