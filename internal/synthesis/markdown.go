package synthesis

import (
	"fmt"
	"strings"

	"github.com/54b3r/kscan/internal/api"
)

// Markdown renders scan as a standalone Markdown document, with the same
// sections the chat shells display.
func Markdown(scan *api.KnowledgeScan) string {
	var b strings.Builder

	title := "Knowledge Scan"
	if scan.Query != "" {
		title += ": " + scan.Query
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if !scan.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "_Generated %s_\n\n", scan.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("## General Notes\n\n")
	b.WriteString(scan.GeneralNotes + "\n\n")

	b.WriteString("## Document Summaries\n\n")
	for _, s := range scan.CombinedSummaries {
		fmt.Fprintf(&b, "### %s\n\n", s.PDFName)
		if s.Bibliography != "" {
			fmt.Fprintf(&b, "> %s\n\n", s.Bibliography)
		}
		b.WriteString(s.Summary + "\n\n")
	}

	b.WriteString("## Overall Summary\n\n")
	b.WriteString(scan.OverallSummary + "\n")

	if len(scan.Keywords) > 0 {
		b.WriteString("\n## Keywords\n\n")
		b.WriteString(strings.Join(scan.Keywords, ", ") + "\n")
	}
	if len(scan.ResourcesSearched) > 0 {
		b.WriteString("\n## Resources Searched\n\n")
		for _, r := range scan.ResourcesSearched {
			b.WriteString("- " + r + "\n")
		}
	}
	return b.String()
}
