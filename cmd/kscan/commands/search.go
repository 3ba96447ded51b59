package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/54b3r/kscan/internal/search"
)

// NewSearchCmd constructs the `kscan search` command, which runs one query
// against a running server and prints the ranked documents.
func NewSearchCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the document collection through a running kscan server",
		Long: `Embed the query and run a vector search through a kscan server, then
print the matching documents with their relevance bucket.

Examples:
  kscan search "coral reef bleaching"
  kscan search --json "groundwater recharge" | jq '.[].file_name'
  kscan --server http://kscan.internal:8080 search "wildfire smoke"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newSearchService(newClient())
			if err != nil {
				return err
			}

			docs, err := svc.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(docs)
			}
			return printDocuments(cmd.OutOrStdout(), docs)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the documents as JSON")

	return cmd
}

// printDocuments writes docs as a table.
func printDocuments(w io.Writer, docs []search.Document) error {
	if len(docs) == 0 {
		_, err := fmt.Fprintln(w, "No documents matched.")
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "RELEVANCE", "DOCUMENT", "PUBLISHED", "ID")
	for i, d := range docs {
		t.Row(fmt.Sprint(i+1), string(d.Relevance), d.DisplayName(), d.PublishedDate, d.ID)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
