package commands

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/54b3r/kscan/internal/synthesis"
)

// NewScansCmd constructs the `kscan scans` command group for browsing
// knowledge scans stored by a server.
func NewScansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "List and export stored knowledge scans",
	}
	cmd.AddCommand(newScansListCmd(), newScansShowCmd(), newScansMarkdownCmd())
	return cmd
}

func newScansListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent knowledge scans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := newClient().Scans(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("scans: %w", err)
			}
			if len(list.Scans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No knowledge scans stored.")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("ID", "CREATED", "DOCS", "QUERY")
			for _, s := range list.Scans {
				t.Row(s.ID, s.CreatedAt.Local().Format("2006-01-02 15:04"), fmt.Sprint(s.Documents), s.Query)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of scans to list")

	return cmd
}

func newScansShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Render a knowledge scan in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, err := newClient().Scan(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scans: %w", err)
			}

			r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
			if err != nil {
				return fmt.Errorf("scans: markdown renderer: %w", err)
			}
			out, err := r.Render(synthesis.Markdown(scan))
			if err != nil {
				return fmt.Errorf("scans: render: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func newScansMarkdownCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "markdown [id]",
		Short: "Export a knowledge scan as Markdown",
		Long: `Export a knowledge scan as a Markdown document.

Examples:
  kscan scans markdown 7f3c... > scan.md
  kscan scans markdown 7f3c... -o scan.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scan, err := newClient().Scan(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("scans: %w", err)
			}
			md := synthesis.Markdown(scan)

			if output == "" {
				fmt.Fprint(cmd.OutOrStdout(), md)
				return nil
			}
			if err := os.WriteFile(output, []byte(md), 0o644); err != nil {
				return fmt.Errorf("scans: write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")

	return cmd
}
