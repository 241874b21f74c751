package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/wavemaker-labs/wmx/internal/marketplace"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

var (
	searchCategory string
	searchTags     string
	searchLimit    int
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the marketplace for components",
	Long: `Search the marketplace catalog. The query matches against component names
and descriptions. Use --category and --tag to narrow the results.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "Filter by category (e.g., Charts, Forms)")
	searchCmd.Flags().StringVar(&searchTags, "tag", "", "Filter by tags (comma-separated)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 20, "Maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	var tags []string
	for _, t := range strings.Split(searchTags, ",") {
		if tag := strings.TrimSpace(t); tag != "" {
			tags = append(tags, tag)
		}
	}

	components, err := newClient().Search(cmd.Context(), marketplace.SearchParams{
		Query:    query,
		Category: searchCategory,
		Tags:     tags,
		Limit:    searchLimit,
	})
	if err != nil {
		return fmt.Errorf("searching marketplace: %w", err)
	}

	if len(components) == 0 {
		msg := "No components found"
		if query != "" {
			msg += fmt.Sprintf(" matching %q", query)
		}
		if searchCategory != "" {
			msg += fmt.Sprintf(" with --category=%s", searchCategory)
		}
		if searchTags != "" {
			msg += fmt.Sprintf(" with --tag=%s", searchTags)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}

	if searchJSON {
		return printJSON(cmd, components)
	}
	return printSearchTable(cmd, components)
}

func printSearchTable(cmd *cobra.Command, components []wmx.Component) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tVERSION\tCATEGORY\tDESCRIPTION")
	for _, c := range components {
		desc := c.Description
		if len(desc) > 60 {
			desc = desc[:57] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", c.ID, c.DisplayName, c.Version, c.Category, desc)
	}
	return w.Flush()
}
