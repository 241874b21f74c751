package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info <component-id>",
	Short: "Show marketplace details for a component",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	client := newClient()

	comp, err := client.GetComponent(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetching component info: %w", err)
	}

	if infoJSON {
		return printJSON(cmd, comp)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s)\n", comp.DisplayName, comp.ID)
	fmt.Fprintf(out, "  Version:     %s\n", comp.Version)
	fmt.Fprintf(out, "  Category:    %s\n", comp.Category)
	if len(comp.Tags) > 0 {
		fmt.Fprintf(out, "  Tags:        %v\n", comp.Tags)
	}
	if comp.Author.Name != "" {
		author := comp.Author.Name
		if comp.Author.Organization != "" {
			author += " (" + comp.Author.Organization + ")"
		}
		fmt.Fprintf(out, "  Author:      %s\n", author)
	}
	if comp.License != "" {
		fmt.Fprintf(out, "  License:     %s\n", comp.License)
	}
	fmt.Fprintf(out, "  Repository:  %s\n", comp.GitURL)
	if comp.Downloads > 0 {
		fmt.Fprintf(out, "  Downloads:   %d\n", comp.Downloads)
	}
	if comp.Rating > 0 {
		fmt.Fprintf(out, "  Rating:      %.1f (%d reviews)\n", comp.Rating, comp.ReviewsCount)
	}
	fmt.Fprintf(out, "\n%s\n", comp.Description)

	versions, err := client.ListVersions(cmd.Context(), comp.ID)
	if err == nil && len(versions) > 0 {
		fmt.Fprintf(out, "\nPublished versions: %v\n", versions)
	}
	return nil
}
