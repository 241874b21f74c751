package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wavemaker-labs/wmx/internal/wmx"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Validate a local component directory",
	Long: `Validate a component directory before publishing or installing it locally.
Checks the wmconfig.json descriptor against the schema and warns about
missing recommended files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(filepath.Join(dir, wmx.DescriptorName))
	if err != nil {
		return fmt.Errorf("reading %s: %w", wmx.DescriptorName, err)
	}

	result, err := wmx.ValidateDescriptor(data)
	if err != nil {
		return err
	}

	if !result.Valid {
		fmt.Fprintf(out, "✗ %s has %d issue(s):\n", wmx.DescriptorName, len(result.Issues))
		for _, issue := range result.Issues {
			if issue.Path != "" {
				fmt.Fprintf(out, "  %s: %s\n", issue.Path, issue.Message)
			} else {
				fmt.Fprintf(out, "  %s\n", issue.Message)
			}
		}
		return fmt.Errorf("%s is not a valid component descriptor", wmx.DescriptorName)
	}

	fmt.Fprintf(out, "✓ %s is valid\n", wmx.DescriptorName)

	// Recommended files are warnings only; their absence never fails the check.
	names := make([]string, 0, len(wmx.RecommendedFiles))
	for name := range wmx.RecommendedFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			fmt.Fprintf(out, "  ⚠ missing recommended file %s (%s)\n", name, wmx.RecommendedFiles[name])
		}
	}
	return nil
}
