package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wavemaker-labs/wmx/internal/store"
)

var (
	listProject string
	listJSON    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List components installed in a project",
	Long:  `List the components recorded as installed in the project, in install order.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().StringVarP(&listProject, "project", "p", ".", "Path to the WaveMaker project")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents an installed component for display.
type listEntry struct {
	ID          string `json:"id"`
	Version     string `json:"version"`
	Revision    string `json:"revision"`
	InstalledAt string `json:"installed_at"`
	Files       int    `json:"files"`
}

func runList(cmd *cobra.Command, args []string) error {
	target, err := projectTarget(listProject)
	if err != nil {
		return err
	}

	st, err := store.Open(store.PathFor(target))
	if err != nil {
		return fmt.Errorf("reading install records: %w", err)
	}

	records := st.List()
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No components installed yet.")
		return nil
	}

	entries := make([]listEntry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, listEntry{
			ID:          rec.ComponentID,
			Version:     rec.Version,
			Revision:    rec.Revision,
			InstalledAt: rec.InstalledAt.Format(time.RFC3339),
			Files:       len(rec.Files),
		})
	}

	if listJSON {
		return printJSON(cmd, entries)
	}
	return printListTable(cmd, entries)
}

func printListTable(cmd *cobra.Command, entries []listEntry) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "COMPONENT\tVERSION\tREVISION\tINSTALLED\tFILES")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", e.ID, e.Version, e.Revision, e.InstalledAt, e.Files)
	}
	return w.Flush()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
