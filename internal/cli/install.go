package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wavemaker-labs/wmx/internal/pipeline"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

var (
	installVersion string
	installProject string
	installForce   bool
)

var installCmd = &cobra.Command{
	Use:   "install <component-id>",
	Short: "Install a marketplace component into a project",
	Long: `Install a component from the marketplace into the project's components
directory. Without --version the newest published version is installed.
The project tree is never left half-modified: a failed install restores it
to its previous state.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().StringVar(&installVersion, "version", "", "Install a specific published version")
	installCmd.Flags().StringVarP(&installProject, "project", "p", ".", "Path to the WaveMaker project")
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Overwrite an equal or newer installed version")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	componentID := args[0]

	target, err := projectTarget(installProject)
	if err != nil {
		return err
	}

	ins := newInstaller()
	rec, err := ins.Install(cmd.Context(), pipeline.InstallRequest{
		ComponentID: componentID,
		Version:     installVersion,
		Target:      target,
		Force:       installForce,
	})
	if err != nil {
		return installFailure(cmd, componentID, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s@%s (%d files)\n",
		rec.ComponentID, rec.Version, len(rec.Files))
	return nil
}

// installFailure turns a pipeline error into an actionable message. The
// failed stage tells the user whether their project tree was touched.
func installFailure(cmd *cobra.Command, componentID string, err error) error {
	var pe *wmx.PipelineError
	if !errors.As(err, &pe) {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✗ Installing %s failed during %s.\n", componentID, pe.Stage)
	if pe.RolledBack() {
		fmt.Fprintln(cmd.OutOrStdout(), "  The project was restored to its previous state.")
	}

	switch pe.Kind() {
	case wmx.KindVersionConflict:
		fmt.Fprintf(cmd.OutOrStdout(), "  Use --force to overwrite, or '%s list' to see what is installed.\n",
			rootCmd.Use)
	case wmx.KindAuthRequired:
		fmt.Fprintf(cmd.OutOrStdout(), "  Set an API key with '%s config set api_key <key>'.\n", rootCmd.Use)
	case wmx.KindNetworkError:
		fmt.Fprintln(cmd.OutOrStdout(), "  The marketplace or the component repository is unreachable; retry later.")
	}

	return err
}
