package cli

import (
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wavemaker-labs/wmx/internal/branding"
	"github.com/wavemaker-labs/wmx/internal/config"
	"github.com/wavemaker-labs/wmx/internal/gitfetch"
	"github.com/wavemaker-labs/wmx/internal/marketplace"
	"github.com/wavemaker-labs/wmx/internal/pipeline"
	"github.com/wavemaker-labs/wmx/internal/wmx"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs and manages reusable marketplace components
(widgets, prefabs, themes) in WaveMaker projects.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()

		level, err := log.ParseLevel(config.LogLevel())
		if err != nil {
			level = log.InfoLevel
		}
		log.SetLevel(level)
		log.SetOutput(cmd.ErrOrStderr())
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
	}
	return err
}

// newClient builds a marketplace client from the loaded configuration.
func newClient() *marketplace.Client {
	return marketplace.New(config.APIBaseURL(), config.APIKey(), config.APITimeout())
}

// newInstaller wires the marketplace catalog and the git fetcher into an
// installer using the configured clone depth and timeout.
func newInstaller() *pipeline.Installer {
	fetcher := gitfetch.New("", config.GitDepth(), config.GitCloneTimeout())
	return pipeline.NewInstaller(newClient(), fetcher)
}

// projectTarget resolves the --project flag into a target. The project root
// must exist; the components directory inside it is created on demand.
func projectTarget(projectDir string) (wmx.ProjectTarget, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return wmx.ProjectTarget{}, fmt.Errorf("resolving project path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return wmx.ProjectTarget{}, fmt.Errorf("project directory %s: %w", root, err)
	}
	if !info.IsDir() {
		return wmx.ProjectTarget{}, fmt.Errorf("project path %s is not a directory", root)
	}
	return wmx.ProjectTarget{Root: root, ComponentsDir: config.ComponentsDir()}, nil
}
