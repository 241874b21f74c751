// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package before building; Go's
// //go:embed bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GoModule    string `yaml:"go_module"`
	UserAgent   string `yaml:"user_agent"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "wmx",
			DisplayName: "WMX",
			Description: "Installer for WaveMaker WMX marketplace components",
			HomeDir:     ".wmx",
			EnvPrefix:   "WMX",
			GoModule:    "github.com/wavemaker-labs/wmx",
			UserAgent:   "wavemaker-wmx/1.0",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the binary/command name.
func CLIName() string {
	load()
	return defaults.CLIName
}

// DisplayName returns the human-facing product name.
func DisplayName() string {
	load()
	return defaults.DisplayName
}

// Description returns the one-line product description.
func Description() string {
	load()
	return defaults.Description
}

// HomeDir returns the per-user directory name (e.g., ".wmx").
func HomeDir() string {
	load()
	return defaults.HomeDir
}

// EnvPrefix returns the environment variable prefix (e.g., "WMX").
func EnvPrefix() string {
	load()
	return defaults.EnvPrefix
}

// EnvVar returns a fully prefixed environment variable name.
func EnvVar(suffix string) string {
	return EnvPrefix() + "_" + strings.ToUpper(suffix)
}

// UserAgent returns the User-Agent header value for marketplace requests.
func UserAgent() string {
	load()
	return defaults.UserAgent
}
