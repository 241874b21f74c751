package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/wavemaker-labs/wmx/internal/branding"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Configuration keys and their defaults.
const (
	KeyAPIBaseURL      = "api_base_url"
	KeyAPIKey          = "api_key"
	KeyAPITimeout      = "api_timeout"
	KeyGitCloneTimeout = "git_clone_timeout"
	KeyGitDepth        = "git_depth"
	KeyComponentsDir   = "components_dir"
	KeyLogLevel        = "log_level"
)

// Dir returns the path to the WMX config directory (~/.wmx/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.wmx/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyAPIBaseURL, "https://api.wavemaker.com/marketplace/v1")
	viper.SetDefault(KeyAPITimeout, 30)
	viper.SetDefault(KeyGitCloneTimeout, 300)
	viper.SetDefault(KeyGitDepth, 1)
	viper.SetDefault(KeyComponentsDir, "src/main/webapp/components")
	viper.SetDefault(KeyLogLevel, "info")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// APIBaseURL returns the marketplace API base URL.
func APIBaseURL() string {
	return viper.GetString(KeyAPIBaseURL)
}

// APIKey returns the marketplace API key, if configured.
func APIKey() string {
	return viper.GetString(KeyAPIKey)
}

// APITimeout returns the marketplace request timeout.
func APITimeout() time.Duration {
	return time.Duration(viper.GetInt(KeyAPITimeout)) * time.Second
}

// GitCloneTimeout returns the timeout for component clone operations.
func GitCloneTimeout() time.Duration {
	return time.Duration(viper.GetInt(KeyGitCloneTimeout)) * time.Second
}

// GitDepth returns the clone depth for component fetches.
func GitDepth() int {
	return viper.GetInt(KeyGitDepth)
}

// ComponentsDir returns the project-relative components directory.
func ComponentsDir() string {
	return viper.GetString(KeyComponentsDir)
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	return viper.GetString(KeyLogLevel)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
