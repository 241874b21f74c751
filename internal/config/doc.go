// Package config manages user-level settings stored at ~/.wmx/config.yaml.
// It provides typed accessors for marketplace, git, and installation
// settings, with WMX_-prefixed environment variables taking precedence.
package config
