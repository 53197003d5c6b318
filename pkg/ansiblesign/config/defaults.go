// Package config loads ansible-sign settings from a YAML file, ANSIBLE_SIGN_*
// environment variables and command-line flags.
package config

import "time"

// AppName names the configuration, data and state directories.
const AppName = "ansible-sign"

// EnvPrefix prefixes environment overrides, e.g. ANSIBLE_SIGN_WORKERS.
const EnvPrefix = "ANSIBLE_SIGN"

// Default configuration values.
const (
	DefaultAlgorithm     = "sha256"
	DefaultDiffer        = "manifest-in"
	DefaultOutput        = "" // status lines
	DefaultGPGBinary     = "gpg"
	DefaultGPGTimeout    = 2 * time.Minute
	DefaultRetentionDays = 90
	DefaultLogLevel      = "info"
	DefaultLogMaxSize    = "5MB"
	DefaultLogMaxAge     = 14
	DefaultLogMaxBackups = 3
)
