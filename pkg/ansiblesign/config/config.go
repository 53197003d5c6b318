package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/ansible-sign/pkg/ansiblesign/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// GPGConfig configures the GnuPG backend.
type GPGConfig struct {
	Binary      string        `mapstructure:"binary"`
	Home        string        `mapstructure:"home"`
	Keyring     string        `mapstructure:"keyring"`
	Fingerprint string        `mapstructure:"fingerprint"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// HistoryConfig configures the run journal.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Algorithm string `mapstructure:"algorithm"`

	// Workers is the hashing concurrency. Zero sizes it from the machine.
	Workers int `mapstructure:"workers"`

	// Differ is "manifest-in" or "walk".
	Differ string `mapstructure:"differ"`

	// Exclude applies to the walk differ only.
	Exclude []string `mapstructure:"exclude"`

	// AllMismatches reports every changed file instead of the first.
	AllMismatches bool `mapstructure:"all_mismatches"`

	NoColor bool   `mapstructure:"nocolor"`
	Debug   bool   `mapstructure:"debug"`
	Output  string `mapstructure:"output"`

	GPG     GPGConfig     `mapstructure:"gpg"`
	History HistoryConfig `mapstructure:"history"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("algorithm", DefaultAlgorithm)
	v.SetDefault("workers", 0)
	v.SetDefault("differ", DefaultDiffer)
	v.SetDefault("exclude", []string{})
	v.SetDefault("all_mismatches", false)
	v.SetDefault("nocolor", false)
	v.SetDefault("debug", false)
	v.SetDefault("output", DefaultOutput)

	v.SetDefault("gpg.binary", DefaultGPGBinary)
	v.SetDefault("gpg.home", "")
	v.SetDefault("gpg.keyring", "")
	v.SetDefault("gpg.fingerprint", "")
	v.SetDefault("gpg.timeout", DefaultGPGTimeout)

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means DefaultHistoryPath
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.path", "") // Empty means logging.DefaultLogPath
	v.SetDefault("logging.rotation.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.rotation.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.rotation.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.components", map[string]string{})
}

// NewViper returns a viper instance with defaults, config search paths and
// environment binding set up. cfgFile, when non-empty, replaces the search.
// The file itself is read by Read.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		dir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v, nil
}

// Read reads the config file into v. A missing file in the search path is
// not an error; a missing explicit file is.
func Read(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// Decode unmarshals v into a Config and applies NO_COLOR and path expansion.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if os.Getenv("NO_COLOR") != "" {
		cfg.NoColor = true
	}

	for _, p := range []*string{&cfg.GPG.Home, &cfg.GPG.Keyring, &cfg.History.Path, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}

	return &cfg, nil
}

// Load builds, reads and decodes the configuration in one step.
func Load(cfgFile string) (*Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := Read(v); err != nil {
		return nil, err
	}
	return Decode(v)
}

// LoggingConfig converts the logging section. debug raises the console
// level to debug; otherwise only warnings and errors reach the console.
func (c *Config) LoggingConfig() (logging.Config, error) {
	maxSize, err := humanize.ParseBytes(c.Logging.Rotation.MaxSize)
	if err != nil {
		return logging.Config{}, fmt.Errorf("invalid logging.rotation.max_size %q: %w", c.Logging.Rotation.MaxSize, err)
	}

	consoleLevel := "warn"
	level := c.Logging.Level
	if c.Debug {
		consoleLevel = "debug"
		level = "debug"
	}

	return logging.Config{
		Level: level,
		Path:  c.Logging.Path,
		Rotation: logging.RotationConfig{
			MaxSize:    int64(maxSize),
			MaxAge:     c.Logging.Rotation.MaxAge,
			MaxBackups: c.Logging.Rotation.MaxBackups,
		},
		Components:   c.Logging.Components,
		ConsoleLevel: consoleLevel,
	}, nil
}

// ConfigDir returns $XDG_CONFIG_HOME/ansible-sign, or ~/.config/ansible-sign.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, AppName), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", AppName), nil
}

// ConfigPath returns the default config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DataDir returns $XDG_DATA_HOME/ansible-sign.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// DefaultHistoryPath returns the default journal directory.
func DefaultHistoryPath() string {
	return filepath.Join(DataDir(), "history")
}

// WriteDefault writes a commented default config file if none exists and
// returns its path. created is false when a file was already there.
func WriteDefault() (path string, created bool, err error) {
	path, err = ConfigPath()
	if err != nil {
		return "", false, err
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !os.IsNotExist(err) {
		return "", false, fmt.Errorf("failed to check config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", false, fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(`# ansible-sign configuration

# Digest algorithm for new manifests: sha256, sha512, blake2b, blake3
algorithm: %s

# Hashing workers (0 = size from CPU and memory)
workers: 0

# What counts as the project's files: manifest-in or walk
differ: %s

# Patterns skipped by the walk differ
exclude: []

# Report every changed file instead of stopping at the first
all_mismatches: false

# Disable colored status labels (NO_COLOR is also honored)
nocolor: false

# Report format for validate and verify: pretty, plain, json, yaml.
# Empty prints [OK]/[ERROR] status lines.
output: "%s"

gpg:
  binary: %s
  home: ""
  keyring: ""
  fingerprint: ""
  timeout: %s

# Journal of sign and verify runs
history:
  enabled: true
  path: ""   # empty means %s
  retention_days: %d

logging:
  level: %s
  path: ""   # empty means %s
  rotation:
    max_size: %s
    max_age: %d
    max_backups: %d
  components: {}
`,
		DefaultAlgorithm, DefaultDiffer, DefaultOutput,
		DefaultGPGBinary, DefaultGPGTimeout,
		DefaultHistoryPath(), DefaultRetentionDays,
		DefaultLogLevel, logging.DefaultLogPath(),
		DefaultLogMaxSize, DefaultLogMaxAge, DefaultLogMaxBackups,
	)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", false, fmt.Errorf("failed to write default config: %w", err)
	}
	return path, true, nil
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}
