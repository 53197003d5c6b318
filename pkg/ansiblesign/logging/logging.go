// Package logging provides component loggers for ansible-sign with an
// optional rotating log file and optional console output.
//
// Basic usage:
//
//	cfg := logging.Config{
//	    Level:        "info",
//	    Path:         logging.DefaultLogPath(),
//	    ConsoleLevel: "warn",
//	}
//	if err := logging.Init(cfg); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logger := logging.Get("checksum")
//	logger.Info("manifest generated", "files", 12)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level represents a logging level.
type Level int

// Log levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

func (l Level) toCharmLevel() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelInfo:
		return log.InfoLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned when an invalid log level string is provided.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses a string into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
	}
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level (debug, info, warn, error).
	Level string

	// Path is the log file path. Empty uses DefaultLogPath().
	Path string

	// DisableFile turns off the log file entirely.
	DisableFile bool

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components maps component names to their file log levels.
	Components map[string]string

	// ConsoleLevel enables console output at the specified level.
	// Empty string disables console output.
	ConsoleLevel string

	// ConsoleWriter receives console output. Nil means os.Stderr.
	ConsoleWriter io.Writer
}

// Logger wraps charmbracelet/log with component identification.
// It can output to both a file and the console with different formatting.
type Logger struct {
	file      *log.Logger
	console   *log.Logger
	component string
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(LevelDebug, msg, args...)
}

// Info logs an info message.
func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(LevelInfo, msg, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(LevelWarn, msg, args...)
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(LevelError, msg, args...)
}

// Component returns the name the logger was created with.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	if l.file != nil {
		logTo(l.file, level, msg, args...)
	}
	if l.console != nil {
		logTo(l.console, level, msg, args...)
	}
}

func logTo(logger *log.Logger, level Level, msg string, args ...interface{}) {
	switch level {
	case LevelDebug:
		logger.Debug(msg, args...)
	case LevelInfo:
		logger.Info(msg, args...)
	case LevelWarn:
		logger.Warn(msg, args...)
	case LevelError:
		logger.Error(msg, args...)
	}
}

// With returns a new logger with additional context.
func (l *Logger) With(args ...interface{}) *Logger {
	newLogger := &Logger{component: l.component}
	if l.file != nil {
		newLogger.file = l.file.With(args...)
	}
	if l.console != nil {
		newLogger.console = l.console.With(args...)
	}
	return newLogger
}

// Discard returns a logger that drops everything. Library code falls back to
// it when the caller supplies no logger.
func Discard() *Logger {
	return &Logger{component: "discard"}
}

type state struct {
	mu          sync.RWMutex
	initialized bool
	writer      *RotatingWriter
	level       Level
	components  map[string]Level
	loggers     map[string]*Logger

	consoleEnabled bool
	consoleLevel   Level
	consoleWriter  io.Writer
}

var globalState = &state{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// Init initializes the logging system with the given configuration.
// Before Init is called, all loggers write to io.Discard.
func Init(cfg Config) error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if globalState.initialized {
		if globalState.writer != nil {
			if err := globalState.writer.Close(); err != nil {
				return fmt.Errorf("closing existing writer: %w", err)
			}
			globalState.writer = nil
		}
		globalState.loggers = make(map[string]*Logger)
		globalState.components = make(map[string]Level)
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	globalState.level = level

	for comp, lvl := range cfg.Components {
		parsedLevel, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", comp, err)
		}
		globalState.components[comp] = parsedLevel
	}

	globalState.consoleEnabled = false
	if cfg.ConsoleLevel != "" {
		consoleLevel, err := ParseLevel(cfg.ConsoleLevel)
		if err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
		globalState.consoleLevel = consoleLevel
		globalState.consoleEnabled = true
		globalState.consoleWriter = cfg.ConsoleWriter
		if globalState.consoleWriter == nil {
			globalState.consoleWriter = os.Stderr
		}
	}

	if !cfg.DisableFile {
		path := cfg.Path
		if path == "" {
			path = DefaultLogPath()
		}

		writer, err := NewRotatingWriter(path, cfg.Rotation)
		if err != nil {
			return fmt.Errorf("creating log writer: %w", err)
		}
		globalState.writer = writer
	}

	globalState.initialized = true

	for component := range globalState.loggers {
		globalState.loggers[component] = createLogger(component)
	}

	return nil
}

// Get returns a logger for the given component.
// Component level overrides from the config apply to the file output.
func Get(component string) *Logger {
	globalState.mu.RLock()
	if logger, ok := globalState.loggers[component]; ok {
		globalState.mu.RUnlock()
		return logger
	}
	globalState.mu.RUnlock()

	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if logger, ok := globalState.loggers[component]; ok {
		return logger
	}

	logger := createLogger(component)
	globalState.loggers[component] = logger
	return logger
}

// createLogger must be called with globalState.mu held.
func createLogger(component string) *Logger {
	level := globalState.level
	if compLevel, ok := globalState.components[component]; ok {
		level = compLevel
	}

	logger := &Logger{component: component}

	if !globalState.initialized || globalState.writer == nil {
		logger.file = log.NewWithOptions(io.Discard, log.Options{
			Level:  level.toCharmLevel(),
			Prefix: component,
		})
	} else {
		logger.file = log.NewWithOptions(globalState.writer, log.Options{
			Level:           level.toCharmLevel(),
			ReportCaller:    false,
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		})
	}

	if globalState.initialized && globalState.consoleEnabled {
		logger.console = log.NewWithOptions(globalState.consoleWriter, log.Options{
			Level:           globalState.consoleLevel.toCharmLevel(),
			ReportCaller:    false,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          component,
		})
	}

	return logger
}

// Close flushes and closes the log file.
func Close() error {
	globalState.mu.Lock()
	defer globalState.mu.Unlock()

	if !globalState.initialized {
		return nil
	}

	if globalState.writer != nil {
		if err := globalState.writer.Close(); err != nil {
			return fmt.Errorf("closing log writer: %w", err)
		}
		globalState.writer = nil
	}

	globalState.initialized = false
	globalState.consoleEnabled = false
	globalState.loggers = make(map[string]*Logger)
	globalState.components = make(map[string]Level)

	return nil
}

// DefaultLogPath returns $XDG_STATE_HOME/ansible-sign/ansible-sign.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "ansible-sign", "ansible-sign.log")
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}
