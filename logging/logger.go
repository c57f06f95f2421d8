package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grovetools/hermes/config"
	"github.com/grovetools/hermes/pkg/paths"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	files     = make(map[string]*os.File)
	loggersMu sync.Mutex

	current     Config
	currentOnce sync.Once

	// interactive is set while a full-screen view owns the terminal.
	interactive atomic.Bool
)

// NewLogger creates and returns a pre-configured logger for a specific component.
// It uses a singleton pattern per component to avoid re-initializing.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	currentOnce.Do(loadInitial)

	logger := logrus.New()
	entry := logger.WithField("component", component)
	apply(entry, current)
	loggers[component] = entry
	return entry
}

// Configure re-applies cfg to every logger handed out so far and to all
// loggers created later.
func Configure(cfg Config) {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	currentOnce.Do(func() {})
	current = cfg
	for _, entry := range loggers {
		apply(entry, cfg)
	}
}

// ConfigureFrom reads the logging section of a hermes config and applies it.
func ConfigureFrom(cfg *config.Config) error {
	var logCfg Config
	if cfg != nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			return fmt.Errorf("parse logging config: %w", err)
		}
	}
	Configure(logCfg)
	return nil
}

// SetInteractive tells "auto" stderr mode that a terminal UI is drawing on
// the screen, which suppresses stderr output for subsequent Configure calls.
func SetInteractive(on bool) {
	interactive.Store(on)
	loggersMu.Lock()
	cfg := current
	loggersMu.Unlock()
	Configure(cfg)
}

func loadInitial() {
	cfg, err := config.LoadDefault()
	if err != nil {
		return
	}
	if err := cfg.UnmarshalExtension("logging", &current); err != nil {
		logrus.Warnf("Failed to parse 'logging' config: %v", err)
	}
}

func apply(entry *logrus.Entry, cfg Config) {
	logger := entry.Logger
	component, _ := entry.Data["component"].(string)

	levelStr := "info"
	if env := os.Getenv("HERMES_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if cfg.Level != "" {
		levelStr = cfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	logger.SetReportCaller(os.Getenv("HERMES_LOG_CALLER") == "true" || cfg.ReportCaller)

	switch cfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: cfg.Format})
	}

	var writers []io.Writer
	if cfg.File.Enabled {
		if f := openSink(component, cfg.File.Path); f != nil {
			writers = append(writers, f)
		}
	}
	if toStderr(cfg.Format.StructuredToStderr, level) {
		writers = append(writers, os.Stderr)
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}
}

func toStderr(mode string, level logrus.Level) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if level >= logrus.DebugLevel {
		return true
	}
	if !interactive.Load() {
		return true
	}
	fd := os.Stderr.Fd()
	return !(isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd))
}

// openSink returns the shared handle of a log file, opening it on first use.
// Callers hold loggersMu.
func openSink(component, path string) *os.File {
	if path == "" {
		name := fmt.Sprintf("%s-%s.log", component, time.Now().Format("2006-01-02"))
		path = filepath.Join(paths.LogDir(), name)
	} else {
		path = expandPath(path)
	}
	if f, ok := files[path]; ok {
		return f
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logrus.Warnf("Failed to create log directory %s: %v", filepath.Dir(path), err)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		logrus.Warnf("Failed to open log file %s: %v", path, err)
		return nil
	}
	files[path] = f
	return f
}

// expandPath expands tilde in file paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
