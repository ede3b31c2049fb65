package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds configuration for the Manager.
type Config struct {
	FilePath   string // Path to log file
	MaxSizeMB  int    // Max size in MB before rotation
	MaxBackups int    // Max number of old log files to keep
	MaxAgeDays int    // Max days to keep old log files
	Level      string // Minimum log level (debug, info, warn, error)
}

// Manager hands out scoped loggers sharing one zap core.
type Manager struct {
	baseZap    *zap.Logger
	fileWriter *lumberjack.Logger
	level      zapcore.Level

	mu      sync.RWMutex
	loggers map[string]*ScopedLogger
}

// NewManager creates a manager writing JSON lines to a rotating file.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.FilePath == "" {
		return nil, fmt.Errorf("log file path is required")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 5
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 3
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 14
	}

	level := ParseLevel(cfg.Level)

	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	fileWriter := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.AddSync(fileWriter),
		level,
	)

	m := NewManagerWithCore(core, level)
	m.fileWriter = fileWriter
	return m, nil
}

// NewManagerWithCore creates a manager over an existing zap core.
// Tests pass an observer core here.
func NewManagerWithCore(core zapcore.Core, level zapcore.Level) *Manager {
	return &Manager{
		baseZap: zap.New(core),
		level:   level,
		loggers: make(map[string]*ScopedLogger),
	}
}

// ParseLevel converts a level name to a zap level, defaulting to info.
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

// For returns a logger for the given scope. Loggers are cached per scope.
func (m *Manager) For(scope string) *ScopedLogger {
	m.mu.RLock()
	if logger, ok := m.loggers[scope]; ok {
		m.mu.RUnlock()
		return logger
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if logger, ok := m.loggers[scope]; ok {
		return logger
	}

	handler := &zapSlogHandler{
		zap:   m.baseZap.Named(scope),
		level: m.level,
	}
	logger := &ScopedLogger{
		slog:  slog.New(handler),
		scope: scope,
	}
	m.loggers[scope] = logger
	return logger
}

// Sync flushes buffered entries.
func (m *Manager) Sync() error {
	return m.baseZap.Sync()
}

// Close flushes and closes the log file.
func (m *Manager) Close() error {
	_ = m.Sync()
	if m.fileWriter != nil {
		return m.fileWriter.Close()
	}
	return nil
}
