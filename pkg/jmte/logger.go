package jmte

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogWarn
	LogError
	LogOff
)

func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "DEBUG"
	case LogInfo:
		return "INFO"
	case LogWarn:
		return "WARN"
	case LogError:
		return "ERROR"
	case LogOff:
		return "OFF"
	default:
		return "UNKNOWN"
	}
}

// slogLevelOff sits above every level slog emits.
const slogLevelOff = slog.LevelError + 64

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogInfo:
		return slog.LevelInfo
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slogLevelOff
	}
}

type Fields map[string]interface{}

// Logger is a levelled logger backed by log/slog.
type Logger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

var (
	globalLogger     *Logger
	globalLoggerOnce sync.Once
	globalLoggerMu   sync.RWMutex
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		config := GetGlobalConfig()
		logger := NewLoggerWithFormat(os.Stderr, ParseLogLevel(config.LogLevel), config.LogFormat)
		globalLoggerMu.Lock()
		globalLogger = logger
		globalLoggerMu.Unlock()
	})
}

// ParseLogLevel maps a configuration level name to a LogLevel. Unknown names
// map to LogInfo.
func ParseLogLevel(levelStr string) LogLevel {
	switch levelStr {
	case "debug":
		return LogDebug
	case "info":
		return LogInfo
	case "warn":
		return LogWarn
	case "error":
		return LogError
	case "off":
		return LogOff
	default:
		return LogInfo
	}
}

// NewLogger creates a logger writing slog text records to w.
func NewLogger(w io.Writer, level LogLevel) *Logger {
	return NewLoggerWithFormat(w, level, "text")
}

// NewLoggerWithFormat creates a logger writing to w using the "text" or
// "json" slog handler.
func NewLoggerWithFormat(w io.Writer, level LogLevel, format string) *Logger {
	if w == nil {
		w = io.Discard
	}
	levelVar := new(slog.LevelVar)
	levelVar.Set(level.slogLevel())

	handlerOpts := &slog.HandlerOptions{Level: levelVar}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	} else {
		handler = slog.NewTextHandler(w, handlerOpts)
	}
	return &Logger{logger: slog.New(handler), level: levelVar}
}

// Slog exposes the underlying slog.Logger.
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}

func (l *Logger) SetLevel(level LogLevel) {
	l.level.Set(level.slogLevel())
}

func (l *Logger) IsDebugMode() bool {
	return l.logger.Enabled(context.Background(), slog.LevelDebug)
}

func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With(key, value), level: l.level}
}

func (l *Logger) WithFields(fields Fields) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{logger: l.logger.With(args...), level: l.level}
}

func (l *Logger) log(level slog.Level, format string, args ...interface{}) {
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}
	l.logger.Log(ctx, level, fmt.Sprintf(format, args...))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(slog.LevelDebug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.log(slog.LevelInfo, format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(slog.LevelWarn, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.log(slog.LevelError, format, args...)
}

// DebugTemplate logs a template and its model in debug mode.
func (l *Logger) DebugTemplate(template string, model interface{}) {
	if !l.IsDebugMode() {
		return
	}
	l.Debug("Template: %s", template)
	l.Debug("Model: %+v", model)
}

// DebugExpression logs an expression and its resolved value in debug mode.
func (l *Logger) DebugExpression(expr string, result interface{}) {
	if !l.IsDebugMode() {
		return
	}
	l.Debug("Expression: %s", expr)
	l.Debug("Result: %v", result)
}

// Global logging functions
func SetLogger(logger *Logger) {
	initGlobalLogger()
	globalLoggerMu.Lock()
	globalLogger = logger
	globalLoggerMu.Unlock()
}

func GetLogger() *Logger {
	initGlobalLogger()
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func Debug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}

func WithField(key string, value interface{}) *Logger {
	return GetLogger().WithField(key, value)
}

func WithFields(fields Fields) *Logger {
	return GetLogger().WithFields(fields)
}

// UpdateLoggerFromConfig updates the global logger based on the current global configuration
func UpdateLoggerFromConfig() {
	config := GetGlobalConfig()
	GetLogger().SetLevel(ParseLogLevel(config.LogLevel))
}
