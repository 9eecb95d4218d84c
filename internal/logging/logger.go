package logging

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// ParseLevel converts a level name to a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch LogLevel(strings.ToUpper(strings.TrimSpace(s))) {
	case LogLevelDebug:
		return LogLevelDebug
	case LogLevelWarn, "WARNING":
		return LogLevelWarn
	case LogLevelError:
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func (l LogLevel) zapLevel() zapcore.Level {
	switch l {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config controls where logs go
type Config struct {
	Level   LogLevel
	Console bool

	// File enables a rotating JSON log; empty disables it
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DefaultConfig logs INFO and above to the console only
func DefaultConfig() Config {
	return Config{
		Level:      LogLevelInfo,
		Console:    true,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
	}
}

var (
	base  atomic.Pointer[zap.Logger]
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the process-wide logger. Loggers created earlier with
// NewLogger pick it up on their next write. The returned function flushes
// buffered output.
func Init(cfg Config) (func(), error) {
	level.SetLevel(cfg.Level.zapLevel())

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if cfg.Console {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level))
	}

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		// Fail early on an unwritable path instead of on the first log line
		if _, err := rotator.Write(nil); err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", cfg.File, err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level))
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	Use(logger)

	return func() { _ = logger.Sync() }, nil
}

// Use installs z as the process-wide logger
func Use(z *zap.Logger) {
	base.Store(z)
	zap.ReplaceGlobals(z)
}

// SetLevel changes the minimum level at runtime
func SetLevel(l LogLevel) {
	level.SetLevel(l.zapLevel())
}

func root() *zap.Logger {
	if z := base.Load(); z != nil {
		return z
	}
	return zap.L()
}

// Logger provides structured logging for one component
type Logger struct {
	component string
	fields    []zap.Field
}

// NewLogger creates a new logger for a specific component
func NewLogger(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) log(lvl zapcore.Level, message string, err error, context map[string]interface{}) {
	z := root().Named(l.component)
	if ce := z.Check(lvl, message); ce != nil {
		fields := make([]zap.Field, 0, len(l.fields)+len(context)+1)
		fields = append(fields, l.fields...)
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		for k, v := range context {
			fields = append(fields, zap.Any(k, v))
		}
		ce.Write(fields...)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(message string) {
	l.log(zapcore.DebugLevel, message, nil, nil)
}

// DebugWithContext logs a debug message with context
func (l *Logger) DebugWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.DebugLevel, message, nil, context)
}

// Info logs an info message
func (l *Logger) Info(message string) {
	l.log(zapcore.InfoLevel, message, nil, nil)
}

// InfoWithContext logs an info message with context
func (l *Logger) InfoWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.InfoLevel, message, nil, context)
}

// Warn logs a warning message
func (l *Logger) Warn(message string) {
	l.log(zapcore.WarnLevel, message, nil, nil)
}

// WarnWithContext logs a warning message with context
func (l *Logger) WarnWithContext(message string, context map[string]interface{}) {
	l.log(zapcore.WarnLevel, message, nil, context)
}

// Error logs an error message
func (l *Logger) Error(message string, err error) {
	l.log(zapcore.ErrorLevel, message, err, nil)
}

// ErrorWithContext logs an error message with context
func (l *Logger) ErrorWithContext(message string, err error, context map[string]interface{}) {
	l.log(zapcore.ErrorLevel, message, err, context)
}

// WithContext returns a logger that adds context to every entry
func (l *Logger) WithContext(context map[string]interface{}) *ContextLogger {
	fields := make([]zap.Field, 0, len(l.fields)+len(context))
	fields = append(fields, l.fields...)
	for k, v := range context {
		fields = append(fields, zap.Any(k, v))
	}
	return &ContextLogger{logger: &Logger{component: l.component, fields: fields}}
}

// ContextLogger is a logger with pre-set context
type ContextLogger struct {
	logger *Logger
}

// Debug logs a debug message with pre-set context
func (cl *ContextLogger) Debug(message string) {
	cl.logger.Debug(message)
}

// Info logs an info message with pre-set context
func (cl *ContextLogger) Info(message string) {
	cl.logger.Info(message)
}

// Warn logs a warning message with pre-set context
func (cl *ContextLogger) Warn(message string) {
	cl.logger.Warn(message)
}

// Error logs an error message with pre-set context
func (cl *ContextLogger) Error(message string, err error) {
	cl.logger.Error(message, err)
}
