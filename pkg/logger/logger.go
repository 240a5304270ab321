package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger wraps logrus with domain-aware helpers.
type Logger struct {
	*logrus.Logger
	mu sync.RWMutex
}

type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

type LogFormat string

const (
	JSONFormat LogFormat = "json"
	TextFormat LogFormat = "text"
)

// Config represents logger configuration
type Config struct {
	Level  LogLevel
	Format LogFormat
	Output string // file path or "stdout"
}

var (
	instance *Logger
	once     sync.Once
)

// Init initializes the global logger from environment variables.
func Init() {
	get()
}

// get returns the global logger, initializing it on first use so the
// package helpers are safe to call before Init.
func get() *Logger {
	once.Do(func() {
		instance = NewLogger(getLoggerConfig())
	})
	return instance
}

// NewLogger creates a new logger instance
func NewLogger(config Config) *Logger {
	logger := &Logger{
		Logger: logrus.New(),
	}

	logger.SetLevel(getLogrusLevel(config.Level))

	if config.Format == JSONFormat {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if config.Output == "stdout" || config.Output == "" {
		logger.SetOutput(os.Stdout)
	} else {
		logDir := filepath.Dir(config.Output)
		if err := os.MkdirAll(logDir, 0755); err != nil {
			log.Printf("Failed to create log directory: %v", err)
			logger.SetOutput(os.Stdout)
		} else {
			writer, err := setupFileOutput(config)
			if err != nil {
				log.Printf("Failed to setup file output: %v", err)
				logger.SetOutput(os.Stdout)
			} else {
				logger.SetOutput(writer)
			}
		}
	}

	return logger
}

func setupFileOutput(config Config) (io.Writer, error) {
	file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, err
	}

	// Mirror to stdout during development
	if os.Getenv("APP_ENV") == "development" {
		return io.MultiWriter(file, os.Stdout), nil
	}

	return file, nil
}

func getLoggerConfig() Config {
	config := Config{
		Level:  InfoLevel,
		Format: JSONFormat,
		Output: "stdout",
	}

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Level = LogLevel(strings.ToLower(level))
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Format = LogFormat(strings.ToLower(format))
	}
	if output := os.Getenv("LOG_OUTPUT"); output != "" {
		config.Output = output
	}

	if os.Getenv("APP_ENV") == "production" && config.Output == "stdout" {
		config.Output = "logs/app.log"
	}

	return config
}

func getLogrusLevel(level LogLevel) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}

// Global logger functions

func Debug(args ...interface{}) {
	get().Debug(args...)
}

func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Info(args ...interface{}) {
	get().Info(args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warn(args ...interface{}) {
	get().Warn(args...)
}

func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Error(args ...interface{}) {
	get().Error(args...)
}

func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

func Fatal(args ...interface{}) {
	get().Fatal(args...)
}

func Fatalf(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}

// WithField creates a logger with a field
func WithField(key string, value interface{}) *logrus.Entry {
	return get().WithField(key, value)
}

// WithFields creates a logger with multiple fields
func WithFields(fields logrus.Fields) *logrus.Entry {
	return get().WithFields(fields)
}

// WithError creates a logger with an error field
func WithError(err error) *logrus.Entry {
	return get().WithError(err)
}

// Context-aware logging functions

// LogRequest logs HTTP request information
func LogRequest(method, path, ip, userAgent string, duration time.Duration, statusCode int) {
	WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"ip":          ip,
		"user_agent":  userAgent,
		"duration_ms": duration.Milliseconds(),
		"status_code": statusCode,
		"type":        "request",
	}).Info("HTTP Request")
}

// LogUserAction logs user actions
func LogUserAction(userID, action string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"user_id": userID,
		"action":  action,
		"type":    "user_action",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("User Action")
}

// LogChatEvent logs chat-related events
func LogChatEvent(event, chatID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"chat_id": chatID,
		"user_id": userID,
		"type":    "chat_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Chat Event")
}

// LogCallEvent logs call signaling events
func LogCallEvent(event, callID, chatID, userID string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"event":   event,
		"call_id": callID,
		"chat_id": chatID,
		"user_id": userID,
		"type":    "call_event",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	WithFields(fields).Info("Call Event")
}

// LogError logs detailed error information
func LogError(err error, context string, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"error":   err.Error(),
		"context": context,
		"type":    "error_detail",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	if os.Getenv("APP_ENV") == "development" {
		fields["stack_trace"] = getStackTrace()
	}

	WithFields(fields).Error("Application Error")
}

// LogPerformance logs performance metrics
func LogPerformance(operation string, duration time.Duration, metadata map[string]interface{}) {
	fields := logrus.Fields{
		"operation":   operation,
		"duration_ms": duration.Milliseconds(),
		"type":        "performance",
	}
	for k, v := range metadata {
		fields[k] = v
	}

	if duration > 5*time.Second {
		WithFields(fields).Warn("Slow Operation")
	} else {
		WithFields(fields).Debug("Performance Metric")
	}
}

func getStackTrace() string {
	buf := make([]byte, 1024)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return string(buf[:n])
		}
		buf = make([]byte, 2*len(buf))
	}
}

// SetLevel changes the logger level at runtime
func SetLevel(level LogLevel) {
	l := get()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.SetLevel(getLogrusLevel(level))
}
