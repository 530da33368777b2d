package logger

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a logger implementation for testing that captures all log messages
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	zerolog  *zerolog.Logger
	fields   map[string]interface{}
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
	Error   error
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	nopLogger := zerolog.Nop()
	return &TestLogger{
		messages: make([]LogMessage, 0),
		zerolog:  &nopLogger,
		fields:   make(map[string]interface{}),
	}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.messages = append(l.messages, LogMessage{
		Level:   level,
		Message: msg,
		Fields:  merged,
		Error:   err,
	})
}

// Debug logs a debug message
func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil, nil) }

// Info logs an info message
func (l *TestLogger) Info(msg string) { l.log("INFO", msg, nil, nil) }

// Warn logs a warning message
func (l *TestLogger) Warn(msg string) { l.log("WARN", msg, nil, nil) }

// Error logs an error message
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil, nil) }

// Fatal logs a fatal message (does not exit in tests)
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil, nil) }

// DebugWithFields logs a debug message with fields
func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields, nil)
}

// InfoWithFields logs an info message with fields
func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields, nil)
}

// WarnWithFields logs a warning message with fields
func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields, nil)
}

// ErrorWithFields logs an error message with fields
func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields, nil)
}

// FatalWithFields logs a fatal message with fields (does not exit in tests)
func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.log("FATAL", msg, fields, nil)
}

// WithField returns a logger with an additional field
func (l *TestLogger) WithField(key string, value interface{}) Logger {
	child := &TestLogger{
		zerolog: l.zerolog,
		fields:  make(map[string]interface{}, len(l.fields)+1),
	}
	for k, v := range l.fields {
		child.fields[k] = v
	}
	child.fields[key] = value
	return &sharedTestLogger{parent: l, child: child}
}

// WithFields returns a logger with additional fields
func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	var result Logger = l
	for k, v := range fields {
		result = result.WithField(k, v)
	}
	return result
}

// WithError returns a logger with an error field
func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", fmt.Sprintf("%v", err))
}

// WithContext returns the logger unchanged
func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }

// GetZerolog returns a nop zerolog instance
func (l *TestLogger) GetZerolog() *zerolog.Logger { return l.zerolog }

// Messages returns a copy of all captured messages
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// HasMessage reports whether a message with the given level and text was logged
func (l *TestLogger) HasMessage(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m.Level == level && m.Message == msg {
			return true
		}
	}
	return false
}

// Reset clears all captured messages
func (l *TestLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = l.messages[:0]
}

// sharedTestLogger forwards log calls to the parent so captured messages
// stay in one place while carrying the child's fields.
type sharedTestLogger struct {
	parent *TestLogger
	child  *TestLogger
}

func (s *sharedTestLogger) Debug(msg string) { s.parent.log("DEBUG", msg, s.child.fields, nil) }
func (s *sharedTestLogger) Info(msg string)  { s.parent.log("INFO", msg, s.child.fields, nil) }
func (s *sharedTestLogger) Warn(msg string)  { s.parent.log("WARN", msg, s.child.fields, nil) }
func (s *sharedTestLogger) Error(msg string) { s.parent.log("ERROR", msg, s.child.fields, nil) }
func (s *sharedTestLogger) Fatal(msg string) { s.parent.log("FATAL", msg, s.child.fields, nil) }

func (s *sharedTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	s.parent.log("DEBUG", msg, s.merge(fields), nil)
}
func (s *sharedTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	s.parent.log("INFO", msg, s.merge(fields), nil)
}
func (s *sharedTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	s.parent.log("WARN", msg, s.merge(fields), nil)
}
func (s *sharedTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	s.parent.log("ERROR", msg, s.merge(fields), nil)
}
func (s *sharedTestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	s.parent.log("FATAL", msg, s.merge(fields), nil)
}

func (s *sharedTestLogger) WithField(key string, value interface{}) Logger {
	child := &TestLogger{
		zerolog: s.child.zerolog,
		fields:  make(map[string]interface{}, len(s.child.fields)+1),
	}
	for k, v := range s.child.fields {
		child.fields[k] = v
	}
	child.fields[key] = value
	return &sharedTestLogger{parent: s.parent, child: child}
}

func (s *sharedTestLogger) WithFields(fields map[string]interface{}) Logger {
	var result Logger = s
	for k, v := range fields {
		result = result.WithField(k, v)
	}
	return result
}

func (s *sharedTestLogger) WithError(err error) Logger {
	if err == nil {
		return s
	}
	return s.WithField("error", fmt.Sprintf("%v", err))
}

func (s *sharedTestLogger) WithContext(ctx context.Context) Logger { return s }

func (s *sharedTestLogger) GetZerolog() *zerolog.Logger { return s.child.zerolog }

func (s *sharedTestLogger) merge(fields map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(s.child.fields)+len(fields))
	for k, v := range s.child.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
