package logging

import (
	"strings"
	"sync"
)

// captureSink is the shared message store behind a CaptureLogger and all of
// its With children.
type captureSink struct {
	mu       sync.Mutex
	messages []string
}

// CaptureLogger is a Logger that records every emitted message in order.
// Tests use it to assert on the exact sequence of log lines a component
// produced, e.g. the per-segment progression of a recovery run.
type CaptureLogger struct {
	sink   *captureSink
	level  Level
	fields []Field
}

// NewCaptureLogger creates a capture logger recording at DEBUG level.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{
		sink:  &captureSink{},
		level: DebugLevel,
	}
}

func (c *CaptureLogger) record(level Level, msg string) {
	if level < c.level {
		return
	}
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.messages = append(c.sink.messages, msg)
}

// Debug records a debug-level message
func (c *CaptureLogger) Debug(msg string, fields ...Field) {
	c.record(DebugLevel, msg)
}

// Info records an info-level message
func (c *CaptureLogger) Info(msg string, fields ...Field) {
	c.record(InfoLevel, msg)
}

// Warn records a warning-level message
func (c *CaptureLogger) Warn(msg string, fields ...Field) {
	c.record(WarnLevel, msg)
}

// Error records an error-level message
func (c *CaptureLogger) Error(msg string, fields ...Field) {
	c.record(ErrorLevel, msg)
}

// With creates a child logger sharing the same message store
func (c *CaptureLogger) With(fields ...Field) Logger {
	newFields := make([]Field, len(c.fields)+len(fields))
	copy(newFields, c.fields)
	copy(newFields[len(c.fields):], fields)
	return &CaptureLogger{
		sink:   c.sink,
		level:  c.level,
		fields: newFields,
	}
}

// SetLevel sets the minimum recorded level
func (c *CaptureLogger) SetLevel(level Level) {
	c.level = level
}

// GetLevel returns the current level
func (c *CaptureLogger) GetLevel() Level {
	return c.level
}

// Messages returns a copy of all recorded messages in order.
func (c *CaptureLogger) Messages() []string {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	out := make([]string, len(c.sink.messages))
	copy(out, c.sink.messages)
	return out
}

// String returns all recorded messages joined with " | ".
func (c *CaptureLogger) String() string {
	return strings.Join(c.Messages(), " | ")
}

// Contains reports whether any recorded message contains sub.
func (c *CaptureLogger) Contains(sub string) bool {
	for _, m := range c.Messages() {
		if strings.Contains(m, sub) {
			return true
		}
	}
	return false
}

// Reset discards all recorded messages.
func (c *CaptureLogger) Reset() {
	c.sink.mu.Lock()
	defer c.sink.mu.Unlock()
	c.sink.messages = c.sink.messages[:0]
}
