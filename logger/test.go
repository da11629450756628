package logger

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
	Prefixes  []string
	Metadata  map[string]interface{}
}

// Text returns the message with its arguments applied.
func (e TestLogEntry) Text() string {
	if len(e.Arguments) == 0 {
		return e.Message
	}
	return fmt.Sprintf(e.Message, e.Arguments...)
}

type testLog struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

// TestLogger records every entry in memory. Children created with With or
// WithPrefix share the same record.
type TestLogger struct {
	log      *testLog
	prefixes []string
	metadata map[string]interface{}
}

var _ Logger = (*TestLogger)(nil)

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{log: &testLog{}}
}

func (c *TestLogger) child() *TestLogger {
	prefixes := make([]string, len(c.prefixes))
	copy(prefixes, c.prefixes)
	return &TestLogger{log: c.log, prefixes: prefixes, metadata: c.metadata}
}

func (c *TestLogger) WithContext(_ context.Context) Logger {
	return c.child()
}

func (c *TestLogger) WithPrefix(prefix string) Logger {
	l := c.child()
	l.prefixes = append(l.prefixes, prefix)
	return l
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	l := c.child()
	l.metadata = copyMetadata(c.metadata, metadata)
	return l
}

func (c *TestLogger) IsLevelEnabled(LogLevel) bool {
	return true
}

func (c *TestLogger) record(severity, msg string, args ...interface{}) {
	c.log.mu.Lock()
	c.log.entries = append(c.log.entries, TestLogEntry{
		Severity:  severity,
		Message:   msg,
		Arguments: args,
		Prefixes:  c.prefixes,
		Metadata:  c.metadata,
	})
	c.log.mu.Unlock()
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.record("TRACE", msg, args...) }
func (c *TestLogger) Debug(msg string, args ...interface{}) { c.record("DEBUG", msg, args...) }
func (c *TestLogger) Info(msg string, args ...interface{})  { c.record("INFO", msg, args...) }
func (c *TestLogger) Warn(msg string, args ...interface{})  { c.record("WARNING", msg, args...) }
func (c *TestLogger) Error(msg string, args ...interface{}) { c.record("ERROR", msg, args...) }

// Entries returns a snapshot of everything logged so far.
func (c *TestLogger) Entries() []TestLogEntry {
	c.log.mu.Lock()
	defer c.log.mu.Unlock()
	out := make([]TestLogEntry, len(c.log.entries))
	copy(out, c.log.entries)
	return out
}

// Contains reports whether any formatted entry contains substr.
func (c *TestLogger) Contains(substr string) bool {
	for _, e := range c.Entries() {
		if strings.Contains(e.Text(), substr) {
			return true
		}
	}
	return false
}
