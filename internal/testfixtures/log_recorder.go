package testfixtures

import (
	"fmt"
	"strings"
	"sync"
)

// Severity labels recorded by LogRecorder.
const (
	SeverityInformation = "information"
	SeverityWarning     = "warning"
	SeverityError       = "error"
)

// LogEntry is one message captured by LogRecorder.
type LogEntry struct {
	Severity string
	Message  string
}

// LogRecorder captures severity-tagged messages in memory.
type LogRecorder struct {
	mu      sync.Mutex
	entries []LogEntry
}

// NewLogRecorder returns an empty recorder.
func NewLogRecorder() *LogRecorder {
	return &LogRecorder{}
}

func (r *LogRecorder) WriteInformation(format string, args ...any) {
	r.record(SeverityInformation, format, args)
}

func (r *LogRecorder) WriteWarning(format string, args ...any) {
	r.record(SeverityWarning, format, args)
}

func (r *LogRecorder) WriteError(format string, args ...any) {
	r.record(SeverityError, format, args)
}

func (r *LogRecorder) record(severity, format string, args []any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.mu.Lock()
	r.entries = append(r.entries, LogEntry{Severity: severity, Message: msg})
	r.mu.Unlock()
}

// Entries returns a copy of everything recorded.
func (r *LogRecorder) Entries() []LogEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]LogEntry(nil), r.entries...)
}

// Messages returns the messages recorded at severity.
func (r *LogRecorder) Messages(severity string) []string {
	var out []string
	for _, e := range r.Entries() {
		if e.Severity == severity {
			out = append(out, e.Message)
		}
	}
	return out
}

// Contains reports whether any message at severity contains substr.
func (r *LogRecorder) Contains(severity, substr string) bool {
	for _, msg := range r.Messages(severity) {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
