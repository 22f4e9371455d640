// Package tracelog writes the protocol transcript: one timestamped line per
// transmitted command, relayed reply, or rejected cycle. The log is a scoped
// resource opened once at startup and injected into the bridge, with release
// guaranteed at shutdown.
package tracelog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
)

// Logger appends single-line entries to a transcript file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	out  *log.Logger
}

// Open opens (or creates) the transcript file at path in append mode.
func Open(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open transcript log %s: %w", path, err)
	}
	return &Logger{
		file: f,
		out:  log.New(f, "", log.LstdFlags),
	}, nil
}

// Discard returns a Logger that drops all entries, for tests and dev mode
// runs without a transcript file.
func Discard() *Logger {
	return &Logger{out: log.New(io.Discard, "", 0)}
}

// Entry appends one formatted line to the transcript.
func (l *Logger) Entry(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.out.Printf(format, args...)
}

// Close flushes and closes the transcript file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
