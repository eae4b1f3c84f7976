package reqlog

import (
	"fmt"
	"io"
	"os"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Sink receives request log records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Write(rec Record) error
}

// WriterSink serializes records onto an io.Writer, one whole line per Write
// call so concurrent sessions never interleave mid-line.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewWriterSink wraps w. If w is also an io.Closer, Close closes it.
func NewWriterSink(w io.Writer) *WriterSink {
	s := &WriterSink{w: w}
	if c, ok := w.(io.Closer); ok {
		s.c = c
	}
	return s
}

// FileOptions configures the file behind a request log.
type FileOptions struct {
	// MaxSizeMB enables rotation when > 0.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// OpenFile opens path for appending. With rotation enabled the file is managed
// by lumberjack instead.
func OpenFile(path string, opts FileOptions) (*WriterSink, error) {
	if path == "" {
		return nil, fmt.Errorf("request log path is empty")
	}

	if opts.MaxSizeMB > 0 {
		return NewWriterSink(&lumberjack.Logger{
			Filename:   path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}), nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open request log: %w", err)
	}
	return NewWriterSink(f), nil
}

// Write appends one record.
func (s *WriterSink) Write(rec Record) error {
	line, err := rec.MarshalLine()
	if err != nil {
		return fmt.Errorf("failed to encode log record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("failed to write log record: %w", err)
	}
	return nil
}

// Close releases the underlying writer if it owns one.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c == nil {
		return nil
	}
	return s.c.Close()
}

// MemorySink keeps records in memory.
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Write stores a copy of rec.
func (m *MemorySink) Write(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a snapshot of everything written so far.
func (m *MemorySink) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Record, len(m.records))
	copy(out, m.records)
	return out
}
