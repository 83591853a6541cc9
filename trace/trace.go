// Package trace implements the trace logger (C3): an append-only JSONL sink
// for call and event records, with an optional bounded async streaming
// worker that never blocks the simulation and drops overflow silently.
package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"github.com/vei-sim/vei/telemetry"
)

// Version is the trace_version value stamped on every record (spec.md §6).
const Version = 1

type (
	// CallRecord is a "call" trace entry.
	CallRecord struct {
		TraceVersion int    `json:"trace_version"`
		Type         string `json:"type"`
		Tool         string `json:"tool"`
		Args         map[string]any `json:"args"`
		Response     any    `json:"response"`
		TimeMS       int64  `json:"time_ms"`
	}

	// EventRecord is an "event" trace entry.
	EventRecord struct {
		TraceVersion int            `json:"trace_version"`
		Type         string         `json:"type"`
		Target       string         `json:"target"`
		Payload      map[string]any `json:"payload"`
		Emitted      bool           `json:"emitted"`
		TimeMS       int64          `json:"time_ms"`
	}

	// Logger buffers call/event records in memory and flushes them to a
	// JSONL file in append order. A configured StreamWorker additionally
	// receives every flushed record via a bounded non-blocking enqueue.
	Logger struct {
		mu      sync.Mutex
		path    string
		file    *os.File
		pending []any
		logger  telemetry.Logger
		stream  *StreamWorker
	}
)

// New constructs a Logger writing to path. An empty path disables file
// output entirely (pending records still accumulate across calls to Flush,
// which becomes a no-op for persistence but still drains pending and feeds
// any configured stream).
func New(path string, logger telemetry.Logger) *Logger {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	l := &Logger{path: path, logger: logger}
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn(nil, "trace: failed to open trace file, continuing without file output", "path", path, "err", err)
		} else {
			l.file = f
		}
	}
	return l
}

// WithStream attaches a bounded streaming worker; flushed records are also
// enqueued non-blockingly to it.
func (l *Logger) WithStream(w *StreamWorker) *Logger {
	l.stream = w
	return l
}

// RecordCall appends a call record to the pending buffer.
func (l *Logger) RecordCall(tool string, args map[string]any, response any, timeMS int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, CallRecord{
		TraceVersion: Version, Type: "call", Tool: tool, Args: args, Response: response, TimeMS: timeMS,
	})
}

// RecordEvent appends an event record to the pending buffer.
func (l *Logger) RecordEvent(target string, payload map[string]any, emitted bool, timeMS int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, EventRecord{
		TraceVersion: Version, Type: "event", Target: target, Payload: payload, Emitted: emitted, TimeMS: timeMS,
	})
}

// Flush writes all pending records since the last flush to the trace file
// in append order, and enqueues them to the stream worker if configured.
// File write failures are logged and swallowed — trace output is
// best-effort, per spec.md §4.3/§5.
func (l *Logger) Flush() {
	l.mu.Lock()
	records := l.pending
	l.pending = nil
	file := l.file
	stream := l.stream
	l.mu.Unlock()

	if len(records) == 0 {
		return
	}

	if file != nil {
		w := bufio.NewWriter(file)
		for _, rec := range records {
			line, err := json.Marshal(rec)
			if err != nil {
				l.logger.Warn(nil, "trace: failed to marshal record", "err", err)
				continue
			}
			line = append(line, '\n')
			if _, err := w.Write(line); err != nil {
				l.logger.Warn(nil, "trace: failed to write record, continuing in memory only", "err", err)
				break
			}
		}
		if err := w.Flush(); err != nil {
			l.logger.Warn(nil, "trace: failed to flush trace file", "err", err)
		}
	}

	if stream != nil {
		for _, rec := range records {
			stream.Enqueue(rec)
		}
	}
}

// Close flushes remaining records and releases the file handle.
func (l *Logger) Close() error {
	l.Flush()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
