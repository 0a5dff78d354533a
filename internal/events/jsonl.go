package events

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// JSONLWriter appends one JSON-encoded Event per line to a file,
// giving a dashboard something to `tail -f` without going through the
// durable SQLite store.
type JSONLWriter struct {
	mu   sync.Mutex
	file *os.File
}

// NewJSONLWriter opens (or creates) path for appending.
func NewJSONLWriter(path string) (*JSONLWriter, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("events: open jsonl log: %w", err)
	}
	return &JSONLWriter{file: f}, nil
}

// Append writes event as one JSON line, flushing immediately so a
// crash never loses an already-accepted event.
func (w *JSONLWriter) Append(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: marshal event: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(data); err != nil {
		return fmt.Errorf("events: write jsonl line: %w", err)
	}
	return w.file.Sync()
}

// Close releases the underlying file handle.
func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}
