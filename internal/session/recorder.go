package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Recorder persists session records.
type Recorder interface {
	Record(rec Record) error
	Close() error
}

// JSONRecorder writes records as newline-delimited JSON (NDJSON). Records
// are written immediately; the file is append-only and never rewritten.
type JSONRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewJSONRecorder creates a recorder writing NDJSON to the given path.
// Parent directories are created automatically.
func NewJSONRecorder(path string) (*JSONRecorder, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening session log: %w", err)
	}

	return &JSONRecorder{
		file: f,
		enc:  json.NewEncoder(f),
		path: path,
	}, nil
}

// Record writes a single record as one JSON line.
func (r *JSONRecorder) Record(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enc.Encode(rec)
}

// Close flushes and closes the underlying file.
func (r *JSONRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// Path returns the file path of the session log.
func (r *JSONRecorder) Path() string {
	return r.path
}

// NopRecorder discards all records. Useful when auditing is disabled.
type NopRecorder struct{}

func (NopRecorder) Record(Record) error { return nil }

func (NopRecorder) Close() error { return nil }

// LogPath returns the audit log path for a session inside dir:
// ask-<timestamp>-<short session id>.jsonl.
func LogPath(dir, sessionID string) string {
	ts := time.Now().UTC().Format("20060102T150405Z")
	sid := sessionID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	return filepath.Join(dir, fmt.Sprintf("ask-%s-%s.jsonl", ts, sid))
}
