package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultTailLimit = 10

// Record is one logged unit of work: the question, its derived SQL, and the
// outcome. Rows arrive already redacted; sensitive values never reach disk.
type Record struct {
	ID             string    `json:"id"`
	Question       string    `json:"question"`
	SQL            string    `json:"sql,omitempty"`
	DirectResponse string    `json:"direct_response,omitempty"`
	Columns        []string  `json:"columns,omitempty"`
	Rows           [][]any   `json:"rows,omitempty"`
	RowCount       int       `json:"row_count"`
	Truncated      bool      `json:"truncated,omitempty"`
	Error          string    `json:"error,omitempty"`
	DurationMS     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// WriteError marks a failed best-effort append. Callers absorb it: the query
// result already delivered is never rolled back over a logging failure.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("append history to %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Store appends records as JSON lines to a single file. Appends are
// serialized with a mutex on top of O_APPEND, so concurrent sessions never
// corrupt earlier entries.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("history path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string { return s.path }

// Append writes one record as a single JSON line. A zero ID or timestamp is
// filled in. Every failure comes back as *WriteError.
func (s *Store) Append(rec Record) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	if _, err := file.Write(line); err != nil {
		_ = file.Close()
		return &WriteError{Path: s.path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &WriteError{Path: s.path, Err: err}
	}
	return nil
}

// Tail returns up to limit most recent records in chronological order.
// Unparsable lines are skipped rather than failing the whole read. A missing
// file reads as empty history.
func (s *Store) Tail(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultTailLimit
	}

	s.mu.Lock()
	data, err := os.ReadFile(s.path)
	s.mu.Unlock()
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var records []Record
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if len(records) > limit {
		records = records[len(records)-limit:]
	}
	return records, nil
}
