package history

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "history.jsonl"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestAppendTailRoundTrip(t *testing.T) {
	store := newTestStore(t)

	rec := Record{
		Question:   "show all students named Alice",
		SQL:        "SELECT * FROM students WHERE name='Alice';",
		Columns:    []string{"id", "name", "salary"},
		Rows:       [][]any{{float64(1), "Alice", "***"}},
		RowCount:   1,
		DurationMS: 42,
	}
	if err := store.Append(rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d", len(records))
	}
	got := records[0]
	if got.Question != rec.Question {
		t.Fatalf("Question = %q", got.Question)
	}
	if got.SQL != rec.SQL {
		t.Fatalf("SQL = %q", got.SQL)
	}
	if got.RowCount != 1 || got.DurationMS != 42 {
		t.Fatalf("summary = %d rows / %dms", got.RowCount, got.DurationMS)
	}
	if got.Rows[0][2] != "***" {
		t.Fatalf("persisted row = %v", got.Rows[0])
	}
	if got.ID == "" {
		t.Fatal("ID should have been generated")
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should have been set")
	}
}

func TestTailLimitAndOrder(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		rec := Record{
			Question:  fmt.Sprintf("question %d", i),
			CreatedAt: time.Date(2025, 1, 1, 0, i, 0, 0, time.UTC),
		}
		if err := store.Append(rec); err != nil {
			t.Fatalf("Append(%d) error = %v", i, err)
		}
	}

	records, err := store.Tail(3)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
	for i, want := range []string{"question 2", "question 3", "question 4"} {
		if records[i].Question != want {
			t.Fatalf("records[%d].Question = %q, want %q", i, records[i].Question, want)
		}
	}
}

func TestTailSkipsCorruptLines(t *testing.T) {
	store := newTestStore(t)
	if err := store.Append(Record{Question: "first"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	file, err := os.OpenFile(store.Path(), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := file.WriteString("{not json\n"); err != nil {
		t.Fatalf("write corrupt line: %v", err)
	}
	_ = file.Close()

	if err := store.Append(Record{Question: "second"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	records, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Question != "first" || records[1].Question != "second" {
		t.Fatalf("records = %v", records)
	}
}

func TestTailMissingFile(t *testing.T) {
	store := newTestStore(t)
	records, err := store.Tail(10)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("len(records) = %d, want 0", len(records))
	}
}

func TestConcurrentAppends(t *testing.T) {
	store := newTestStore(t)

	const writers = 8
	const perWriter = 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				rec := Record{Question: fmt.Sprintf("writer %d question %d", w, i)}
				if err := store.Append(rec); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}
		}(w)
	}
	wg.Wait()

	records, err := store.Tail(writers * perWriter)
	if err != nil {
		t.Fatalf("Tail() error = %v", err)
	}
	if len(records) != writers*perWriter {
		t.Fatalf("len(records) = %d, want %d", len(records), writers*perWriter)
	}
	for _, rec := range records {
		if rec.Question == "" || rec.ID == "" {
			t.Fatalf("corrupt record: %+v", rec)
		}
	}
}

func TestAppendFailureIsWriteError(t *testing.T) {
	dir := t.TempDir()
	// Point the store at a path that is a directory so the open fails.
	store, err := NewStore(filepath.Join(dir, "as-dir"))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := os.MkdirAll(store.Path(), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	err = store.Append(Record{Question: "q"})
	if err == nil {
		t.Fatal("expected append failure")
	}
	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Fatalf("error = %T, want *WriteError", err)
	}
	if writeErr.Path != store.Path() {
		t.Fatalf("WriteError.Path = %q", writeErr.Path)
	}
}

func TestNewStoreRequiresPath(t *testing.T) {
	if _, err := NewStore("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
