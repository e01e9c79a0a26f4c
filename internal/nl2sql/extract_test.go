package nl2sql

import (
	"errors"
	"testing"
)

func TestExtractResultJSONReply(t *testing.T) {
	completion := `{"thoughts": "join and filter", "direct_response": "", "sql": "SELECT name FROM students WHERE id = 1", "display_type": "response_table"}`
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "SELECT name FROM students WHERE id = 1" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.DisplayType != DisplayTable {
		t.Fatalf("DisplayType = %q", result.DisplayType)
	}
	if result.Thoughts != "join and filter" {
		t.Fatalf("Thoughts = %q", result.Thoughts)
	}
}

func TestExtractResultJSONInFence(t *testing.T) {
	completion := "```json\n{\"sql\": \"SELECT 1\", \"display_type\": \"response_pie_chart\"}\n```"
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "SELECT 1" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.DisplayType != DisplayPieChart {
		t.Fatalf("DisplayType = %q", result.DisplayType)
	}
}

func TestExtractResultUnknownDisplayTypeFallsBack(t *testing.T) {
	completion := `{"sql": "SELECT 1", "display_type": "response_hologram"}`
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.DisplayType != DisplayTable {
		t.Fatalf("DisplayType = %q, want %q", result.DisplayType, DisplayTable)
	}
}

func TestExtractResultDirectResponse(t *testing.T) {
	completion := `{"thoughts": "no query needed", "direct_response": "I can answer questions about your data.", "sql": "", "display_type": ""}`
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if !result.IsDirect() {
		t.Fatalf("IsDirect() = false, result = %+v", result)
	}
	if result.DirectResponse != "I can answer questions about your data." {
		t.Fatalf("DirectResponse = %q", result.DirectResponse)
	}
}

func TestExtractResultJSONWithoutSQLOrAnswer(t *testing.T) {
	_, err := ExtractResult(`{"thoughts": "hmm", "direct_response": "", "sql": "", "display_type": ""}`)
	if !errors.Is(err, ErrNoSQL) {
		t.Fatalf("error = %v, want ErrNoSQL", err)
	}
}

func TestExtractResultFencedBlock(t *testing.T) {
	completion := "Here is the query you asked for:\n```sql\nSELECT * FROM students WHERE name='Alice';\n```\nLet me know if you need more."
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "SELECT * FROM students WHERE name='Alice';" {
		t.Fatalf("SQL = %q", result.SQL)
	}
}

func TestExtractResultPlainFence(t *testing.T) {
	completion := "```\nWITH t AS (SELECT 1 AS n) SELECT n FROM t\n```"
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "WITH t AS (SELECT 1 AS n) SELECT n FROM t" {
		t.Fatalf("SQL = %q", result.SQL)
	}
}

func TestExtractResultBareStatement(t *testing.T) {
	result, err := ExtractResult("SELECT id, name FROM students LIMIT 50")
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "SELECT id, name FROM students LIMIT 50" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.DisplayType != DisplayTable {
		t.Fatalf("DisplayType = %q", result.DisplayType)
	}
}

func TestExtractResultStatementAfterProse(t *testing.T) {
	completion := "The following statement answers your question.\nSELECT COUNT(*) FROM takes;\nIt counts all enrollments."
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	if result.SQL != "SELECT COUNT(*) FROM takes;" {
		t.Fatalf("SQL = %q", result.SQL)
	}
}

func TestExtractResultMultilineStatement(t *testing.T) {
	completion := "Query:\nSELECT s.name,\n       t.course_id\nFROM students s\nJOIN takes t ON s.id = t.student_id\n\nThis joins both tables."
	result, err := ExtractResult(completion)
	if err != nil {
		t.Fatalf("ExtractResult() error = %v", err)
	}
	want := "SELECT s.name,\n       t.course_id\nFROM students s\nJOIN takes t ON s.id = t.student_id"
	if result.SQL != want {
		t.Fatalf("SQL = %q, want %q", result.SQL, want)
	}
}

func TestExtractResultNoSQL(t *testing.T) {
	for _, completion := range []string{
		"",
		"   ",
		"I cannot help with that question.",
		"The selector pattern does not apply here.",
	} {
		_, err := ExtractResult(completion)
		if !errors.Is(err, ErrNoSQL) {
			t.Fatalf("ExtractResult(%q) error = %v, want ErrNoSQL", completion, err)
		}
	}
}

func TestStripMarkdownSQL(t *testing.T) {
	got := stripMarkdownSQL("```sql\nSELECT 1;\n```")
	if got != "SELECT 1;" {
		t.Fatalf("stripMarkdownSQL() = %q", got)
	}
}
