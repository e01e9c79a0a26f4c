package nl2sql

import (
	"errors"
	"strings"
	"testing"
)

func TestBuildMessagesRejectsEmptyQuestion(t *testing.T) {
	for _, question := range []string{"", "   ", "\n\t"} {
		_, err := BuildMessages(Request{Question: question}, false)
		if !errors.Is(err, ErrEmptyQuestion) {
			t.Fatalf("BuildMessages(%q) error = %v, want ErrEmptyQuestion", question, err)
		}
	}
}

func TestBuildMessagesComposition(t *testing.T) {
	req := Request{
		Question: "how many students are enrolled?",
		Schema: []TableSchema{
			{Name: "students", DDL: "CREATE TABLE students (id INT, name TEXT, dept_name TEXT)"},
		},
		History: []Turn{
			{Question: "list all departments", SQL: "SELECT DISTINCT dept_name FROM students LIMIT 50"},
		},
	}

	messages, err := BuildMessages(req, true)
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}

	if messages[0].Role != "system" {
		t.Fatalf("messages[0].Role = %q", messages[0].Role)
	}
	if !strings.Contains(messages[0].Content, `"sql"`) || !strings.Contains(messages[0].Content, "read-only") {
		t.Fatalf("system prompt missing reply contract: %q", messages[0].Content)
	}

	// few-shot pairs come right after the system message
	if messages[1].Content != fewShotExamples[0].Question {
		t.Fatalf("messages[1].Content = %q", messages[1].Content)
	}
	if messages[2].Role != "assistant" {
		t.Fatalf("messages[2].Role = %q", messages[2].Role)
	}

	last := messages[len(messages)-1]
	if last.Role != "user" {
		t.Fatalf("last message role = %q", last.Role)
	}
	if !strings.Contains(last.Content, "CREATE TABLE students") {
		t.Fatalf("last message missing schema context: %q", last.Content)
	}
	if !strings.Contains(last.Content, "how many students are enrolled?") {
		t.Fatalf("last message missing question: %q", last.Content)
	}

	foundHistory := false
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content == "list all departments" {
			foundHistory = true
		}
	}
	if !foundHistory {
		t.Fatal("conversation history turn missing from messages")
	}
}

func TestBuildMessagesWithoutFewShot(t *testing.T) {
	messages, err := BuildMessages(Request{Question: "anything"}, false)
	if err != nil {
		t.Fatalf("BuildMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("len(messages) = %d, want system + user only", len(messages))
	}
	for _, msg := range messages {
		if msg.Content == fewShotExamples[0].Question {
			t.Fatal("few-shot example leaked into prompt")
		}
	}
}
