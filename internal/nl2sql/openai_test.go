package nl2sql

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func completionResponse(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestTranslateHappyPath(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		var payload struct {
			Model    string    `json:"model"`
			Messages []Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload.Model != "qwen-plus" {
			t.Errorf("model = %q", payload.Model)
		}
		if len(payload.Messages) == 0 || payload.Messages[0].Role != "system" {
			t.Errorf("messages = %+v", payload.Messages)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse(`{"thoughts": "", "direct_response": "", "sql": "SELECT 1", "display_type": "response_table"}`)))
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	result, err := translator.Translate(context.Background(), Request{Question: "count things"})
	if err != nil {
		t.Fatalf("Translate() error = %v", err)
	}
	if result.SQL != "SELECT 1" {
		t.Fatalf("SQL = %q", result.SQL)
	}
	if result.Model != "qwen-plus" || result.Provider != "openai-compatible" {
		t.Fatalf("result attribution = %q/%q", result.Provider, result.Model)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("requests = %d, want 1", got)
	}
}

func TestCompleteAuthError(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, `{"error": "invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "bad"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	_, err = translator.Translate(context.Background(), Request{Question: "anything"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("error = %v, want ErrUnauthorized", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("requests = %d, want single attempt", got)
	}
}

func TestCompleteRateLimited(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, `{"error": "throttled"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	_, err = translator.Translate(context.Background(), Request{Question: "anything"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("requests = %d, want single attempt", got)
	}
}

func TestCompleteNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	_, err = translator.Translate(context.Background(), Request{Question: "anything"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNoSQL) {
		t.Fatalf("transport error misclassified: %v", err)
	}
	if !strings.Contains(err.Error(), "request chat completion") {
		t.Fatalf("error = %v, want wrapped transport failure", err)
	}
}

func TestTranslateEmptyQuestionSkipsNetwork(t *testing.T) {
	var requests atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	_, err = translator.Translate(context.Background(), Request{Question: "   "})
	if !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("error = %v, want ErrEmptyQuestion", err)
	}
	if got := requests.Load(); got != 0 {
		t.Fatalf("requests = %d, want 0", got)
	}
}

func TestNewOpenAITranslatorValidation(t *testing.T) {
	if _, err := NewOpenAITranslator(OpenAIConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing base URL")
	}
	if _, err := NewOpenAITranslator(OpenAIConfig{BaseURL: "http://x"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestTranslateNoSQLInCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionResponse("I am unable to answer that.")))
	}))
	defer server.Close()

	translator, err := NewOpenAITranslator(OpenAIConfig{BaseURL: server.URL, APIKey: "k"})
	if err != nil {
		t.Fatalf("NewOpenAITranslator() error = %v", err)
	}

	_, err = translator.Translate(context.Background(), Request{Question: "what is love"})
	if !errors.Is(err, ErrNoSQL) {
		t.Fatalf("error = %v, want ErrNoSQL", err)
	}
}
