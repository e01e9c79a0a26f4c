package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
	FewShot     bool
}

// OpenAITranslator talks to any OpenAI-compatible chat completion endpoint.
// The base URL is expected to include the version segment, e.g.
// https://dashscope.aliyuncs.com/compatible-mode/v1.
type OpenAITranslator struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	fewShot     bool
	client      *http.Client
}

func NewOpenAITranslator(cfg OpenAIConfig) (*OpenAITranslator, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "qwen-plus"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAITranslator{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		fewShot:     cfg.FewShot,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

// Translate runs the full question-to-result path: build messages, one
// completion call, extraction. Every failure is surfaced to the caller;
// nothing is retried.
func (t *OpenAITranslator) Translate(ctx context.Context, req Request) (Result, error) {
	messages, err := BuildMessages(req, t.fewShot)
	if err != nil {
		return Result{}, err
	}
	completion, err := t.Complete(ctx, messages)
	if err != nil {
		return Result{}, err
	}
	result, err := ExtractResult(completion)
	if err != nil {
		return Result{}, err
	}
	result.Provider = "openai-compatible"
	result.Model = t.model
	return result, nil
}

// Complete performs a single chat completion attempt and returns the first
// choice's content verbatim.
func (t *OpenAITranslator) Complete(ctx context.Context, messages []Message) (string, error) {
	payload := map[string]any{
		"model":       t.model,
		"messages":    messages,
		"temperature": t.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response body: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("chat completion status %d: %w", resp.StatusCode, ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", fmt.Errorf("chat completion status %d: %w", resp.StatusCode, ErrRateLimited)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty chat completion choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
