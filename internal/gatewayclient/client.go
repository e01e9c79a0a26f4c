package gatewayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrNotAllowed mirrors the gateway refusing a non read-only statement.
	ErrNotAllowed = errors.New("statement is not allowed")

	// ErrSyntax mirrors a SQL_SYNTAX_ERROR envelope.
	ErrSyntax = errors.New("sql syntax error")

	// ErrPermission mirrors a SQL_PERMISSION_DENIED envelope.
	ErrPermission = errors.New("permission denied")

	// ErrUnavailable mirrors DB_UNAVAILABLE and covers transport failures
	// reaching the gateway itself.
	ErrUnavailable = errors.New("gateway unavailable")

	// ErrTimeout mirrors a QUERY_TIMEOUT envelope.
	ErrTimeout = errors.New("query timed out")

	// ErrUnauthorized mirrors an UNAUTHORIZED envelope.
	ErrUnauthorized = errors.New("gateway rejected the api key")
)

// GatewayError carries the full error envelope for callers that need the
// code or retryability; errors.Is against the sentinels above works through
// Unwrap.
type GatewayError struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
	TraceID    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s", e.Code, e.Message)
}

func (e *GatewayError) Unwrap() error {
	switch e.Code {
	case "SQL_NOT_ALLOWED":
		return ErrNotAllowed
	case "SQL_SYNTAX_ERROR":
		return ErrSyntax
	case "SQL_PERMISSION_DENIED":
		return ErrPermission
	case "DB_UNAVAILABLE", "NOT_READY":
		return ErrUnavailable
	case "QUERY_TIMEOUT":
		return ErrTimeout
	case "UNAUTHORIZED":
		return ErrUnauthorized
	}
	return nil
}

type QueryResult struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	Truncated  bool     `json:"truncated"`
	DurationMS int64    `json:"duration_ms"`
}

type TableDDL struct {
	Name string `json:"name"`
	DDL  string `json:"ddl"`
}

type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient: httpClient,
	}, nil
}

func (c *Client) Query(ctx context.Context, sqlText string, maxRows int) (QueryResult, error) {
	payload := map[string]any{"sql": sqlText}
	if maxRows > 0 {
		payload["max_rows"] = maxRows
	}
	var result QueryResult
	if err := c.do(ctx, http.MethodPost, "/v1/query", payload, &result); err != nil {
		return QueryResult{}, err
	}
	return result, nil
}

func (c *Client) Tables(ctx context.Context) ([]string, error) {
	var response struct {
		Tables []string `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/tables", nil, &response); err != nil {
		return nil, err
	}
	return response.Tables, nil
}

func (c *Client) Schema(ctx context.Context, tables []string) ([]TableDDL, error) {
	path := "/v1/schema"
	if len(tables) > 0 {
		path += "?tables=" + url.QueryEscape(strings.Join(tables, ","))
	}
	var response struct {
		Tables []TableDDL `json:"tables"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}
	return response.Tables, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var envelope struct {
			ErrorCode string `json:"error_code"`
			Message   string `json:"message"`
			Retryable bool   `json:"retryable"`
			TraceID   string `json:"trace_id"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.ErrorCode != "" {
			return &GatewayError{
				StatusCode: resp.StatusCode,
				Code:       envelope.ErrorCode,
				Message:    envelope.Message,
				Retryable:  envelope.Retryable,
				TraceID:    envelope.TraceID,
			}
		}
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
