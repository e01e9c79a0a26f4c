package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/dbexec"
)

func newQueryHandler(t *testing.T, engine dbexec.Engine) http.Handler {
	t.Helper()
	cfg, err := config.Load("askdb-gateway", mapLookup(map[string]string{}))
	if err != nil {
		t.Fatalf("config load failed: %v", err)
	}
	return NewHandler(cfg, Dependencies{Engine: engine})
}

func TestQueryEndpointReturnsRows(t *testing.T) {
	engine := &fakeEngine{executeFunc: func(_ context.Context, request dbexec.Request) (dbexec.Result, error) {
		if request.SQL != "select id, name from students" {
			return dbexec.Result{}, fmt.Errorf("unexpected sql %q", request.SQL)
		}
		if request.MaxRows != 5 {
			return dbexec.Result{}, fmt.Errorf("unexpected max_rows %d", request.MaxRows)
		}
		return dbexec.Result{
			Columns:   []string{"id", "name"},
			Rows:      [][]any{{int64(1), "Alice"}},
			RowCount:  1,
			Truncated: false,
			Duration:  12 * time.Millisecond,
		}, nil
	}}
	h := newQueryHandler(t, engine)

	body := `{"sql": "select id, name from students", "max_rows": 5}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body)))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var response struct {
		Columns    []string `json:"columns"`
		Rows       [][]any  `json:"rows"`
		RowCount   int      `json:"row_count"`
		Truncated  bool     `json:"truncated"`
		DurationMS int64    `json:"duration_ms"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if len(response.Columns) != 2 || response.RowCount != 1 {
		t.Fatalf("response = %+v", response)
	}
	if response.DurationMS != 12 {
		t.Fatalf("duration_ms = %d", response.DurationMS)
	}
}

func TestQueryEndpointRejectsEmptySQL(t *testing.T) {
	h := newQueryHandler(t, &fakeEngine{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql": "  "}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	var envelope map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("json decode failed: %v", err)
	}
	if envelope["error_code"] != "INVALID_ARGUMENT" {
		t.Fatalf("error_code = %v", envelope["error_code"])
	}
}

func TestQueryEndpointRejectsUnknownFields(t *testing.T) {
	h := newQueryHandler(t, &fakeEngine{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql": "select 1", "limit": 3}`)))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestQueryEndpointMapsExecutorErrors(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
		retryable  bool
	}{
		{dbexec.ErrNotAllowed, http.StatusBadRequest, "SQL_NOT_ALLOWED", false},
		{dbexec.ErrSyntax, http.StatusBadRequest, "SQL_SYNTAX_ERROR", false},
		{dbexec.ErrPermission, http.StatusForbidden, "SQL_PERMISSION_DENIED", false},
		{dbexec.ErrUnavailable, http.StatusServiceUnavailable, "DB_UNAVAILABLE", true},
		{dbexec.ErrTimeout, http.StatusGatewayTimeout, "QUERY_TIMEOUT", true},
		{fmt.Errorf("scan row: boom"), http.StatusInternalServerError, "INTERNAL", true},
	}

	for _, tc := range cases {
		engine := &fakeEngine{executeFunc: func(context.Context, dbexec.Request) (dbexec.Result, error) {
			return dbexec.Result{}, fmt.Errorf("execute query: %w", tc.err)
		}}
		h := newQueryHandler(t, engine)

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"sql": "select 1"}`)))

		if rr.Code != tc.wantStatus {
			t.Fatalf("%v: status = %d, want %d", tc.err, rr.Code, tc.wantStatus)
		}
		var envelope map[string]any
		if err := json.Unmarshal(rr.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("json decode failed: %v", err)
		}
		if envelope["error_code"] != tc.wantCode {
			t.Fatalf("%v: error_code = %v, want %s", tc.err, envelope["error_code"], tc.wantCode)
		}
		if envelope["retryable"] != tc.retryable {
			t.Fatalf("%v: retryable = %v, want %v", tc.err, envelope["retryable"], tc.retryable)
		}
	}
}
