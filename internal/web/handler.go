package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/gatewayclient"
	"github.com/askdb/askdb/internal/history"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/observability"
	"github.com/askdb/askdb/internal/pipeline"
)

const defaultHistoryLimit = 20

// Asker is the slice of the pipeline the dashboard drives.
type Asker interface {
	Ask(ctx context.Context, question string) (pipeline.Answer, error)
	Reset()
}

type Dependencies struct {
	Logger  *slog.Logger
	Asker   Asker
	Gateway pipeline.QueryGateway
	History *history.Store
	UI      http.Handler
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/ask", func(w http.ResponseWriter, r *http.Request) {
		handleAsk(deps, w, r)
	})
	mux.HandleFunc("POST /v1/reset", func(w http.ResponseWriter, r *http.Request) {
		handleReset(deps, w, r)
	})
	mux.HandleFunc("GET /v1/history", func(w http.ResponseWriter, r *http.Request) {
		handleHistory(deps, w, r)
	})
	mux.HandleFunc("GET /v1/tables", func(w http.ResponseWriter, r *http.Request) {
		handleTables(deps, w, r)
	})
	mux.HandleFunc("GET /v1/schema", func(w http.ResponseWriter, r *http.Request) {
		handleSchema(deps, w, r)
	})

	if deps.UI != nil {
		mux.Handle("GET /{path...}", deps.UI)
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	return chain(mux, middlewares...)
}

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	Question       string   `json:"question"`
	SQL            string   `json:"sql,omitempty"`
	DirectResponse string   `json:"direct_response,omitempty"`
	DisplayType    string   `json:"display_type,omitempty"`
	Columns        []string `json:"columns"`
	Rows           [][]any  `json:"rows"`
	RowCount       int      `json:"row_count"`
	Truncated      bool     `json:"truncated"`
	DurationMS     int64    `json:"duration_ms"`
}

func handleAsk(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "pipeline is not configured", false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}

	answer, err := deps.Asker.Ask(r.Context(), request.Question)
	if err != nil {
		writeAskError(r.Context(), w, err)
		return
	}

	rows := answer.Rows
	if rows == nil {
		rows = [][]any{}
	}
	columns := answer.Columns
	if columns == nil {
		columns = []string{}
	}
	writeJSON(w, http.StatusOK, askResponse{
		Question:       answer.Question,
		SQL:            answer.SQL,
		DirectResponse: answer.DirectResponse,
		DisplayType:    answer.DisplayType,
		Columns:        columns,
		Rows:           rows,
		RowCount:       answer.RowCount,
		Truncated:      answer.Truncated,
		DurationMS:     answer.Duration.Milliseconds(),
	})
}

func handleReset(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Asker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "pipeline is not configured", false, nil)
		return
	}
	deps.Asker.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func handleHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"records": []history.Record{}})
		return
	}
	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "limit must be a positive integer", false, nil)
			return
		}
		limit = parsed
	}
	records, err := deps.History.Tail(limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", err.Error(), true, nil)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": records})
}

func handleTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GATEWAY_NOT_CONFIGURED", "gateway client is not configured", false, nil)
		return
	}
	tables, err := deps.Gateway.Tables(r.Context())
	if err != nil {
		writeAskError(r.Context(), w, err)
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "GATEWAY_NOT_CONFIGURED", "gateway client is not configured", false, nil)
		return
	}
	var requested []string
	if raw := strings.TrimSpace(r.URL.Query().Get("tables")); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if trimmed := strings.TrimSpace(name); trimmed != "" {
				requested = append(requested, trimmed)
			}
		}
	}
	ddls, err := deps.Gateway.Schema(r.Context(), requested)
	if err != nil {
		writeAskError(r.Context(), w, err)
		return
	}
	if ddls == nil {
		ddls = []gatewayclient.TableDDL{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": ddls})
}

// writeAskError maps pipeline and gateway failures onto the shared envelope.
func writeAskError(ctx context.Context, w http.ResponseWriter, err error) {
	status, code, retryable := http.StatusInternalServerError, "INTERNAL", true
	switch {
	case errors.Is(err, nl2sql.ErrEmptyQuestion):
		status, code, retryable = http.StatusBadRequest, "INVALID_ARGUMENT", false
	case errors.Is(err, nl2sql.ErrUnauthorized):
		status, code, retryable = http.StatusBadGateway, "LLM_UNAUTHORIZED", false
	case errors.Is(err, nl2sql.ErrRateLimited):
		status, code, retryable = http.StatusTooManyRequests, "LLM_RATE_LIMITED", true
	case errors.Is(err, nl2sql.ErrNoSQL):
		status, code, retryable = http.StatusBadGateway, "NO_SQL_GENERATED", false
	case errors.Is(err, gatewayclient.ErrNotAllowed):
		status, code, retryable = http.StatusBadRequest, "SQL_NOT_ALLOWED", false
	case errors.Is(err, gatewayclient.ErrSyntax):
		status, code, retryable = http.StatusBadRequest, "SQL_SYNTAX_ERROR", false
	case errors.Is(err, gatewayclient.ErrPermission):
		status, code, retryable = http.StatusForbidden, "SQL_PERMISSION_DENIED", false
	case errors.Is(err, gatewayclient.ErrUnavailable):
		status, code, retryable = http.StatusServiceUnavailable, "DB_UNAVAILABLE", true
	case errors.Is(err, gatewayclient.ErrTimeout):
		status, code, retryable = http.StatusGatewayTimeout, "QUERY_TIMEOUT", true
	case errors.Is(err, gatewayclient.ErrUnauthorized):
		status, code, retryable = http.StatusBadGateway, "UNAUTHORIZED", false
	}

	extra := map[string]any{}
	var execErr *pipeline.ExecutionError
	if errors.As(err, &execErr) {
		extra["sql"] = execErr.SQL
	}
	if len(extra) == 0 {
		extra = nil
	}
	writeError(ctx, w, status, code, err.Error(), retryable, extra)
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
