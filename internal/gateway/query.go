package gateway

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/dbexec"
	"github.com/askdb/askdb/internal/observability"
)

type queryRequest struct {
	SQL     string `json:"sql"`
	MaxRows int    `json:"max_rows"`
}

type queryResponse struct {
	Columns    []string `json:"columns"`
	Rows       [][]any  `json:"rows"`
	RowCount   int      `json:"row_count"`
	Truncated  bool     `json:"truncated"`
	DurationMS int64    `json:"duration_ms"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "sql is required", false, nil)
		return
	}
	if request.MaxRows < 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_ARGUMENT", "max_rows must not be negative", false, nil)
		return
	}

	start := time.Now()
	result, err := deps.Engine.Execute(r.Context(), dbexec.Request{
		SQL:     request.SQL,
		MaxRows: request.MaxRows,
	})
	if err != nil {
		code := writeExecutionError(r.Context(), w, err)
		observability.ObserveGatewayQuery(code, -1, time.Since(start))
		return
	}
	observability.ObserveGatewayQuery("OK", result.RowCount, result.Duration)

	writeJSON(w, http.StatusOK, queryResponse{
		Columns:    result.Columns,
		Rows:       result.Rows,
		RowCount:   result.RowCount,
		Truncated:  result.Truncated,
		DurationMS: result.Duration.Milliseconds(),
	})
}
