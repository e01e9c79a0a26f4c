package gateway

import (
	"net/http"
	"strings"
)

func handleTables(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
		return
	}
	tables, err := deps.Engine.Tables(r.Context())
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Engine == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query engine is not configured", false, nil)
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

	ddls, err := deps.Engine.Schema(r.Context(), requested)
	if err != nil {
		writeExecutionError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": ddls})
}
