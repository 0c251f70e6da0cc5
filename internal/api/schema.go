package api

import (
	"net/http"
)

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.SchemaProvider == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema dependency is not configured", false, nil)
		return
	}
	if err := requireRole(r, "sql_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	schemaText, err := deps.SchemaProvider.FetchSchema(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"schema": schemaText})
}
