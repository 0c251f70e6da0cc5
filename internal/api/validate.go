package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/observability"
	"github.com/sqlgate/sqlgate/internal/safety"
	"github.com/sqlgate/sqlgate/internal/schema"
)

type validateRequest struct {
	SQL           string `json:"sql"`
	Mode          string `json:"mode"`
	MaxStatements int    `json:"max_statements"`
	CheckSchema   bool   `json:"check_schema"`
}

type validateResponse struct {
	Mode          string   `json:"mode"`
	Statements    []string `json:"statements"`
	Clarification string   `json:"clarification,omitempty"`
}

// handleValidate runs the safety engine without touching the database,
// except for the optional schema-usage check.
func handleValidate(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if err := requireRole(r, "sql_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request validateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validate request body", false, map[string]any{"details": err.Error()})
		return
	}

	mode := safety.Mode(strings.TrimSpace(request.Mode))
	if mode == "" {
		mode = safety.Mode(cfg.SQL.Mode)
	}
	if !mode.Valid() {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MODE", fmt.Sprintf("unknown sql mode %q", request.Mode), false, nil)
		return
	}

	maxStatements := request.MaxStatements
	if maxStatements < 1 {
		maxStatements = cfg.SQL.MaxStatements
	}

	statements, err := safety.Validate(request.SQL, mode, maxStatements)
	if err != nil {
		observability.ObserveValidation(string(mode), false)
		var unsafe *safety.UnsafeSQLError
		if errors.As(err, &unsafe) {
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_REJECTED", unsafe.Message, false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "VALIDATE_FAILED", err.Error(), true, nil)
		return
	}
	observability.ObserveValidation(string(mode), true)

	response := validateResponse{Mode: string(mode), Statements: statements}
	if request.CheckSchema {
		if deps.SchemaProvider == nil {
			writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema dependency is not configured", false, nil)
			return
		}
		schemaText, err := deps.SchemaProvider.FetchSchema(r.Context())
		if err != nil {
			writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_FETCH_FAILED", "failed to load schema", true, map[string]any{"details": err.Error()})
			return
		}
		model := schema.Parse(schemaText)
		for _, stmt := range statements {
			if issue := schema.CheckUsage(stmt, model); issue != "" {
				observability.IncrementClarification()
				response.Clarification = issue
				break
			}
		}
	}

	writeJSON(w, http.StatusOK, response)
}
