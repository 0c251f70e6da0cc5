package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sqlgate/sqlgate/internal/agent"
	"github.com/sqlgate/sqlgate/internal/auth"
	"github.com/sqlgate/sqlgate/internal/config"
	"github.com/sqlgate/sqlgate/internal/nl2sql"
	"github.com/sqlgate/sqlgate/internal/safety"
)

type askRequest struct {
	Question string        `json:"question"`
	History  []nl2sql.Turn `json:"history"`
	Mode     string        `json:"mode"`
	// SQL bypasses the planner and validates/executes the given text as-is.
	SQL     string `json:"sql"`
	Execute *bool  `json:"execute"`
}

func handleAsk(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Agent == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ASK_NOT_CONFIGURED", "ask dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "sql_reader"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request askRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid ask request body", false, map[string]any{"details": err.Error()})
		return
	}

	if strings.TrimSpace(request.Question) == "" && strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question or sql is required", false, nil)
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
	if mode != safety.ModeReadOnly {
		if err := requireRole(r, "sql_writer"); err != nil {
			writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
			return
		}
	}

	execute := true
	if request.Execute != nil {
		execute = *request.Execute
	}

	response, err := deps.Agent.Answer(r.Context(), agent.Request{
		Question:    request.Question,
		History:     request.History,
		Mode:        mode,
		Execute:     execute,
		SQLOverride: request.SQL,
	})
	if err != nil {
		var unsafe *safety.UnsafeSQLError
		switch {
		case errors.As(err, &unsafe):
			writeError(r.Context(), w, http.StatusBadRequest, "SQL_REJECTED", unsafe.Message, false, nil)
		case strings.Contains(err.Error(), "generate plan"):
			writeError(r.Context(), w, http.StatusBadGateway, "PLAN_FAILED", "failed to generate a plan", true, map[string]any{"details": err.Error()})
		default:
			writeError(r.Context(), w, http.StatusInternalServerError, "ASK_FAILED", "failed to answer question", true, map[string]any{"details": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, response)
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}
