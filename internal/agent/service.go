// Package agent orchestrates a question through the full pipeline: schema
// fetch, planning, safety validation, schema-usage checks, row limiting, and
// optional execution.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sqlgate/sqlgate/internal/nl2sql"
	"github.com/sqlgate/sqlgate/internal/observability"
	"github.com/sqlgate/sqlgate/internal/postgres"
	"github.com/sqlgate/sqlgate/internal/safety"
	"github.com/sqlgate/sqlgate/internal/schema"
)

type SchemaProvider interface {
	FetchSchema(ctx context.Context) (string, error)
}

type SchemaProviderFunc func(ctx context.Context) (string, error)

func (f SchemaProviderFunc) FetchSchema(ctx context.Context) (string, error) {
	return f(ctx)
}

type Executor interface {
	ExecuteBatch(ctx context.Context, statements []string, timeout time.Duration) ([]postgres.QueryResult, error)
}

type Config struct {
	Mode             safety.Mode
	MaxStatements    int
	MaxRows          int
	StatementTimeout time.Duration
}

type Service struct {
	schemaProvider SchemaProvider
	executor       Executor
	planner        nl2sql.Planner
	cfg            Config
	logger         *slog.Logger
}

// NewService wires the pipeline. The planner and executor may be nil; a nil
// planner limits the service to raw-SQL requests, a nil executor limits it to
// validation-only requests.
func NewService(schemaProvider SchemaProvider, executor Executor, planner nl2sql.Planner, cfg Config, logger *slog.Logger) (*Service, error) {
	if schemaProvider == nil {
		return nil, errors.New("schema provider is required")
	}
	if !cfg.Mode.Valid() {
		return nil, fmt.Errorf("invalid sql mode %q", cfg.Mode)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		schemaProvider: schemaProvider,
		executor:       executor,
		planner:        planner,
		cfg:            cfg,
		logger:         logger,
	}, nil
}

type Request struct {
	Question string
	History  []nl2sql.Turn
	// Mode overrides the configured mode when set.
	Mode        safety.Mode
	Execute     bool
	SQLOverride string
}

type Response struct {
	Kind       string                 `json:"kind"`
	SQL        string                 `json:"sql"`
	Statements []string               `json:"sql_statements"`
	Results    []postgres.QueryResult `json:"results,omitempty"`
	Answer     string                 `json:"answer"`
}

// Answer runs a question (or raw SQL override) through plan, validate,
// schema check, limit, and execute. Chat and clarify plans short-circuit
// before validation; unsafe SQL is returned as an error except for the
// missing-WHERE case on preview requests, which becomes a clarification.
func (s *Service) Answer(ctx context.Context, req Request) (Response, error) {
	mode := req.Mode
	if mode == "" {
		mode = s.cfg.Mode
	}

	schemaText, err := s.schemaProvider.FetchSchema(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("fetch schema: %w", err)
	}

	rawSQL := strings.TrimSpace(req.SQLOverride)
	message := ""
	if rawSQL == "" {
		if s.planner == nil {
			return Response{}, errors.New("no planner configured and no sql provided")
		}
		plan, err := s.planner.Plan(ctx, nl2sql.Request{
			Question:      req.Question,
			SchemaText:    schemaText,
			History:       req.History,
			Mode:          mode,
			MaxStatements: s.cfg.MaxStatements,
		})
		if err != nil {
			return Response{}, fmt.Errorf("generate plan: %w", err)
		}
		observability.ObservePlan(plan.Kind)
		message = strings.TrimSpace(plan.Message)
		rawSQL = strings.TrimSpace(plan.SQL)

		if plan.Kind == nl2sql.PlanChat || plan.Kind == nl2sql.PlanClarify {
			if plan.Kind == nl2sql.PlanClarify {
				observability.IncrementClarification()
			}
			answer := message
			if answer == "" {
				answer = "OK."
			}
			return Response{Kind: plan.Kind, Statements: []string{}, Answer: answer}, nil
		}
		if rawSQL == "" {
			observability.IncrementClarification()
			answer := message
			if answer == "" {
				answer = "I need a bit more detail. Please clarify."
			}
			return Response{Kind: nl2sql.PlanClarify, Statements: []string{}, Answer: answer}, nil
		}
	}

	maxStatements := s.cfg.MaxStatements
	if maxStatements < 1 {
		maxStatements = 1
	}
	statements, err := safety.Validate(rawSQL, mode, maxStatements)
	if err != nil {
		observability.ObserveValidation(string(mode), false)
		var unsafe *safety.UnsafeSQLError
		if errors.As(err, &unsafe) && !req.Execute && req.SQLOverride == "" &&
			strings.Contains(unsafe.Message, "must include WHERE") {
			observability.IncrementClarification()
			return Response{
				Kind:       nl2sql.PlanClarify,
				Statements: []string{},
				Answer:     "For UPDATE/DELETE, a WHERE condition is required. Which record should be changed (e.g., id, name, city)?",
			}, nil
		}
		return Response{}, err
	}
	observability.ObserveValidation(string(mode), true)

	model := schema.Parse(schemaText)
	normalized := make([]string, 0, len(statements))
	kinds := make([]string, 0, len(statements))
	for _, stmt := range statements {
		if issue := schema.CheckUsage(stmt, model); issue != "" {
			observability.IncrementClarification()
			return Response{Kind: nl2sql.PlanClarify, Statements: []string{}, Answer: issue}, nil
		}
		kind := safety.Classify(stmt)
		if mode == safety.ModeReadOnly && (kind == safety.KindSelect || kind == safety.KindWith) {
			stmt = safety.ApplyLimit(stmt, s.cfg.MaxRows)
		}
		if mode != safety.ModeReadOnly && kind == safety.KindSelect {
			stmt = safety.ApplyLimit(stmt, s.cfg.MaxRows)
		}
		normalized = append(normalized, stmt)
		kinds = append(kinds, string(kind))
	}

	var results []postgres.QueryResult
	if req.Execute {
		if s.executor == nil {
			return Response{}, errors.New("execution requested but no executor configured")
		}
		start := time.Now()
		results, err = s.executor.ExecuteBatch(ctx, normalized, s.cfg.StatementTimeout)
		if err != nil {
			return Response{}, err
		}
		observability.ObserveExecution(kinds, time.Since(start))
		s.logger.InfoContext(ctx, "executed statements",
			slog.Int("count", len(normalized)),
			slog.String("mode", string(mode)),
		)
	}

	answer := s.composeAnswer(req.Execute, message, normalized, results)

	fullSQL := strings.Join(normalized, ";\n\n")
	if fullSQL != "" {
		fullSQL += ";"
	}
	return Response{
		Kind:       nl2sql.PlanSQL,
		SQL:        fullSQL,
		Statements: normalized,
		Results:    results,
		Answer:     answer,
	}, nil
}

func (s *Service) composeAnswer(executed bool, message string, statements []string, results []postgres.QueryResult) string {
	last := safety.Classify(statements[len(statements)-1])

	if !executed {
		if message != "" {
			return message
		}
		return "Here is the SQL I generated. Review it, then execute if needed."
	}

	if last == safety.KindSelect || last == safety.KindWith {
		if message != "" {
			return message
		}
		rows := 0
		if len(results) > 0 {
			rows = len(results[len(results)-1].Rows)
		}
		return fmt.Sprintf("Returned %d row(s).", rows)
	}

	var rowCount int64
	returned := 0
	if len(results) > 0 {
		lastResult := results[len(results)-1]
		rowCount = lastResult.RowCount
		returned = len(lastResult.Rows)
	}
	answer := message
	if answer == "" {
		answer = fmt.Sprintf("Executed %s (rowcount: %d).", strings.ToUpper(string(last)), rowCount)
	}
	if returned > 0 {
		answer = fmt.Sprintf("%s Returned %d row(s).", answer, returned)
	}
	return answer
}
