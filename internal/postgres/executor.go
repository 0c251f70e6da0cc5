package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/sqlgate/sqlgate/internal/safety"
)

type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// QueryResult carries one statement's outcome: column names and row values
// for row-returning statements, affected-row count for the rest.
type QueryResult struct {
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int64    `json:"rowcount"`
}

var returningRe = regexp.MustCompile(`(?i)\breturning\b`)

// ExecuteBatch runs validated statements in order on a single session with
// statement_timeout applied, so a runaway query cannot hold the connection.
// All statements share the session; a failure aborts the remainder.
func (c *Client) ExecuteBatch(ctx context.Context, statements []string, timeout time.Duration) ([]QueryResult, error) {
	if len(statements) == 0 {
		return nil, fmt.Errorf("empty statement batch")
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if timeout > 0 {
		if _, err := conn.ExecContext(ctx, fmt.Sprintf("SET statement_timeout TO '%dms'", timeout.Milliseconds())); err != nil {
			return nil, fmt.Errorf("set statement timeout: %w", err)
		}
	}

	results := make([]QueryResult, 0, len(statements))
	for i, stmt := range statements {
		result, err := executeOne(ctx, conn, stmt)
		if err != nil {
			return nil, fmt.Errorf("execute statement %d: %w", i+1, err)
		}
		results = append(results, result)
	}
	return results, nil
}

func executeOne(ctx context.Context, conn queryExecer, stmt string) (QueryResult, error) {
	if !returnsRows(stmt) {
		res, err := conn.ExecContext(ctx, stmt)
		if err != nil {
			return QueryResult{}, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			affected = 0
		}
		return QueryResult{Columns: []string{}, Rows: [][]any{}, RowCount: affected}, nil
	}

	rows, err := conn.QueryContext(ctx, stmt)
	if err != nil {
		return QueryResult{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, fmt.Errorf("read columns: %w", err)
	}

	collected := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return QueryResult{}, fmt.Errorf("scan row: %w", err)
		}
		collected = append(collected, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, fmt.Errorf("iterate rows: %w", err)
	}

	return QueryResult{Columns: columns, Rows: collected, RowCount: int64(len(collected))}, nil
}

// returnsRows reports whether a statement produces a result set: SELECT and
// WITH always, writes only when they carry a RETURNING clause.
func returnsRows(stmt string) bool {
	switch safety.Classify(stmt) {
	case safety.KindSelect, safety.KindWith:
		return true
	}
	return returningRe.MatchString(safety.Mask(stmt))
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
