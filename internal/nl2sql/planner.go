// Package nl2sql turns a natural-language question into a plan: either a
// conversational reply, a clarification request, or candidate SQL. The SQL a
// planner returns is untrusted and must go through the safety engine before
// it touches the database.
package nl2sql

import (
	"context"

	"github.com/sqlgate/sqlgate/internal/safety"
)

const (
	PlanChat    = "chat"
	PlanClarify = "clarify"
	PlanSQL     = "sql"
)

type Plan struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	SQL     string `json:"sql"`
}

type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Request struct {
	Question      string
	SchemaText    string
	History       []Turn
	Mode          safety.Mode
	MaxStatements int
}

type Planner interface {
	Plan(ctx context.Context, req Request) (Plan, error)
}
