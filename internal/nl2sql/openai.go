package nl2sql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sqlgate/sqlgate/internal/safety"
	"github.com/sqlgate/sqlgate/internal/schema"
)

type OpenAIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIPlanner asks any OpenAI-compatible chat-completions endpoint for a
// JSON plan.
type OpenAIPlanner struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func NewOpenAIPlanner(cfg OpenAIConfig) (*OpenAIPlanner, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenAIPlanner{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:      strings.TrimSpace(cfg.APIKey),
		model:       model,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (p *OpenAIPlanner) Plan(ctx context.Context, req Request) (Plan, error) {
	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt(req.Mode, req.MaxStatements)},
			{"role": "user", "content": userPrompt(req)},
		},
		"temperature": p.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Plan{}, fmt.Errorf("marshal chat payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Plan{}, fmt.Errorf("build chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Plan{}, fmt.Errorf("request chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Plan{}, fmt.Errorf("read chat response body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return Plan{}, fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, string(rawRespBody))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return Plan{}, fmt.Errorf("decode chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Plan{}, fmt.Errorf("empty chat completion choices")
	}

	return parsePlan(parsed.Choices[0].Message.Content)
}

const maxHistoryUserTurns = 5

func systemPrompt(mode safety.Mode, maxStatements int) string {
	if maxStatements < 1 {
		maxStatements = 1
	}

	modeRules := fmt.Sprintf(
		"SQL mode: READ ONLY.\n"+
			"- Output up to %d statement(s), separated by semicolons.\n"+
			"- Allowed: SELECT or WITH.\n"+
			"- Forbidden: any write/delete/ddl operations.\n",
		maxStatements,
	)
	switch mode {
	case safety.ModeWriteNoDelete:
		modeRules = fmt.Sprintf(
			"SQL mode: WRITE (NO DELETE).\n"+
				"- Output up to %d statement(s), separated by semicolons.\n"+
				"- Allowed: SELECT/WITH, INSERT, UPDATE, and CREATE TABLE/VIEW/INDEX.\n"+
				"- Forbidden: DELETE, DROP, ALTER, TRUNCATE, GRANT/REVOKE, COPY, VACUUM, functions/procedures.\n"+
				"- Prefer safe changes: use WHERE clauses for UPDATE; use RETURNING * when helpful.\n",
			maxStatements,
		)
	case safety.ModeWriteFull:
		modeRules = fmt.Sprintf(
			"SQL mode: WRITE (FULL CRUD).\n"+
				"- Output up to %d statement(s), separated by semicolons.\n"+
				"- Allowed: SELECT/WITH, INSERT, UPDATE, DELETE, and CREATE TABLE/VIEW/INDEX.\n"+
				"- Forbidden: DROP, ALTER, TRUNCATE, GRANT/REVOKE, COPY, VACUUM, functions/procedures.\n"+
				"- Prefer safe changes: use WHERE clauses for UPDATE/DELETE; use RETURNING * when helpful.\n",
			maxStatements,
		)
	}

	return "You are a friendly chatbot for a PostgreSQL database.\n" +
		"You must ALWAYS return valid JSON.\n" +
		"Output schema:\n" +
		"- kind: one of \"chat\" | \"clarify\" | \"sql\"\n" +
		"- message: string (friendly response or clarification question)\n" +
		"- sql: string (only when kind=\"sql\", otherwise empty)\n" +
		"\n" +
		"Decide what to do:\n" +
		"- If the user is greeting or making small talk, respond normally with kind=\"chat\".\n" +
		"- If the user asks to run SQL on the DB, use kind=\"sql\" and put up to the allowed number of PostgreSQL statements in sql.\n" +
		"- If the user asks INSERT/UPDATE/DELETE but provides incomplete info (missing table, missing values, missing WHERE), ask follow-up with kind=\"clarify\" and sql=\"\".\n" +
		"- If the user refers to a wrong table/column name, respond with kind=\"clarify\" and ask what they meant.\n" +
		"\n" +
		"SQL rules:\n" +
		modeRules +
		"General rules:\n" +
		"- Use only tables/columns that exist in the provided schema and use the exact names.\n" +
		"- If the user has typos, infer intended table/column names from the schema.\n" +
		"- Prefer explicit table qualifiers for ambiguous columns.\n" +
		"- For text filters, use case/space-tolerant matching (LOWER(TRIM(col))).\n" +
		"- For division, avoid divide-by-zero using NULLIF(denominator, 0).\n" +
		"- If the user asks to list all tables/columns, query information_schema instead of guessing names.\n" +
		"- Never use SQL Server syntax like TOP; in PostgreSQL use LIMIT.\n" +
		"- If you must use UNION/UNION ALL and need per-branch LIMIT, wrap each branch in parentheses.\n" +
		"- For INSERT/UPDATE/DELETE, prefer RETURNING * so the app can show affected rows.\n" +
		"- Keep it efficient; add LIMIT for list queries.\n"
}

func userPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("SCHEMA:\n" + req.SchemaText + "\n\n")

	identifiers := schema.Parse(req.SchemaText).Identifiers()
	if hints := typoHints(req.Question, identifiers); hints != "" {
		b.WriteString("POSSIBLE TYPO FIXES:\n" + hints + "\n\n")
	}
	if history := formatShortHistory(req.History, maxHistoryUserTurns); history != "" {
		b.WriteString("CHAT HISTORY:\n" + history + "\n\n")
	}
	b.WriteString("QUESTION:\n" + strings.TrimSpace(req.Question) + "\n")
	return b.String()
}
