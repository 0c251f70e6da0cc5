package nl2sql

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/sqlgate/sqlgate/internal/schema"
)

var (
	jsonBlockRe = regexp.MustCompile(`\{[\s\S]*\}`)
	sqlFenceRe  = regexp.MustCompile("(?i)```sql\\s*([\\s\\S]*?)\\s*```")
	wordRe      = regexp.MustCompile(`[A-Za-z_][A-Za-z_0-9]{2,}`)
)

// parsePlan extracts the structured plan from raw model output. The model is
// instructed to return JSON, but output may carry prose or fences around it.
func parsePlan(content string) (Plan, error) {
	raw := extractJSON(content)
	if raw == nil {
		return Plan{}, fmt.Errorf("model did not return JSON")
	}

	var plan Plan
	if err := json.Unmarshal(raw, &plan); err != nil {
		return Plan{}, fmt.Errorf("model did not return JSON")
	}
	switch plan.Kind {
	case PlanChat, PlanClarify, PlanSQL:
	default:
		return Plan{}, fmt.Errorf("model JSON missing required fields")
	}
	plan.Message = strings.TrimSpace(plan.Message)
	plan.SQL = strings.TrimSpace(plan.SQL)
	return plan, nil
}

func extractJSON(text string) []byte {
	match := jsonBlockRe.FindString(text)
	if match == "" {
		return nil
	}
	return []byte(match)
}

// ExtractSQL pulls a SQL string out of a model reply: a ```sql fence first,
// then a JSON object with a "sql" field, then the raw text as-is.
func ExtractSQL(text string) string {
	if m := sqlFenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	if raw := extractJSON(text); raw != nil {
		var envelope struct {
			SQL string `json:"sql"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && envelope.SQL != "" {
			return strings.TrimSpace(envelope.SQL)
		}
	}
	return strings.TrimSpace(text)
}

// formatShortHistory renders the last maxUserPrompts user turns, each with
// the assistant reply that followed it, oldest first.
func formatShortHistory(history []Turn, maxUserPrompts int) string {
	if len(history) == 0 || maxUserPrompts < 1 {
		return ""
	}

	type pair struct {
		user      string
		assistant string
	}
	var pairs []pair
	lastAssistant := ""
	for i := len(history) - 1; i >= 0; i-- {
		role := strings.ToLower(strings.TrimSpace(history[i].Role))
		content := strings.TrimSpace(history[i].Content)
		if role == "" || content == "" {
			continue
		}
		if role == "assistant" && lastAssistant == "" {
			lastAssistant = content
			continue
		}
		if role == "user" {
			pairs = append(pairs, pair{user: content, assistant: lastAssistant})
			lastAssistant = ""
			if len(pairs) >= maxUserPrompts {
				break
			}
		}
	}

	var lines []string
	for i := len(pairs) - 1; i >= 0; i-- {
		lines = append(lines, "USER: "+pairs[i].user)
		if pairs[i].assistant != "" {
			lines = append(lines, "ASSISTANT: "+pairs[i].assistant)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// typoHints fuzzy-matches words from the question against schema identifiers
// so the planner can correct obvious misspellings before generating SQL.
func typoHints(question string, identifiers []string) string {
	words := wordRe.FindAllString(question, -1)
	unique := map[string]struct{}{}
	for _, w := range words {
		unique[w] = struct{}{}
	}
	ordered := make([]string, 0, len(unique))
	for w := range unique {
		ordered = append(ordered, w)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if len(ordered[i]) != len(ordered[j]) {
			return len(ordered[i]) > len(ordered[j])
		}
		return ordered[i] < ordered[j]
	})
	if len(ordered) > 40 {
		ordered = ordered[:40]
	}

	var hints []string
	for _, word := range ordered {
		for _, match := range schema.CloseMatches(word, identifiers, 2, 0.84) {
			if !strings.EqualFold(match, word) {
				hints = append(hints, word+" -> "+match)
			}
		}
	}
	if len(hints) > 10 {
		hints = hints[:10]
	}
	return strings.Join(hints, "\n")
}
