// Package schema parses the textual schema description produced by database
// introspection and checks that a statement only references tables and
// columns that actually exist, suggesting close matches when it does not.
package schema

import (
	"regexp"
	"sort"
	"strings"
)

// Model is the parsed form of the schema text: fully-qualified table names,
// per-table column sets, and a base-name index populated only when a base
// name is unambiguous across all schemas present.
type Model struct {
	Tables    map[string]struct{}
	Columns   map[string]map[string]struct{}
	Basenames map[string]string
}

var columnLineRe = regexp.MustCompile(`-\s*([A-Za-z_][A-Za-z_0-9]*)\s*\(`)

// Parse reads the line-oriented schema format: a "TABLE <schema>.<table>"
// line opens a table block, following "- <column> (<type>)" lines add
// columns to it.
func Parse(schemaText string) Model {
	model := Model{
		Tables:    map[string]struct{}{},
		Columns:   map[string]map[string]struct{}{},
		Basenames: map[string]string{},
	}
	basenameCounts := map[string]int{}

	currentTable := ""
	for _, line := range strings.Split(schemaText, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "TABLE "):
			currentTable = strings.TrimSpace(strings.TrimPrefix(trimmed, "TABLE "))
			if currentTable == "" {
				continue
			}
			if _, seen := model.Tables[currentTable]; !seen {
				model.Tables[currentTable] = struct{}{}
				model.Columns[currentTable] = map[string]struct{}{}
				basenameCounts[baseName(currentTable)]++
			}
		case currentTable != "" && strings.HasPrefix(trimmed, "- "):
			if m := columnLineRe.FindStringSubmatch(trimmed); m != nil {
				model.Columns[currentTable][m[1]] = struct{}{}
			}
		}
	}

	for table := range model.Tables {
		base := baseName(table)
		if basenameCounts[base] == 1 {
			model.Basenames[base] = table
		}
	}
	return model
}

// Identifiers returns the sorted set of table names and column names known
// to the model. Used for typo hints in planner prompts.
func (m Model) Identifiers() []string {
	seen := map[string]struct{}{}
	for table := range m.Tables {
		seen[table] = struct{}{}
	}
	for _, cols := range m.Columns {
		for col := range cols {
			seen[col] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (m Model) sortedTables() []string {
	out := make([]string, 0, len(m.Tables))
	for table := range m.Tables {
		out = append(out, table)
	}
	sort.Strings(out)
	return out
}

func sortedColumns(cols map[string]struct{}) []string {
	out := make([]string, 0, len(cols))
	for col := range cols {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

func baseName(table string) string {
	if idx := strings.LastIndex(table, "."); idx >= 0 {
		return table[idx+1:]
	}
	return table
}
