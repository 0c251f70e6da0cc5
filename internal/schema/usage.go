package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sqlgate/sqlgate/internal/safety"
)

const (
	suggestionCount  = 3
	suggestionCutoff = 0.72
)

var (
	fromJoinRe = regexp.MustCompile(`(?i)\b(from|join)\s+([A-Za-z_][A-Za-z_0-9\.]*)`)
	aliasRe    = regexp.MustCompile(`(?i)^\s+(?:as\s+)?([A-Za-z_][A-Za-z_0-9]*)\b`)
	aliasColRe = regexp.MustCompile(`\b([A-Za-z_][A-Za-z_0-9]*)\.([A-Za-z_][A-Za-z_0-9]*)\b`)
)

// Words that can directly follow a table reference without being an alias.
var reservedAfterTable = map[string]struct{}{
	"on": {}, "using": {}, "where": {}, "join": {}, "left": {}, "right": {},
	"inner": {}, "full": {}, "cross": {}, "group": {}, "order": {}, "limit": {},
	"union": {}, "intersect": {}, "except": {}, "having": {}, "window": {},
}

// CheckUsage scans one validated statement against the schema model. The
// returned string is empty when every table and column reference resolves;
// otherwise it is a human-readable clarification, a soft outcome the caller
// relays to the user instead of failing hard.
func CheckUsage(sql string, model Model) string {
	masked := safety.Mask(sql)
	aliases := map[string]string{}

	for _, m := range fromJoinRe.FindAllStringSubmatchIndex(masked, -1) {
		token := masked[m[4]:m[5]]
		resolved, ok := resolveTable(token, model)
		if !ok {
			suggestions := CloseMatches(token, model.sortedTables(), suggestionCount, suggestionCutoff)
			if len(suggestions) > 0 {
				return fmt.Sprintf("I couldn't find table '%s'. Did you mean: %s?", token, strings.Join(suggestions, ", "))
			}
			return fmt.Sprintf("I couldn't find table '%s'. Please use an exact table name from the schema.", token)
		}

		tail := masked[m[1]:]
		if am := aliasRe.FindStringSubmatch(tail); am != nil {
			alias := am[1]
			if _, reserved := reservedAfterTable[strings.ToLower(alias)]; !reserved {
				aliases[alias] = resolved
			}
		}
		// the bare base name always works as a fallback qualifier
		if base := baseName(resolved); aliases[base] == "" {
			aliases[base] = resolved
		}
	}

	for _, m := range aliasColRe.FindAllStringSubmatch(masked, -1) {
		alias, column := m[1], m[2]
		table := aliases[alias]
		if table == "" || isSystemRelation(table) {
			continue
		}
		cols := model.Columns[table]
		if _, ok := cols[column]; ok {
			continue
		}
		suggestions := CloseMatches(column, sortedColumns(cols), suggestionCount, suggestionCutoff)
		if len(suggestions) > 0 {
			return fmt.Sprintf("Column '%s' does not exist on '%s'. Did you mean: %s?", column, table, strings.Join(suggestions, ", "))
		}
		return fmt.Sprintf("Column '%s' does not exist on '%s'. Please use an exact column name from the schema.", column, table)
	}

	return ""
}

func resolveTable(name string, model Model) (string, bool) {
	raw := strings.Trim(strings.TrimSpace(name), `"`)
	if raw == "" {
		return "", false
	}
	if isSystemRelation(raw) {
		return raw, true
	}
	if _, ok := model.Tables[raw]; ok {
		return raw, true
	}
	if !strings.Contains(raw, ".") {
		if resolved, ok := model.Basenames[raw]; ok {
			return resolved, true
		}
	}
	return "", false
}

func isSystemRelation(name string) bool {
	n := strings.ToLower(strings.Trim(strings.TrimSpace(name), `"`))
	return strings.HasPrefix(n, "information_schema.") || strings.HasPrefix(n, "pg_catalog.")
}
