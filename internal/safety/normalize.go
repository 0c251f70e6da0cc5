package safety

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	selectTopRe = regexp.MustCompile(`(?i)^\s*select\s+(distinct\s+)?top\s*\(?\s*(\d+)\s*\)?\s+`)
	limitRe     = regexp.MustCompile(`(?i)\blimit\s+\d+\b`)
	setOpRe     = regexp.MustCompile(`(?i)\b(union(\s+all)?|intersect|except)\b`)

	// RE2 has no lookahead, so the set-op keyword is captured and restored
	// instead of asserted.
	limitBeforeSetOpRe = regexp.MustCompile(`(?i)\blimit\s+\d+\s+(union\b|intersect\b|except\b)`)
	trailingLimitRe    = regexp.MustCompile(`(?i)\blimit\s+\d+\s*$`)
)

// Normalize rewrites non-PostgreSQL idioms into canonical form:
// SELECT TOP n becomes a LIMIT clause, and a LIMIT placed just before a set
// operation keyword (limiting only the first branch, almost never what the
// model meant) is stripped.
func Normalize(sql string) string {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return sql
	}
	sql = trimTrailingSemicolons(sql)

	if m := selectTopRe.FindStringSubmatchIndex(sql); m != nil {
		distinct := ""
		if m[2] >= 0 {
			distinct = sql[m[2]:m[3]]
		}
		n := sql[m[4]:m[5]]
		rest := sql[m[1]:]
		rebuilt := strings.TrimSpace("SELECT " + distinct + rest)
		if !limitRe.MatchString(rebuilt) {
			rebuilt = rebuilt + "\nLIMIT " + n
		}
		return rebuilt
	}

	if setOpRe.MatchString(sql) {
		sql = strings.TrimSpace(limitBeforeSetOpRe.ReplaceAllString(sql, "${1}"))
	}
	return sql
}

// ApplyLimit appends LIMIT maxRows unless the statement already carries a
// limit. For set-operation statements only a trailing LIMIT counts; a limit
// scoped to the first branch is stripped before the new one is appended.
func ApplyLimit(sql string, maxRows int) string {
	if maxRows < 1 {
		maxRows = 1
	}
	normalized := trimTrailingSemicolons(strings.TrimSpace(StripComments(sql)))

	if setOpRe.MatchString(normalized) {
		if trailingLimitRe.MatchString(normalized) {
			return normalized
		}
		normalized = strings.TrimSpace(limitBeforeSetOpRe.ReplaceAllString(normalized, "${1}"))
		return normalized + "\nLIMIT " + strconv.Itoa(maxRows)
	}

	if limitRe.MatchString(normalized) {
		return normalized
	}
	return normalized + "\nLIMIT " + strconv.Itoa(maxRows)
}

func trimTrailingSemicolons(sql string) string {
	trimmed := strings.TrimSpace(sql)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}
