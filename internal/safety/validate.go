package safety

import (
	"regexp"
	"strings"
)

const sessionControlKeywords = `drop|alter|truncate|grant|revoke|copy|vacuum|analyze|` +
	`execute|prepare|deallocate|call|do|refresh|cluster|reindex|comment|security|` +
	`set\s+role|set\s+session|set\s+transaction|listen|notify|load`

var (
	forbiddenReadOnly      = regexp.MustCompile(`(?i)\b(insert|update|delete|create|` + sessionControlKeywords + `)\b`)
	forbiddenWriteNoDelete = regexp.MustCompile(`(?i)\b(delete|` + sessionControlKeywords + `)\b`)
	forbiddenWriteFull     = regexp.MustCompile(`(?i)\b(` + sessionControlKeywords + `)\b`)

	whereRe         = regexp.MustCompile(`(?i)\bwhere\b`)
	createAllowedRe = regexp.MustCompile(`(?i)^\s*create\s+(table|view|index)\b`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// Validate normalizes raw SQL, splits it into at most maxStatements
// statements, and applies the mode policy to each. It returns the accepted
// statements in order, or an *UnsafeSQLError naming the violated rule.
// The function is pure: same input and mode, same decision.
func Validate(sql string, mode Mode, maxStatements int) ([]string, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, unsafeErr("Empty SQL")
	}
	if maxStatements < 1 {
		maxStatements = 1
	}

	statements, err := Split(Normalize(sql), maxStatements)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(statements))
	for _, stmt := range statements {
		kind := Classify(stmt)
		masked := Mask(stmt)

		switch mode {
		case ModeReadOnly:
			if kind != KindSelect && kind != KindWith {
				return nil, unsafeErr("Only SELECT queries are allowed")
			}
			if m := forbiddenReadOnly.FindString(masked); m != "" {
				return nil, unsafeErr("Query contains forbidden keyword: %s", formatMatch(m))
			}

		case ModeWriteNoDelete:
			switch kind {
			case KindSelect, KindWith, KindInsert, KindUpdate, KindCreate:
			default:
				return nil, unsafeErr("Only SELECT/WITH/INSERT/UPDATE/CREATE are allowed")
			}
			if m := forbiddenWriteNoDelete.FindString(masked); m != "" {
				return nil, unsafeErr("Query contains forbidden keyword: %s", formatMatch(m))
			}
			if kind == KindUpdate && !whereRe.MatchString(masked) {
				return nil, unsafeErr("UPDATE must include WHERE")
			}
			if kind == KindCreate && !createAllowedRe.MatchString(masked) {
				return nil, unsafeErr("Only CREATE TABLE/VIEW/INDEX are allowed")
			}

		case ModeWriteFull:
			switch kind {
			case KindSelect, KindWith, KindInsert, KindUpdate, KindDelete, KindCreate:
			default:
				return nil, unsafeErr("Only SELECT/WITH/INSERT/UPDATE/DELETE/CREATE are allowed")
			}
			if m := forbiddenWriteFull.FindString(masked); m != "" {
				return nil, unsafeErr("Query contains forbidden keyword: %s", formatMatch(m))
			}
			if (kind == KindUpdate || kind == KindDelete) && !whereRe.MatchString(masked) {
				return nil, unsafeErr("%s must include WHERE", strings.ToUpper(string(kind)))
			}
			if kind == KindCreate && !createAllowedRe.MatchString(masked) {
				return nil, unsafeErr("Only CREATE TABLE/VIEW/INDEX are allowed")
			}

		default:
			return nil, unsafeErr("Unknown SQL mode")
		}

		out = append(out, stmt)
	}
	return out, nil
}

func formatMatch(match string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(match, " "))
	if cleaned == "" {
		return "UNKNOWN"
	}
	return cleaned
}
