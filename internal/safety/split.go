package safety

import "strings"

// Split breaks raw SQL into top-level statements, honoring quote, comment,
// and dollar-quote boundaries so a semicolon inside a literal is never a
// separator. Each statement is trimmed with trailing semicolons removed.
func Split(sql string, maxStatements int) ([]string, error) {
	if maxStatements < 1 {
		maxStatements = 1
	}

	var statements []string
	start := 0
	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = lineCommentEnd(sql, i)
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = blockCommentEnd(sql, i)
		case c == '\'':
			i = singleQuoteEnd(sql, i)
		case c == '"':
			i = doubleQuoteEnd(sql, i)
		case c == '$':
			if tag, ok := dollarTag(sql, i); ok {
				i = dollarQuoteEnd(sql, i+len(tag), tag)
			} else {
				i++
			}
		case c == ';':
			appendStatement(&statements, sql[start:i])
			i++
			start = i
		default:
			i++
		}
	}
	appendStatement(&statements, sql[start:])

	if len(statements) == 0 {
		return nil, unsafeErr("Empty SQL")
	}
	if len(statements) > maxStatements {
		return nil, unsafeErr("Too many SQL statements (max %d)", maxStatements)
	}
	return statements, nil
}

func appendStatement(statements *[]string, raw string) {
	stmt := strings.TrimSpace(raw)
	stmt = strings.TrimSpace(strings.TrimRight(stmt, ";"))
	if stmt == "" {
		return
	}
	*statements = append(*statements, stmt)
}
