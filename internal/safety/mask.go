package safety

import "strings"

// Mask strips comments and replaces string literals, dollar-quoted blocks,
// and quoted identifiers with empty placeholders. Keyword scanning downstream
// runs only on masked text so quoted content can never trip a policy rule.
// Execution always uses the original text, never a reconstruction of this.
//
// A character scanner is used rather than regexes: Go's RE2 has no
// backreferences, which dollar-quote tags ($tag$...$tag$) require.
func Mask(sql string) string {
	return scanSQL(sql, true)
}

// StripComments removes line and block comments while leaving literals and
// identifiers intact. Quote boundaries are respected.
func StripComments(sql string) string {
	return scanSQL(sql, false)
}

func scanSQL(sql string, maskLiterals bool) string {
	var out strings.Builder
	out.Grow(len(sql))

	i := 0
	for i < len(sql) {
		c := sql[i]
		switch {
		case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
			i = lineCommentEnd(sql, i)
			out.WriteByte(' ')
		case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
			i = blockCommentEnd(sql, i)
			out.WriteByte(' ')
		case c == '\'':
			end := singleQuoteEnd(sql, i)
			if maskLiterals {
				trimEscapePrefix(&out)
				out.WriteString("''")
			} else {
				out.WriteString(sql[i:end])
			}
			i = end
		case c == '"':
			end := doubleQuoteEnd(sql, i)
			if maskLiterals {
				out.WriteString(`""`)
			} else {
				out.WriteString(sql[i:end])
			}
			i = end
		case c == '$':
			tag, ok := dollarTag(sql, i)
			if !ok {
				out.WriteByte(c)
				i++
				continue
			}
			end := dollarQuoteEnd(sql, i+len(tag), tag)
			if maskLiterals {
				out.WriteString("''")
			} else {
				out.WriteString(sql[i:end])
			}
			i = end
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String()
}

func lineCommentEnd(sql string, i int) int {
	for i < len(sql) && sql[i] != '\n' {
		i++
	}
	return i
}

func blockCommentEnd(sql string, i int) int {
	i += 2
	for i+1 < len(sql) {
		if sql[i] == '*' && sql[i+1] == '/' {
			return i + 2
		}
		i++
	}
	return len(sql)
}

// singleQuoteEnd returns the index just past the closing quote, treating a
// doubled quote as an escaped quote. An unterminated literal runs to end of
// input.
func singleQuoteEnd(sql string, i int) int {
	i++
	for i < len(sql) {
		if sql[i] == '\'' {
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(sql)
}

func doubleQuoteEnd(sql string, i int) int {
	i++
	for i < len(sql) {
		if sql[i] == '"' {
			if i+1 < len(sql) && sql[i+1] == '"' {
				i += 2
				continue
			}
			return i + 1
		}
		i++
	}
	return len(sql)
}

// dollarTag parses a $$ or $tag$ opener at position i.
func dollarTag(sql string, i int) (string, bool) {
	j := i + 1
	for j < len(sql) && isTagChar(sql[j], j == i+1) {
		j++
	}
	if j < len(sql) && sql[j] == '$' {
		return sql[i : j+1], true
	}
	return "", false
}

func isTagChar(c byte, first bool) bool {
	if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_' {
		return true
	}
	if !first && c >= '0' && c <= '9' {
		return true
	}
	return false
}

func dollarQuoteEnd(sql string, i int, tag string) int {
	if idx := strings.Index(sql[i:], tag); idx >= 0 {
		return i + idx + len(tag)
	}
	return len(sql)
}

// trimEscapePrefix drops a trailing E/e escape-string marker so an escape
// string masks to an empty literal without the leading E.
func trimEscapePrefix(out *strings.Builder) {
	s := out.String()
	if len(s) == 0 {
		return
	}
	last := s[len(s)-1]
	if last != 'E' && last != 'e' {
		return
	}
	if len(s) >= 2 && isIdentChar(s[len(s)-2]) {
		return
	}
	trimmed := s[:len(s)-1]
	out.Reset()
	out.WriteString(trimmed)
}

func isIdentChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
