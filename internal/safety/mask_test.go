package safety

import (
	"strings"
	"testing"
)

func TestMaskReplacesSingleQuotedLiterals(t *testing.T) {
	got := Mask(`SELECT * FROM t WHERE name = 'DROP TABLE'`)
	if strings.Contains(got, "DROP") {
		t.Fatalf("Mask() leaked literal content: %q", got)
	}
	if !strings.Contains(got, "''") {
		t.Fatalf("Mask() = %q, want empty quoted placeholder", got)
	}
}

func TestMaskHandlesEscapedQuoteDoubling(t *testing.T) {
	got := Mask(`SELECT 'it''s a delete' AS v`)
	if strings.Contains(got, "delete") {
		t.Fatalf("Mask() leaked content past doubled quote: %q", got)
	}
}

func TestMaskEscapeStringPrefix(t *testing.T) {
	got := Mask(`SELECT E'drop\n' AS v`)
	if strings.Contains(strings.ToLower(got), "drop") {
		t.Fatalf("Mask() leaked escape-string content: %q", got)
	}
	if strings.Contains(got, "E''") {
		t.Fatalf("Mask() kept escape prefix: %q", got)
	}
}

func TestMaskDollarQuotedBlocks(t *testing.T) {
	cases := []string{
		`SELECT $$drop table x$$ AS v`,
		`SELECT $fn$truncate y$fn$ AS v`,
	}
	for _, sql := range cases {
		got := Mask(sql)
		if strings.Contains(got, "drop") || strings.Contains(got, "truncate") {
			t.Fatalf("Mask(%q) leaked dollar-quoted content: %q", sql, got)
		}
	}
}

func TestMaskKeepsDollarParameters(t *testing.T) {
	got := Mask(`SELECT * FROM t WHERE id = $1`)
	if !strings.Contains(got, "$1") {
		t.Fatalf("Mask() mangled positional parameter: %q", got)
	}
}

func TestMaskStripsComments(t *testing.T) {
	got := Mask("SELECT 1 -- drop table t\n+ 2 /* truncate u */")
	if strings.Contains(got, "drop") || strings.Contains(got, "truncate") {
		t.Fatalf("Mask() leaked comment content: %q", got)
	}
}

func TestMaskDoubleQuotedIdentifiers(t *testing.T) {
	got := Mask(`SELECT "weird;col" FROM t`)
	if strings.Contains(got, "weird") {
		t.Fatalf("Mask() leaked quoted identifier: %q", got)
	}
	if !strings.Contains(got, `""`) {
		t.Fatalf("Mask() = %q, want empty quoted identifier placeholder", got)
	}
}

func TestStripCommentsKeepsLiterals(t *testing.T) {
	got := StripComments("SELECT 'a -- b' /* c */ FROM t")
	if !strings.Contains(got, "'a -- b'") {
		t.Fatalf("StripComments() damaged literal: %q", got)
	}
	if strings.Contains(got, "c */") {
		t.Fatalf("StripComments() kept block comment: %q", got)
	}
}
