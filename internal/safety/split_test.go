package safety

import (
	"errors"
	"strings"
	"testing"
)

func TestSplitRespectsStatementCeiling(t *testing.T) {
	_, err := Split("SELECT 1; SELECT 2; SELECT 3;", 2)
	if err == nil {
		t.Fatal("expected too-many-statements error")
	}
	var unsafe *UnsafeSQLError
	if !errors.As(err, &unsafe) {
		t.Fatalf("error type = %T", err)
	}
	if !strings.Contains(unsafe.Message, "Too many SQL statements (max 2)") {
		t.Fatalf("message = %q", unsafe.Message)
	}

	statements, err := Split("SELECT 1; SELECT 2;", 2)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(statements) != 2 {
		t.Fatalf("statement count = %d, want 2", len(statements))
	}
	if statements[0] != "SELECT 1" || statements[1] != "SELECT 2" {
		t.Fatalf("statements = %q", statements)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	for _, sql := range []string{"", "   ", ";;", " ; \n ; "} {
		_, err := Split(sql, 1)
		if err == nil {
			t.Fatalf("Split(%q) expected Empty SQL error", sql)
		}
		if err.Error() != "Empty SQL" {
			t.Fatalf("Split(%q) error = %q", sql, err.Error())
		}
	}
}

func TestSplitSemicolonInsideLiteral(t *testing.T) {
	statements, err := Split(`SELECT 'a;b' AS v`, 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(statements))
	}
	if statements[0] != `SELECT 'a;b' AS v` {
		t.Fatalf("statement = %q", statements[0])
	}
}

func TestSplitSemicolonInsideDollarQuote(t *testing.T) {
	statements, err := Split(`SELECT $$x; y$$ AS v`, 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(statements))
	}
}

func TestSplitSemicolonInsideComment(t *testing.T) {
	statements, err := Split("SELECT 1 -- a; b\n+ 2", 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(statements) != 1 {
		t.Fatalf("statement count = %d, want 1", len(statements))
	}
}

func TestSplitStripsTrailingSemicolonAndWhitespace(t *testing.T) {
	statements, err := Split("  SELECT 1 ;\n", 1)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if statements[0] != "SELECT 1" {
		t.Fatalf("statement = %q", statements[0])
	}
}
