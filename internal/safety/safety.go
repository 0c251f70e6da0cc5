// Package safety decides whether model-generated SQL may run. It is a pure
// decision layer: splitting, literal masking, normalization, and mode policy
// enforcement over untrusted SQL text. Nothing here touches the database.
package safety

import (
	"fmt"
	"strings"
)

// Mode bounds which statement kinds and keywords a validation call permits.
type Mode string

const (
	ModeReadOnly      Mode = "read_only"
	ModeWriteNoDelete Mode = "write_no_delete"
	ModeWriteFull     Mode = "write_full"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeReadOnly, ModeWriteNoDelete, ModeWriteFull:
		return true
	default:
		return false
	}
}

// Kind classifies a statement by its leading keyword.
type Kind string

const (
	KindSelect Kind = "select"
	KindWith   Kind = "with"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
	KindCreate Kind = "create"
	KindOther  Kind = "other"
)

// Classify derives the statement kind from the leading keyword.
func Classify(sql string) Kind {
	head := strings.ToLower(strings.TrimLeft(sql, " \t\r\n"))
	switch {
	case strings.HasPrefix(head, "with"):
		return KindWith
	case strings.HasPrefix(head, "select"):
		return KindSelect
	case strings.HasPrefix(head, "insert"):
		return KindInsert
	case strings.HasPrefix(head, "update"):
		return KindUpdate
	case strings.HasPrefix(head, "create"):
		return KindCreate
	case strings.HasPrefix(head, "delete"):
		return KindDelete
	default:
		return KindOther
	}
}

// UnsafeSQLError is the single validation failure kind. Callers distinguish
// outcomes by message text only.
type UnsafeSQLError struct {
	Message string
}

func (e *UnsafeSQLError) Error() string {
	return e.Message
}

func unsafeErr(format string, args ...any) *UnsafeSQLError {
	return &UnsafeSQLError{Message: fmt.Sprintf(format, args...)}
}
