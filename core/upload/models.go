package upload

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind determines which row processor and header set applies to an upload.
type Kind string

const (
	KindStudents   Kind = "students"
	KindAttendance Kind = "attendance"
	KindIssues     Kind = "issues"
	KindGrades     Kind = "grades"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.TrimSpace(s)) {
	case KindStudents:
		return KindStudents, nil
	case KindAttendance:
		return KindAttendance, nil
	case KindIssues:
		return KindIssues, nil
	case KindGrades:
		return KindGrades, nil
	}
	return "", ErrInvalidKind
}

// needsSession reports whether this upload kind is scoped to a session.
func (k Kind) needsSession() bool {
	return k == KindAttendance || k == KindIssues || k == KindGrades
}

// Row is one normalized spreadsheet row. Values are keyed by the canonical
// logical field names regardless of which header script convention matched.
type Row struct {
	Number int // 1-based data row number (header row excluded)
	values map[string]string
}

func (r Row) Get(field string) string { return r.values[field] }

// RowError is a non-fatal per-row failure; the batch continues past it.
type RowError struct {
	Row     int    `json:"row_number"`
	ID      string `json:"id"`
	Message string `json:"message"`
}

// Summary is the structured result of one upload run.
type Summary struct {
	Processed int        `json:"processed"`
	Created   int        `json:"created"`
	Updated   int        `json:"updated"`
	Errors    []RowError `json:"errors,omitempty"`
	Message   string     `json:"message"`
}

var (
	// errors
	ErrInvalidKind = errors.New("invalid upload type")
	ErrNoSheet     = errors.New("uploaded Excel file contains no sheets")
	ErrEmptySheet  = errors.New("the Excel sheet is empty")
)

// HeaderMismatchError reports a header row that matches none of the accepted
// header sets, naming what was expected and what was found.
type HeaderMismatchError struct {
	// Expected holds the full accepted header sets (students: Latin + Arabic).
	Expected [][]string
	// Missing holds individually missing columns (attendance/issues/grades).
	Missing []string
	Found   []string
}

func (e *HeaderMismatchError) Error() string {
	var b strings.Builder
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, "missing required headers: %s\n", strings.Join(e.Missing, ", "))
		if len(e.Expected) > 0 {
			fmt.Fprintf(&b, "required headers are: %s\n", strings.Join(e.Expected[0], ", "))
		}
	} else {
		b.WriteString("missing required headers; expected either:\n")
		for _, set := range e.Expected {
			fmt.Fprintf(&b, "%s\n", strings.Join(set, ", "))
		}
	}
	fmt.Fprintf(&b, "found: %s\n", strings.Join(e.Found, ", "))
	b.WriteString("note: headers must match exactly (check for extra spaces)")
	return b.String()
}
