package report

import (
	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/student"
)

// Kind selects one of the four disjoint report predicates.
type Kind string

const (
	KindAttendance Kind = "attendance" // present, makeup included
	KindAbsence    Kind = "absence"
	KindGrades     Kind = "grades" // grade set and not the sentinel
	KindIssues     Kind = "issues"
)

var kindDisplays = map[Kind]string{
	KindAttendance: "حضور",
	KindAbsence:    "غياب",
	KindGrades:     "درجات",
	KindIssues:     "مشاكل",
}

func (k Kind) Display() string { return kindDisplays[k] }

func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := kindDisplays[k]; !ok {
		return "", ErrInvalidKind
	}
	return k, nil
}

// Filter narrows a report. The center filter matches the record's attended
// center, which is how makeup attendance shows up in the host center's report.
type Filter struct {
	SessionID string
	Center    string
}

// Entry joins one record with its student for display.
type Entry struct {
	Record  record.Record   `json:"record"`
	Student student.Student `json:"student"`
}

var (
	// errors
	ErrInvalidKind = errors.New("invalid report type")
	ErrNoData      = errors.New("no data to export")
)
