package record

import (
	"strconv"
	"time"

	"github.com/mutabaa-app/mutabaa/core"
)

// Attendance is stored internally as a stable token; the Arabic display
// string only appears at the storage/presentation boundary.
type Attendance string

const (
	AttendancePresent Attendance = "present"
	AttendanceMakeup  Attendance = "present-makeup"
	AttendanceAbsent  Attendance = "absent"
)

var attendanceDisplays = map[Attendance]string{
	AttendancePresent: "حضور",
	AttendanceMakeup:  "تعويض حضور",
	AttendanceAbsent:  "غياب",
}

func (a Attendance) Display() string { return attendanceDisplays[a] }

// ParseAttendance accepts either the internal token or the Arabic display string.
func ParseAttendance(s string) (Attendance, error) {
	s = core.CleanString(s)
	for a, display := range attendanceDisplays {
		if s == string(a) || s == display {
			return a, nil
		}
	}
	return "", ErrInvalidAttendance
}

// NoGrade is the sentinel grade for students with no recorded mark.
// It is distinct from the valid grade "0".
const NoGrade = "-"

// Record is the unique fact row for one student's participation in one session.
type Record struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	SessionID  string     `json:"session_id"`
	Attendance Attendance `json:"attendance"`
	// Grade is either a numeric value 0-100 or the NoGrade sentinel;
	// empty means not yet set.
	Grade        string    `json:"grade"`
	Issue        bool      `json:"issue"`
	Center       string    `json:"center"`      // where the activity actually occurred
	MainCenter   string    `json:"main_center"` // the student's home center at record time
	MakeupReason string    `json:"makeup_reason,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (r Record) IsMakeup() bool { return r.Attendance == AttendanceMakeup }

// Validate enforces the record invariants:
// makeup attendance never happens at the student's own center,
// a makeup record states its reason, and grades are 0-100 or the sentinel.
func (r *Record) Validate() error {
	if r.StudentID == "" || r.SessionID == "" {
		return core.NewValidationError(ErrMissingKeys)
	}
	if r.Attendance == AttendanceMakeup {
		if r.Center != "" && r.Center == r.MainCenter {
			return core.NewValidationError(ErrMakeupAtMainCenter)
		}
		if r.MakeupReason == "" {
			return core.NewValidationError(
				ErrMakeupReasonRequired, core.FieldError{Field: "makeup_reason", Error: ErrMakeupReasonRequired.Error()})
		}
	}
	if r.Grade != "" && !ValidGrade(r.Grade) {
		return core.NewValidationError(
			ErrInvalidGrade, core.FieldError{Field: "grade", Error: ErrInvalidGrade.Error()})
	}
	return nil
}

// ValidGrade reports whether g is the NoGrade sentinel or a number in [0, 100].
func ValidGrade(g string) bool {
	if g == NoGrade {
		return true
	}
	v, err := strconv.ParseFloat(g, 64)
	if err != nil {
		return false
	}
	return v >= 0 && v <= 100
}

// QueryFilter narrows record queries for reports and deletions. Fields combine with AND.
type QueryFilter struct {
	SessionID  string
	Center     string       // matches Record.Center: the attended center, not necessarily home
	Attendance []Attendance // any-of, when non-empty
	HasGrade   *bool        // true: grade set and != NoGrade; false: unset or NoGrade
	Issue      *bool
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.SessionID == "" && qf.Center == "" && qf.Attendance == nil && qf.HasGrade == nil && qf.Issue == nil
}
