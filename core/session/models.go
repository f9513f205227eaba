package session

import (
	"strconv"
	"time"

	"github.com/mutabaa-app/mutabaa/core"
)

// Type is stored internally as a stable token; the Arabic display
// string only appears at the storage/presentation boundary.
type Type string

const (
	TypeRegular           Type = "regular"
	TypeComprehensiveExam Type = "comprehensive-exam"
)

// DefaultFullMark is forced on every regular session.
const DefaultFullMark = 10

var typeDisplays = map[Type]string{
	TypeRegular:           "عادية",
	TypeComprehensiveExam: "امتحان شامل",
}

func (t Type) Display() string { return typeDisplays[t] }

// ParseType accepts either the internal token or the Arabic display string.
// An empty input parses to TypeRegular.
func ParseType(s string) (Type, error) {
	s = core.CleanString(s)
	if s == "" {
		return TypeRegular, nil
	}
	for t, display := range typeDisplays {
		if s == string(t) || s == display {
			return t, nil
		}
	}
	return "", ErrInvalidType
}

// Session represents one week's unit of activity.
type Session struct {
	ID          string    `json:"id"`
	WeekNumber  int       `json:"week_number"` // unique, positive
	Type        Type      `json:"session_type"`
	FullMark    float64   `json:"full_mark"`
	IsActive    bool      `json:"is_active"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// Name is the localized display name used in report filenames.
func (s Session) Name() string {
	return s.Type.Display() + " " + strconv.Itoa(s.WeekNumber)
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	WeekNumber  int       `json:"week_number" validate:"required,min=1"`
	Type        Type      `json:"session_type" validate:"omitempty,oneof=regular comprehensive-exam"`
	FullMark    float64   `json:"full_mark" validate:"omitempty,min=0"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Description string    `json:"description"`
}

func (ns *NewSession) Validate() error {
	ns.Description = core.CleanString(ns.Description)
	if ns.Type == "" {
		ns.Type = TypeRegular
	}
	if ns.StartDate.IsZero() {
		ns.StartDate = time.Now().UTC()
	}
	if ns.EndDate.IsZero() {
		ns.EndDate = ns.StartDate.Add(7 * 24 * time.Hour)
	}
	if ns.EndDate.Before(ns.StartDate) {
		return core.NewValidationError(
			ErrEndBeforeStart, core.FieldError{Field: "end_date", Error: ErrEndBeforeStart.Error()})
	}
	// regular sessions always carry the fixed full mark
	if ns.Type == TypeRegular {
		ns.FullMark = DefaultFullMark
	}
	return core.Validate.Struct(ns)
}
