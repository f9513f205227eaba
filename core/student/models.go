package student

import (
	"time"

	"github.com/mutabaa-app/mutabaa/core"
)

// Gender is stored internally as a stable token; the Arabic display
// string only appears at the storage/presentation boundary.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

var genderDisplays = map[Gender]string{
	GenderMale:   "ذكر",
	GenderFemale: "انثى",
}

func (g Gender) Display() string { return genderDisplays[g] }

// ParseGender accepts either the internal token or the Arabic display string.
// An empty input parses to the zero Gender (the field is optional).
func ParseGender(s string) (Gender, error) {
	s = core.CleanString(s)
	if s == "" {
		return "", nil
	}
	for g, display := range genderDisplays {
		if s == string(g) || s == display {
			return g, nil
		}
	}
	return "", errInvalidGender(s)
}

// Division is one of the three fixed study tracks.
type Division string

const (
	DivisionScience Division = "science"
	DivisionMath    Division = "math"
	DivisionAzhar   Division = "azhar"
)

var divisionDisplays = map[Division]string{
	DivisionScience: "علمي علوم",
	DivisionMath:    "علمي رياضة",
	DivisionAzhar:   "أزهر",
}

func (d Division) Display() string { return divisionDisplays[d] }

// ParseDivision accepts either the internal token or the Arabic display string.
func ParseDivision(s string) (Division, error) {
	s = core.CleanString(s)
	if s == "" {
		return "", nil
	}
	for d, display := range divisionDisplays {
		if s == string(d) || s == display {
			return d, nil
		}
	}
	return "", errInvalidDivision(s)
}

type Student struct {
	ID                string    `json:"id"`
	StudentID         string    `json:"student_id"` // unique, exactly 11 digits
	FullName          string    `json:"full_name"`
	PhoneNumber       string    `json:"phone_number"`
	ParentPhoneNumber string    `json:"parent_phone_number,omitempty"`
	Gender            Gender    `json:"gender,omitempty"`
	Division          Division  `json:"division,omitempty"`
	MainCenter        string    `json:"main_center"`
	CreatedAt         time.Time `json:"created_at"` // UTC
	UpdatedAt         time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to register a new Student.
type NewStudent struct {
	StudentID         string   `json:"student_id" validate:"required,digits11"`
	FullName          string   `json:"full_name" validate:"required,min=3"`
	PhoneNumber       string   `json:"phone_number" validate:"required,digits11"`
	ParentPhoneNumber string   `json:"parent_phone_number" validate:"omitempty,digits11"`
	Gender            Gender   `json:"gender" validate:"omitempty,oneof=male female"`
	Division          Division `json:"division" validate:"omitempty,oneof=science math azhar"`
	MainCenter        string   `json:"main_center" validate:"required"`
}

func (ns *NewStudent) Validate() error {
	ns.StudentID = core.CleanDigits(ns.StudentID)
	ns.FullName = core.CleanString(ns.FullName)
	ns.PhoneNumber = core.CleanDigits(ns.PhoneNumber)
	ns.ParentPhoneNumber = core.CleanDigits(ns.ParentPhoneNumber)
	ns.MainCenter = core.CleanString(ns.MainCenter)
	return core.Validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// StudentID itself is immutable once created.
type UpdateStudent struct {
	FullName          string   `json:"full_name" validate:"required,min=3"`
	PhoneNumber       string   `json:"phone_number" validate:"required,digits11"`
	ParentPhoneNumber string   `json:"parent_phone_number" validate:"omitempty,digits11"`
	Gender            Gender   `json:"gender" validate:"omitempty,oneof=male female"`
	Division          Division `json:"division" validate:"omitempty,oneof=science math azhar"`
	MainCenter        string   `json:"main_center" validate:"required"`
}

func (us *UpdateStudent) Validate() error {
	us.FullName = core.CleanString(us.FullName)
	us.PhoneNumber = core.CleanDigits(us.PhoneNumber)
	us.ParentPhoneNumber = core.CleanDigits(us.ParentPhoneNumber)
	us.MainCenter = core.CleanString(us.MainCenter)
	return core.Validate.Struct(us)
}
