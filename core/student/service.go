package student

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
)

var (
	// errors
	ErrNotFound        = errors.New("student not found")
	ErrStudentIDExists = errors.New("a student with this ID already exists")

	errSearchTooShort = "search query must be at least 2 characters long"
)

func errInvalidGender(v string) error {
	return core.NewValidationError(
		fmt.Errorf("invalid gender value: %s", v),
		core.FieldError{Field: "gender", Error: fmt.Sprintf("invalid Gender value: %s", v)},
	)
}

func errInvalidDivision(v string) error {
	return core.NewValidationError(
		fmt.Errorf("invalid division value: %s", v),
		core.FieldError{Field: "division", Error: fmt.Sprintf("invalid Division value: %s", v)},
	)
}

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		GetStudentByStudentID(ctx context.Context, studentID string) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		// SearchStudents does a case-insensitive match on one of
		// Student.StudentID, Student.FullName, Student.PhoneNumber or Student.ParentPhoneNumber.
		SearchStudents(ctx context.Context, query string, limit int) ([]Student, error)
		FilterStudentsByCenter(ctx context.Context, center string) ([]Student, error)
		FilterStudentsByIDs(ctx context.Context, ids []string) ([]Student, error)
		CountStudentsByCenter(ctx context.Context, center string) (int64, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	// RecordDeleter removes a student's records when the student is deleted.
	RecordDeleter interface {
		DeleteRecordsByStudent(ctx context.Context, studentID string) error
	}

	Service struct {
		repo    Repository
		records RecordDeleter
	}
)

func NewService(repo Repository, records RecordDeleter) *Service {
	return &Service{repo: repo, records: records}
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if _, err := svc.repo.GetStudentByStudentID(ctx, ns.StudentID); err == nil {
		return Student{}, core.NewValidationError(
			ErrStudentIDExists, core.FieldError{Field: "student_id", Error: ErrStudentIDExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Student{}, err
	}

	now := time.Now().UTC()
	std := Student{
		StudentID:         ns.StudentID,
		FullName:          ns.FullName,
		PhoneNumber:       ns.PhoneNumber,
		ParentPhoneNumber: ns.ParentPhoneNumber,
		Gender:            ns.Gender,
		Division:          ns.Division,
		MainCenter:        ns.MainCenter,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreateStudent(ctx, std)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetByStudentID(ctx context.Context, studentID string) (Student, error) {
	return svc.repo.GetStudentByStudentID(ctx, core.CleanDigits(studentID))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	return svc.repo.QueryAllStudents(ctx)
}

func (svc *Service) Search(ctx context.Context, query string) ([]Student, error) {
	query = core.CleanString(query)
	if len(query) < 2 {
		return nil, core.NewValidationError(
			errors.New(errSearchTooShort), core.FieldError{Field: "q", Error: errSearchTooShort})
	}
	return svc.repo.SearchStudents(ctx, query, 20)
}

func (svc *Service) FilterByCenter(ctx context.Context, center string) ([]Student, error) {
	return svc.repo.FilterStudentsByCenter(ctx, center)
}

func (svc *Service) FilterByIDs(ctx context.Context, ids []string) ([]Student, error) {
	return svc.repo.FilterStudentsByIDs(ctx, ids)
}

func (svc *Service) CountByCenter(ctx context.Context, center string) (int64, error) {
	return svc.repo.CountStudentsByCenter(ctx, center)
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	std.FullName = us.FullName
	std.PhoneNumber = us.PhoneNumber
	std.ParentPhoneNumber = us.ParentPhoneNumber
	std.MainCenter = us.MainCenter
	if us.Gender != "" {
		std.Gender = us.Gender
	}
	if us.Division != "" {
		std.Division = us.Division
	}
	std.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateStudent(ctx, std)
}

// Delete removes the student and cascades to all their records.
func (svc *Service) Delete(ctx context.Context, id string) error {
	std, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.records.DeleteRecordsByStudent(ctx, std.ID); err != nil {
		return errors.Wrap(err, "deleting student records")
	}
	return svc.repo.DeleteStudent(ctx, std.ID)
}
