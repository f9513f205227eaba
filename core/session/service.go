package session

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/student"
)

var (
	// errors
	ErrNotFound       = errors.New("session not found")
	ErrWeekExists     = errors.New("a session for this week already exists")
	ErrInvalidType    = errors.New("session type must be either regular or comprehensive-exam")
	ErrEndBeforeStart = errors.New("end date must be after start date")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSessionByID(ctx context.Context, id string) (Session, error)
		GetSessionByWeekNumber(ctx context.Context, week int) (Session, error)
		// QueryAllSessions returns sessions ordered by descending week number.
		QueryAllSessions(ctx context.Context) ([]Session, error)
		DeleteSession(ctx context.Context, id string) error
	}

	// StudentLister provides the roster used to seed a new session's records.
	StudentLister interface {
		QueryAllStudents(ctx context.Context) ([]student.Student, error)
	}

	// RecordStore seeds and cascades a session's records.
	RecordStore interface {
		BulkInsertRecords(ctx context.Context, recs []record.Record) error
		DeleteRecordsBySession(ctx context.Context, sessionID string) error
	}

	Service struct {
		repo     Repository
		students StudentLister
		records  RecordStore
	}
)

func NewService(repo Repository, students StudentLister, records RecordStore) *Service {
	return &Service{repo: repo, students: students, records: records}
}

// Create adds the weekly session and seeds one absent record per registered
// student in their main center. Returns the session and the seeded count.
func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, int, error) {
	// defaults (type, full mark, dates) apply no matter how the caller built ns
	if err := ns.Validate(); err != nil {
		return Session{}, 0, err
	}
	if _, err := svc.repo.GetSessionByWeekNumber(ctx, ns.WeekNumber); err == nil {
		return Session{}, 0, core.NewValidationError(
			ErrWeekExists, core.FieldError{Field: "week_number", Error: ErrWeekExists.Error()})
	} else if errors.Cause(err) != ErrNotFound {
		return Session{}, 0, err
	}

	now := time.Now().UTC()
	sess := Session{
		WeekNumber:  ns.WeekNumber,
		Type:        ns.Type,
		FullMark:    ns.FullMark,
		IsActive:    true,
		StartDate:   ns.StartDate,
		EndDate:     ns.EndDate,
		Description: ns.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	sess, err := svc.repo.CreateSession(ctx, sess)
	if err != nil {
		return Session{}, 0, err
	}

	students, err := svc.students.QueryAllStudents(ctx)
	if err != nil {
		return Session{}, 0, errors.Wrap(err, "listing students")
	}
	recs := make([]record.Record, 0, len(students))
	for _, std := range students {
		recs = append(recs, record.Record{
			StudentID:  std.ID,
			SessionID:  sess.ID,
			Attendance: record.AttendanceAbsent,
			Grade:      record.NoGrade,
			Center:     std.MainCenter,
			MainCenter: std.MainCenter,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	if len(recs) > 0 {
		if err := svc.records.BulkInsertRecords(ctx, recs); err != nil {
			return Session{}, 0, errors.Wrap(err, "seeding session records")
		}
	}
	return sess, len(recs), nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSessionByID(ctx, id)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Session, error) {
	return svc.repo.QueryAllSessions(ctx)
}

// Delete removes the session and cascades to all its records.
func (svc *Service) Delete(ctx context.Context, id string) error {
	sess, err := svc.repo.GetSessionByID(ctx, id)
	if err != nil {
		return err
	}
	if err := svc.records.DeleteRecordsBySession(ctx, sess.ID); err != nil {
		return errors.Wrap(err, "deleting session records")
	}
	return svc.repo.DeleteSession(ctx, sess.ID)
}
