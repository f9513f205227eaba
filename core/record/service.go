package record

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound             = errors.New("record not found")
	ErrMissingKeys          = errors.New("record requires both a student and a session")
	ErrInvalidAttendance    = errors.New("invalid attendance status")
	ErrInvalidGrade         = errors.New("grade must be between 0 and 100 or \"" + NoGrade + "\"")
	ErrMakeupAtMainCenter   = errors.New("makeup attendance cannot be recorded at the student's main center")
	ErrMakeupReasonRequired = errors.New("makeup attendance requires a reason")
)

type (
	// Repository is the persistence contract for Records. At most one record
	// exists per (student, session) pair; UpsertRecord merges set fields into
	// the existing record rather than replacing it wholesale.
	Repository interface {
		GetRecord(ctx context.Context, studentID, sessionID string) (Record, error)
		// UpsertRecord inserts or updates the unique (student, session) record.
		// Zero-valued fields of rec are left untouched on update; on insert,
		// attendance defaults to absent and grade to the NoGrade sentinel.
		UpsertRecord(ctx context.Context, rec Record) (Record, error)
		BulkInsertRecords(ctx context.Context, recs []Record) error
		QueryRecordsBySession(ctx context.Context, sessionID string) ([]Record, error)
		QueryRecordsByStudent(ctx context.Context, studentID string) ([]Record, error)
		FilterRecords(ctx context.Context, filter QueryFilter) ([]Record, error)
		// SetMissingGrades sets the grade of every record in the session whose
		// grade is still unset to the given value; returns the modified count.
		SetMissingGrades(ctx context.Context, sessionID, grade string) (int64, error)
		CountRecordsByCenter(ctx context.Context, center string) (int64, error)
		DeleteRecordsByFilter(ctx context.Context, sessionID, center string) (int64, error)
		DeleteRecordsByStudent(ctx context.Context, studentID string) error
		DeleteRecordsBySession(ctx context.Context, sessionID string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context, studentID, sessionID string) (Record, error) {
	return svc.repo.GetRecord(ctx, studentID, sessionID)
}

// Upsert validates rec and persists it with upsert-by-(student, session) semantics.
func (svc *Service) Upsert(ctx context.Context, rec Record) (Record, error) {
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return svc.repo.UpsertRecord(ctx, rec)
}

// BulkInsert validates and inserts brand-new records. It is only safe for
// (student, session) pairs known to have no record yet.
func (svc *Service) BulkInsert(ctx context.Context, recs []Record) error {
	for i := range recs {
		if err := recs[i].Validate(); err != nil {
			return errors.Wrapf(err, "record %d", i)
		}
	}
	if len(recs) == 0 {
		return nil
	}
	return svc.repo.BulkInsertRecords(ctx, recs)
}

func (svc *Service) QueryBySession(ctx context.Context, sessionID string) ([]Record, error) {
	return svc.repo.QueryRecordsBySession(ctx, sessionID)
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Record, error) {
	return svc.repo.QueryRecordsByStudent(ctx, studentID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]Record, error) {
	return svc.repo.FilterRecords(ctx, filter)
}

// DefaultMissingGrades sets the NoGrade sentinel on every record of the
// session that still has no grade value at all.
func (svc *Service) DefaultMissingGrades(ctx context.Context, sessionID string) (int64, error) {
	return svc.repo.SetMissingGrades(ctx, sessionID, NoGrade)
}

func (svc *Service) CountByCenter(ctx context.Context, center string) (int64, error) {
	return svc.repo.CountRecordsByCenter(ctx, center)
}

// DeleteByFilter removes a session's records, optionally narrowed to one center.
func (svc *Service) DeleteByFilter(ctx context.Context, sessionID, center string) (int64, error) {
	if sessionID == "" {
		return 0, ErrMissingKeys
	}
	return svc.repo.DeleteRecordsByFilter(ctx, sessionID, center)
}
