package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mutabaa-app/mutabaa/core/record"
)

type recordRepository struct {
	db *recordTable
}

var _ record.Repository = (*recordRepository)(nil) // interface compliance check

func NewRecordRepository(db *DB) record.Repository {
	return &recordRepository{db: db.record}
}

// find returns the unique (student, session) record, if any. Callers hold the lock.
func (repo *recordRepository) find(studentID, sessionID string) *record.Record {
	for _, rec := range repo.db.table {
		if rec.StudentID == studentID && rec.SessionID == sessionID {
			return rec
		}
	}
	return nil
}

func (repo *recordRepository) GetRecord(_ context.Context, studentID, sessionID string) (record.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec := repo.find(studentID, sessionID); rec != nil {
		return *rec, nil
	}
	return record.Record{}, record.ErrNotFound
}

func (repo *recordRepository) UpsertRecord(_ context.Context, rec record.Record) (record.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	orig := repo.find(rec.StudentID, rec.SessionID)
	if orig == nil {
		rec.ID = uuid.NewString()
		if rec.Attendance == "" {
			rec.Attendance = record.AttendanceAbsent
		}
		if rec.Grade == "" {
			rec.Grade = record.NoGrade
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		repo.db.table[rec.ID] = &rec
		return rec, nil
	}

	// only save set fields
	if rec.Attendance != "" {
		orig.Attendance = rec.Attendance
	}
	if rec.Grade != "" {
		orig.Grade = rec.Grade
	}
	if rec.Issue {
		orig.Issue = true
	}
	if rec.Center != "" {
		orig.Center = rec.Center
	}
	if rec.MainCenter != "" {
		orig.MainCenter = rec.MainCenter
	}
	if rec.MakeupReason != "" {
		orig.MakeupReason = rec.MakeupReason
	}
	if rec.Notes != "" {
		orig.Notes = rec.Notes
	}
	orig.UpdatedAt = now
	return *orig, nil
}

func (repo *recordRepository) BulkInsertRecords(_ context.Context, recs []record.Record) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	for _, rec := range recs {
		if repo.find(rec.StudentID, rec.SessionID) != nil {
			continue
		}
		rec := rec
		rec.ID = uuid.NewString()
		if rec.Attendance == "" {
			rec.Attendance = record.AttendanceAbsent
		}
		if rec.Grade == "" {
			rec.Grade = record.NoGrade
		}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		repo.db.table[rec.ID] = &rec
	}
	return nil
}

func (repo *recordRepository) QueryRecordsBySession(_ context.Context, sessionID string) ([]record.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []record.Record
	for _, rec := range repo.db.table {
		if rec.SessionID == sessionID {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (repo *recordRepository) QueryRecordsByStudent(_ context.Context, studentID string) ([]record.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []record.Record
	for _, rec := range repo.db.table {
		if rec.StudentID == studentID {
			recs = append(recs, *rec)
		}
	}
	return recs, nil
}

func (repo *recordRepository) FilterRecords(_ context.Context, filter record.QueryFilter) ([]record.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var recs []record.Record
	for _, rec := range repo.db.table {
		if filter.SessionID != "" && rec.SessionID != filter.SessionID {
			continue
		}
		if filter.Center != "" && !strings.EqualFold(rec.Center, filter.Center) {
			continue
		}
		if len(filter.Attendance) > 0 && !attendanceIn(rec.Attendance, filter.Attendance) {
			continue
		}
		if filter.HasGrade != nil && hasGrade(rec) != *filter.HasGrade {
			continue
		}
		if filter.Issue != nil && rec.Issue != *filter.Issue {
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (repo *recordRepository) SetMissingGrades(_ context.Context, sessionID, grade string) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	now := time.Now().UTC()
	var count int64
	for _, rec := range repo.db.table {
		if rec.SessionID == sessionID && rec.Grade == "" {
			rec.Grade = grade
			rec.UpdatedAt = now
			count++
		}
	}
	return count, nil
}

func (repo *recordRepository) CountRecordsByCenter(_ context.Context, center string) (int64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int64
	for _, rec := range repo.db.table {
		if strings.EqualFold(rec.Center, center) || strings.EqualFold(rec.MainCenter, center) {
			count++
		}
	}
	return count, nil
}

func (repo *recordRepository) DeleteRecordsByFilter(_ context.Context, sessionID, center string) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var count int64
	for id, rec := range repo.db.table {
		if sessionID != "" && rec.SessionID != sessionID {
			continue
		}
		if center != "" && !strings.EqualFold(rec.Center, center) {
			continue
		}
		delete(repo.db.table, id)
		count++
	}
	return count, nil
}

func (repo *recordRepository) DeleteRecordsByStudent(_ context.Context, studentID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, rec := range repo.db.table {
		if rec.StudentID == studentID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

func (repo *recordRepository) DeleteRecordsBySession(_ context.Context, sessionID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, rec := range repo.db.table {
		if rec.SessionID == sessionID {
			delete(repo.db.table, id)
		}
	}
	return nil
}

func attendanceIn(a record.Attendance, in []record.Attendance) bool {
	for _, v := range in {
		if a == v {
			return true
		}
	}
	return false
}

func hasGrade(rec *record.Record) bool {
	return rec.Grade != "" && rec.Grade != record.NoGrade
}
