package upload

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
)

// row processor outcomes
const (
	actionCreated   = "created"
	actionUpdated   = "updated"
	actionProcessed = "processed"
)

var errStudentNotFound = errors.New("Student not found")

type (
	rowResult struct {
		action string
		id     string
	}

	// Service is the weekly bulk-upload reconciliation engine. It normalizes
	// an uploaded sheet, runs the kind's row processor over every row, and
	// applies the session-wide post-pass.
	Service struct {
		students *student.Service
		sessions *session.Service
		records  *record.Service
		logger   core.Logger

		mu    sync.Mutex
		locks map[string]*sync.Mutex // advisory per-session upload locks
	}
)

func NewService(students *student.Service, sessions *session.Service, records *record.Service, logger core.Logger) *Service {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Service{
		students: students,
		sessions: sessions,
		records:  records,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// ProcessUpload ingests the uploaded file at path and reconciles it against
// the roster. The file is deleted on every exit path; the engine owns it from
// here on. Row-level failures are collected in the Summary and never abort
// the batch; precondition and file-structure failures abort before any row
// is processed.
func (svc *Service) ProcessUpload(ctx context.Context, path string, kind Kind, sessionID, center string) (Summary, error) {
	defer func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			svc.logger.Warn("failed to clean up uploaded file", map[string]interface{}{"path": path, "error": err.Error()})
		}
	}()

	center = core.CleanString(center)
	if kind == KindAttendance && center == "" {
		return Summary{}, core.NewPreconditionError("center selection is required for attendance uploads")
	}

	var sess session.Session
	if kind.needsSession() {
		if sessionID == "" {
			return Summary{}, core.NewPreconditionError("session ID is required for this upload type")
		}
		var err error
		sess, err = svc.sessions.GetByID(ctx, sessionID)
		if err != nil {
			if errors.Cause(err) == session.ErrNotFound {
				return Summary{}, core.NewPreconditionError("invalid session ID")
			}
			return Summary{}, errors.Wrap(err, "resolving session")
		}

		// uploads for the same session never interleave
		unlock := svc.lockSession(sess.ID)
		defer unlock()
	}

	raw, err := readRows(path)
	if err != nil {
		return Summary{}, err
	}
	rows, err := normalize(raw, kind)
	if err != nil {
		return Summary{}, err
	}

	var sum Summary
	for _, row := range rows {
		var res rowResult
		var rowErr error
		switch kind {
		case KindStudents:
			res, rowErr = svc.processStudentRow(ctx, row, center)
		case KindAttendance, KindIssues:
			res, rowErr = svc.processAttendanceRow(ctx, row, sess, kind, center)
		case KindGrades:
			res, rowErr = svc.processGradeRow(ctx, row, sess, center)
		default:
			return Summary{}, ErrInvalidKind
		}

		if rowErr != nil {
			svc.logger.Warn("upload row failed",
				map[string]interface{}{"row": row.Number, "id": res.id, "error": rowErr.Error()})
			sum.Errors = append(sum.Errors, RowError{Row: row.Number, ID: rowID(row, res), Message: rowErr.Error()})
			continue
		}
		sum.Processed++
		switch res.action {
		case actionCreated:
			sum.Created++
		case actionUpdated:
			sum.Updated++
		}
	}

	svc.logger.Info("initial upload processing complete", map[string]interface{}{
		"kind": string(kind), "processed": sum.Processed, "created": sum.Created,
		"updated": sum.Updated, "errors": len(sum.Errors),
	})

	switch kind {
	case KindAttendance:
		if err := svc.markRemainingAbsent(ctx, sess, center); err != nil {
			return Summary{}, errors.Wrap(err, "marking remaining students absent")
		}
	case KindGrades:
		modified, err := svc.records.DefaultMissingGrades(ctx, sess.ID)
		if err != nil {
			return Summary{}, errors.Wrap(err, "setting default grades")
		}
		svc.logger.Info("default grades set", map[string]interface{}{"session": sess.ID, "modified": modified})
	}

	sum.Message = fmt.Sprintf("Successfully processed %d records (%d created, %d updated)",
		sum.Processed, sum.Created, sum.Updated)
	return sum, nil
}

// markRemainingAbsent inserts an absent record for every student of the
// target center that ended this pass without a record for the session.
// Records created at any center count: a student who attended elsewhere is
// already covered by their makeup record.
func (svc *Service) markRemainingAbsent(ctx context.Context, sess session.Session, center string) error {
	total, err := svc.students.CountByCenter(ctx, center)
	if err != nil {
		return errors.Wrap(err, "counting center students")
	}
	if total == 0 {
		svc.logger.Info("skipping absence marking: no students registered in center",
			map[string]interface{}{"center": center})
		return nil
	}

	recs, err := svc.records.QueryBySession(ctx, sess.ID)
	if err != nil {
		return errors.Wrap(err, "listing session records")
	}
	seen := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		seen[rec.StudentID] = struct{}{}
	}

	students, err := svc.students.FilterByCenter(ctx, center)
	if err != nil {
		return errors.Wrap(err, "listing center students")
	}

	var absent []record.Record
	for _, std := range students {
		if _, ok := seen[std.ID]; ok {
			continue
		}
		absent = append(absent, record.Record{
			StudentID:  std.ID,
			SessionID:  sess.ID,
			Attendance: record.AttendanceAbsent,
			Grade:      record.NoGrade,
			Center:     std.MainCenter,
			MainCenter: std.MainCenter,
		})
	}
	if len(absent) == 0 {
		return nil
	}
	if err := svc.records.BulkInsert(ctx, absent); err != nil {
		return errors.Wrap(err, "inserting absence records")
	}
	svc.logger.Info("bulk absence marking complete", map[string]interface{}{
		"session": sess.ID, "center": center, "marked": len(absent),
	})
	return nil
}

func (svc *Service) lockSession(id string) func() {
	svc.mu.Lock()
	m, ok := svc.locks[id]
	if !ok {
		m = &sync.Mutex{}
		svc.locks[id] = m
	}
	svc.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func rowID(row Row, res rowResult) string {
	if res.id != "" {
		return res.id
	}
	if id := core.CleanString(row.Get(fieldID)); id != "" {
		return id
	}
	return "unknown"
}
