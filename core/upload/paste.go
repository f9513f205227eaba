package upload

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
)

// ProcessPaste ingests tab-separated rows pasted straight out of Excel or
// Sheets: one student ID per line with an optional value column. There is no
// header row and no post-pass; only the pasted students are touched.
func (svc *Service) ProcessPaste(ctx context.Context, text string, kind Kind, sessionID, center string) (Summary, error) {
	switch kind {
	case KindAttendance, KindIssues, KindGrades:
	default:
		return Summary{}, ErrInvalidKind
	}
	center = core.CleanString(center)
	if center == "" {
		return Summary{}, core.NewPreconditionError("center selection is required for pasted data")
	}
	if sessionID == "" {
		return Summary{}, core.NewPreconditionError("session ID is required for this upload type")
	}
	sess, err := svc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Cause(err) == session.ErrNotFound {
			return Summary{}, core.NewPreconditionError("invalid session ID")
		}
		return Summary{}, errors.Wrap(err, "resolving session")
	}

	// pastes for the same session never interleave with uploads
	unlock := svc.lockSession(sess.ID)
	defer unlock()

	var sum Summary
	num := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		num++

		cols := strings.Split(line, "\t")
		id := core.CleanString(cols[0])
		var value string
		if len(cols) > 1 {
			value = core.CleanString(cols[1])
		}

		if err := svc.processPastedRow(ctx, sess, kind, center, id, value); err != nil {
			svc.logger.Warn("pasted row failed",
				map[string]interface{}{"row": num, "id": id, "error": err.Error()})
			rid := id
			if rid == "" {
				rid = "unknown"
			}
			sum.Errors = append(sum.Errors, RowError{Row: num, ID: rid, Message: err.Error()})
			continue
		}
		sum.Processed++
	}
	if num == 0 {
		return Summary{}, ErrEmptySheet
	}

	svc.logger.Info("paste processing complete", map[string]interface{}{
		"kind": string(kind), "processed": sum.Processed, "errors": len(sum.Errors),
	})
	sum.Message = fmt.Sprintf("Successfully processed %d records (%d created, %d updated)",
		sum.Processed, sum.Created, sum.Updated)
	return sum, nil
}

// processPastedRow applies one pasted line. Attendance defaults to present
// (with the usual makeup detection against the target center), grades default
// to the missing-grade sentinel, issue flags default to unset.
func (svc *Service) processPastedRow(ctx context.Context, sess session.Session, kind Kind, center, id, value string) error {
	if id == "" {
		return errors.New("student ID is required")
	}
	std, err := svc.students.GetByStudentID(ctx, id)
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errStudentNotFound
		}
		return err
	}

	rec := record.Record{
		StudentID:  std.ID,
		SessionID:  sess.ID,
		Center:     center,
		MainCenter: std.MainCenter,
	}
	switch kind {
	case KindAttendance:
		att := record.AttendancePresent
		if value != "" {
			if att, err = record.ParseAttendance(value); err != nil {
				return err
			}
		}
		if att == record.AttendancePresent && center != std.MainCenter {
			att = record.AttendanceMakeup
		}
		rec.Attendance = att
		if att == record.AttendanceMakeup {
			rec.MakeupReason = makeupReason(center, std.MainCenter)
		}
	case KindGrades:
		if value == "" {
			value = record.NoGrade
		}
		rec.Grade = value
		rec.Center = std.MainCenter
	case KindIssues:
		if value != "" {
			issue, err := strconv.ParseBool(strings.ToLower(value))
			if err != nil {
				return fmt.Errorf("invalid issue value: %s", value)
			}
			rec.Issue = issue
		}
	}

	_, err = svc.records.Upsert(ctx, rec)
	return err
}
