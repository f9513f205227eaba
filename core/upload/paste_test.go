package upload_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/upload"
)

func Test_Service_ProcessPaste_attendance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := createStudent(t, env, "12345678901", "Ahmed Hassan", "Center A")
	b := createStudent(t, env, "22345678901", "Sara Adel", "Center B")
	sess := createBareSession(t, env, 1)

	// default value is present; a student of another center becomes makeup;
	// unknown students and blank lines are isolated per row
	text := "12345678901\n" +
		"22345678901\tحضور\n" +
		"\n" +
		"99999999999\n"
	sum, err := env.uploadSvc.ProcessPaste(ctx, text, upload.KindAttendance, sess.ID, "Center A")
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, 3, sum.Errors[0].Row)
	assert.Equal(t, "99999999999", sum.Errors[0].ID)

	recA, err := env.recordSvc.Get(ctx, a.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendancePresent, recA.Attendance)

	recB, err := env.recordSvc.Get(ctx, b.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendanceMakeup, recB.Attendance)
	assert.NotEmpty(t, recB.MakeupReason)

	// no post-pass: only the pasted rows produced records
	recs, err := env.recordSvc.QueryBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func Test_Service_ProcessPaste_grades(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := createStudent(t, env, "12345678901", "Ahmed Hassan", "Center A")
	b := createStudent(t, env, "22345678901", "Sara Adel", "Center A")
	sess := createBareSession(t, env, 1)

	text := "12345678901\t0\n" + // a real zero, not a missing grade
		"22345678901\n" // no value defaults to the sentinel
	sum, err := env.uploadSvc.ProcessPaste(ctx, text, upload.KindGrades, sess.ID, "Center A")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)

	recA, err := env.recordSvc.Get(ctx, a.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", recA.Grade)

	recB, err := env.recordSvc.Get(ctx, b.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.NoGrade, recB.Grade)
}

func Test_Service_ProcessPaste_issues(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a := createStudent(t, env, "12345678901", "Ahmed Hassan", "Center A")
	sess := createBareSession(t, env, 1)

	sum, err := env.uploadSvc.ProcessPaste(ctx, "12345678901\ttrue\n", upload.KindIssues, sess.ID, "Center A")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Processed)

	rec, err := env.recordSvc.Get(ctx, a.ID, sess.ID)
	require.NoError(t, err)
	assert.True(t, rec.Issue)

	// junk flag values fail the row, not the batch
	sum, err = env.uploadSvc.ProcessPaste(ctx, "12345678901\tmaybe\n", upload.KindIssues, sess.ID, "Center A")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Processed)
	require.Len(t, sum.Errors, 1)
}

func Test_Service_ProcessPaste_preconditions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sess := createBareSession(t, env, 1)

	t.Run("students kind rejected", func(t *testing.T) {
		_, err := env.uploadSvc.ProcessPaste(ctx, "12345678901\n", upload.KindStudents, sess.ID, "Center A")
		assert.Equal(t, upload.ErrInvalidKind, err)
	})

	t.Run("center required", func(t *testing.T) {
		_, err := env.uploadSvc.ProcessPaste(ctx, "12345678901\n", upload.KindAttendance, sess.ID, "")
		var pErr *core.PreconditionError
		require.ErrorAs(t, err, &pErr)
	})

	t.Run("session must exist", func(t *testing.T) {
		_, err := env.uploadSvc.ProcessPaste(ctx, "12345678901\n", upload.KindAttendance, "nope", "Center A")
		var pErr *core.PreconditionError
		require.ErrorAs(t, err, &pErr)
	})

	t.Run("empty paste", func(t *testing.T) {
		_, err := env.uploadSvc.ProcessPaste(ctx, "  \n\n", upload.KindAttendance, sess.ID, "Center A")
		assert.Equal(t, upload.ErrEmptySheet, err)
	})
}
