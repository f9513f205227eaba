package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

func setup(t *testing.T) (*session.Service, *student.Service, *record.Service) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	studentRepo := dummydb.NewStudentRepository(db)
	recordRepo := dummydb.NewRecordRepository(db)
	return session.NewService(dummydb.NewSessionRepository(db), studentRepo, recordRepo),
		student.NewService(studentRepo, recordRepo),
		record.NewService(recordRepo)
}

func createStudent(t *testing.T, svc *student.Service, studentID, center string) student.Student {
	t.Helper()
	std, err := svc.Create(context.Background(), student.NewStudent{
		StudentID:   studentID,
		FullName:    "Student " + studentID,
		PhoneNumber: "01000000000",
		MainCenter:  center,
	})
	require.NoError(t, err)
	return std
}

func Test_Service_Create_seedsRoster(t *testing.T) {
	svc, studentSvc, recordSvc := setup(t)
	ctx := context.Background()

	a1 := createStudent(t, studentSvc, "11111111111", "Center A")
	createStudent(t, studentSvc, "22222222222", "Center B")

	sess, seeded, err := svc.Create(ctx, session.NewSession{WeekNumber: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, seeded)
	assert.True(t, sess.IsActive)
	assert.Equal(t, session.TypeRegular, sess.Type)
	assert.Equal(t, float64(session.DefaultFullMark), sess.FullMark)

	rec, err := recordSvc.Get(ctx, a1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendanceAbsent, rec.Attendance)
	assert.Equal(t, record.NoGrade, rec.Grade)
	assert.Equal(t, "Center A", rec.Center)
	assert.Equal(t, "Center A", rec.MainCenter)
}

func Test_Service_Create_weekUnique(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	_, _, err := svc.Create(ctx, session.NewSession{WeekNumber: 1})
	require.NoError(t, err)

	_, _, err = svc.Create(ctx, session.NewSession{WeekNumber: 1})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func Test_Service_Delete_cascades(t *testing.T) {
	svc, studentSvc, recordSvc := setup(t)
	ctx := context.Background()

	createStudent(t, studentSvc, "11111111111", "Center A")
	sess, seeded, err := svc.Create(ctx, session.NewSession{WeekNumber: 1})
	require.NoError(t, err)
	require.Equal(t, 1, seeded)

	require.NoError(t, svc.Delete(ctx, sess.ID))

	_, err = svc.GetByID(ctx, sess.ID)
	assert.Equal(t, session.ErrNotFound, err)
	recs, err := recordSvc.QueryBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func Test_NewSession_Validate(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		ns := session.NewSession{WeekNumber: 1, FullMark: 50}
		require.NoError(t, ns.Validate())
		assert.Equal(t, session.TypeRegular, ns.Type)
		// regular sessions always carry the fixed full mark
		assert.Equal(t, float64(session.DefaultFullMark), ns.FullMark)
		assert.False(t, ns.StartDate.IsZero())
		assert.Equal(t, ns.StartDate.AddDate(0, 0, 7), ns.EndDate)
	})

	t.Run("exam keeps its full mark", func(t *testing.T) {
		ns := session.NewSession{WeekNumber: 2, Type: session.TypeComprehensiveExam, FullMark: 50}
		require.NoError(t, ns.Validate())
		assert.Equal(t, float64(50), ns.FullMark)
	})

	t.Run("week number required", func(t *testing.T) {
		ns := session.NewSession{}
		assert.Error(t, ns.Validate())
	})
}
