package upload_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/session"
	"github.com/mutabaa-app/mutabaa/core/student"
	"github.com/mutabaa-app/mutabaa/core/upload"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

type testEnv struct {
	uploadSvc   *upload.Service
	studentSvc  *student.Service
	sessionSvc  *session.Service
	recordSvc   *record.Service
	sessionRepo session.Repository
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	studentRepo := dummydb.NewStudentRepository(db)
	recordRepo := dummydb.NewRecordRepository(db)
	sessionRepo := dummydb.NewSessionRepository(db)

	recordSvc := record.NewService(recordRepo)
	studentSvc := student.NewService(studentRepo, recordRepo)
	sessionSvc := session.NewService(sessionRepo, studentRepo, recordRepo)
	return &testEnv{
		uploadSvc:   upload.NewService(studentSvc, sessionSvc, recordSvc, nil),
		studentSvc:  studentSvc,
		sessionSvc:  sessionSvc,
		recordSvc:   recordSvc,
		sessionRepo: sessionRepo,
	}
}

func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	return path
}

func createStudent(t *testing.T, env *testEnv, studentID, name, center string) student.Student {
	t.Helper()
	std, err := env.studentSvc.Create(context.Background(), student.NewStudent{
		StudentID:   studentID,
		FullName:    name,
		PhoneNumber: "01000000000",
		MainCenter:  center,
	})
	require.NoError(t, err)
	return std
}

// createBareSession adds a session without seeding any records, leaving
// the roster untouched.
func createBareSession(t *testing.T, env *testEnv, week int) session.Session {
	t.Helper()
	sess, err := env.sessionRepo.CreateSession(context.Background(), session.Session{
		WeekNumber: week,
		Type:       session.TypeRegular,
		FullMark:   session.DefaultFullMark,
		IsActive:   true,
	})
	require.NoError(t, err)
	return sess
}

func Test_Service_ProcessUpload_students(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	path := writeCSV(t, [][]string{
		{"ID", "Student Name", "Student Phone", "Parent Phone", "Gender", "Division"},
		{"12345678901", "Ahmed Hassan", "01012345678", "01087654321", "male", "science"},
		{"123-456-789-01", "Ahmed H.", "010-1234-5678", "", "", ""}, // same student, formatted digits
		{"22345678901", "Sara Adel", "01011112222", "", "انثى", "أزهر"},
		{"333", "Too Short", "01011113333", "", "", ""},              // bad ID length
		{"42345678901", "Bad Phone", "0101111", "", "", ""},          // bad phone length
		{"52345678901", "Bad Gender", "01011114444", "", "alien", ""}, // unknown enum
	})

	sum, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindStudents, "", "Center A")
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 2, sum.Created)
	assert.Equal(t, 1, sum.Updated)
	require.Len(t, sum.Errors, 3)
	assert.Equal(t, 4, sum.Errors[0].Row)

	// formatted and plain IDs normalized to the same student
	std, err := env.studentSvc.GetByStudentID(ctx, "12345678901")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed H.", std.FullName)

	// Arabic enum values accepted
	sara, err := env.studentSvc.GetByStudentID(ctx, "22345678901")
	require.NoError(t, err)
	assert.Equal(t, student.GenderFemale, sara.Gender)
	assert.Equal(t, student.DivisionAzhar, sara.Division)

	// the engine owns the uploaded file
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func Test_Service_ProcessUpload_students_reuploadMovesCenter(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	createStudent(t, env, "12345678901", "Ahmed Hassan", "Center A")

	path := writeCSV(t, [][]string{
		{"رقم الـ ID", "اسم الطالب", "رقم الطالب", "رقم ولي الأمر", "النوع", "الشعبة"},
		{"12345678901", "Ahmed Hassan", "01012345678", "", "", ""},
	})
	sum, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindStudents, "", "Center B")
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Updated)

	std, err := env.studentSvc.GetByStudentID(ctx, "12345678901")
	require.NoError(t, err)
	assert.Equal(t, "Center B", std.MainCenter)
}

func Test_Service_ProcessUpload_headerMismatch(t *testing.T) {
	env := setup(t)
	ctx := context.Background()
	sess := createBareSession(t, env, 1)

	t.Run("students", func(t *testing.T) {
		path := writeCSV(t, [][]string{
			{"ID", "Student Name", "Student Phone"}, // incomplete set
			{"12345678901", "Ahmed Hassan", "01012345678"},
		})
		_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindStudents, "", "Center A")
		var hdrErr *upload.HeaderMismatchError
		require.ErrorAs(t, err, &hdrErr)
		assert.Len(t, hdrErr.Expected, 2) // both accepted conventions reported
	})

	t.Run("attendance names missing columns", func(t *testing.T) {
		path := writeCSV(t, [][]string{
			{"رقم الطالب", "اسم الطالب"},
			{"01012345678", "Ahmed Hassan"},
		})
		_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindAttendance, sess.ID, "Center A")
		var hdrErr *upload.HeaderMismatchError
		require.ErrorAs(t, err, &hdrErr)
		assert.Contains(t, hdrErr.Missing, "كود الطالب")
		assert.Contains(t, hdrErr.Missing, "رقم ولي الامر")
	})
}

func Test_Service_ProcessUpload_attendance(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a1 := createStudent(t, env, "11111111111", "Student A1", "Center A")
	a2 := createStudent(t, env, "22222222222", "Student A2", "Center A")
	b1 := createStudent(t, env, "33333333333", "Student B1", "Center B")
	sess := createBareSession(t, env, 1)

	path := writeCSV(t, [][]string{
		{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"},
		{"11111111111", "Student A1", "01000000000", ""},
		{"33333333333", "Student B1", "01000000000", ""}, // makeup: home center is B
		{"99999999999", "Unknown", "01000000000", ""},    // row error, batch continues
	})
	sum, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindAttendance, sess.ID, "Center A")
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, "99999999999", sum.Errors[0].ID)

	rec, err := env.recordSvc.Get(ctx, a1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendancePresent, rec.Attendance)
	assert.Empty(t, rec.MakeupReason)

	rec, err = env.recordSvc.Get(ctx, b1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendanceMakeup, rec.Attendance)
	assert.Equal(t, "Center A", rec.Center)
	assert.Equal(t, "Center B", rec.MainCenter)
	assert.NotEmpty(t, rec.MakeupReason)

	// the remaining Center A student is marked absent automatically
	rec, err = env.recordSvc.Get(ctx, a2.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendanceAbsent, rec.Attendance)
	assert.Equal(t, record.NoGrade, rec.Grade)
}

func Test_Service_ProcessUpload_attendance_idempotent(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a1 := createStudent(t, env, "11111111111", "Student A1", "Center A")
	createStudent(t, env, "22222222222", "Student A2", "Center A")
	sess := createBareSession(t, env, 1)

	rows := [][]string{
		{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"},
		{"11111111111", "Student A1", "01000000000", ""},
	}
	_, err := env.uploadSvc.ProcessUpload(ctx, writeCSV(t, rows), upload.KindAttendance, sess.ID, "Center A")
	require.NoError(t, err)
	_, err = env.uploadSvc.ProcessUpload(ctx, writeCSV(t, rows), upload.KindAttendance, sess.ID, "Center A")
	require.NoError(t, err)

	recs, err := env.recordSvc.QueryBySession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 2) // one per student, however many times the sheet is uploaded

	rec, err := env.recordSvc.Get(ctx, a1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, record.AttendancePresent, rec.Attendance)
}

func Test_Service_ProcessUpload_issues(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a1 := createStudent(t, env, "11111111111", "Student A1", "Center A")
	sess := createBareSession(t, env, 1)

	path := writeCSV(t, [][]string{
		{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"},
		{"11111111111", "Student A1", "01000000000", ""},
	})
	_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindIssues, sess.ID, "Center A")
	require.NoError(t, err)

	rec, err := env.recordSvc.Get(ctx, a1.ID, sess.ID)
	require.NoError(t, err)
	assert.True(t, rec.Issue)
	// an issue row alone does not mark the student present
	assert.Equal(t, record.AttendanceAbsent, rec.Attendance)
}

func Test_Service_ProcessUpload_grades(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	a1 := createStudent(t, env, "11111111111", "Student A1", "Center A")
	b1 := createStudent(t, env, "33333333333", "Student B1", "Center B")
	sess := createBareSession(t, env, 1)

	path := writeCSV(t, [][]string{
		{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم وليامر", "الدرجة"},
		{"11111111111", "Student A1", "01000000000", "", "0"}, // zero is a real grade
		{"33333333333", "Student B1", "01000000000", "", "8.5"},
		{"11111111111", "Student A1", "01000000000", "", ""}, // missing grade cell
	})
	sum, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindGrades, sess.ID, "Center A")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Errors, 1)
	assert.Equal(t, 3, sum.Errors[0].Row)

	rec, err := env.recordSvc.Get(ctx, a1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "0", rec.Grade)

	// the upload's center is advisory for grades
	rec, err = env.recordSvc.Get(ctx, b1.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "8.5", rec.Grade)
	assert.Equal(t, "Center B", rec.Center)
	assert.Equal(t, "Center B", rec.MainCenter)
}

func Test_Service_ProcessUpload_preconditions(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	t.Run("invalid kind", func(t *testing.T) {
		_, err := upload.ParseKind("lol")
		assert.Equal(t, upload.ErrInvalidKind, err)
	})

	t.Run("attendance requires a center", func(t *testing.T) {
		path := writeCSV(t, [][]string{{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"}})
		_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindAttendance, "some-session", "")
		assert.Error(t, err)
	})

	t.Run("session must exist", func(t *testing.T) {
		path := writeCSV(t, [][]string{{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"}})
		_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindAttendance, "nope", "Center A")
		assert.Error(t, err)
	})

	t.Run("empty sheet", func(t *testing.T) {
		sess := createBareSession(t, env, 9)
		path := writeCSV(t, [][]string{{"كود الطالب", "اسم الطالب", "رقم الطالب", "رقم ولي الامر"}})
		_, err := env.uploadSvc.ProcessUpload(ctx, path, upload.KindAttendance, sess.ID, "Center A")
		assert.Equal(t, upload.ErrEmptySheet, err)
	})
}
