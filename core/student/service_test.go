package student_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	"github.com/mutabaa-app/mutabaa/core/student"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

func setup(t *testing.T) (*student.Service, *record.Service) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	recordRepo := dummydb.NewRecordRepository(db)
	return student.NewService(dummydb.NewStudentRepository(db), recordRepo), record.NewService(recordRepo)
}

func newStudent(id, name, center string) student.NewStudent {
	return student.NewStudent{
		StudentID:   id,
		FullName:    name,
		PhoneNumber: "01000000000",
		MainCenter:  center,
	}
}

func Test_Service_Create_studentIDUnique(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	std, err := svc.Create(ctx, newStudent("12345678901", "Ahmed Hassan", "Center A"))
	require.NoError(t, err)
	assert.NotEmpty(t, std.ID)

	_, err = svc.Create(ctx, newStudent("12345678901", "Someone Else", "Center B"))
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, student.ErrStudentIDExists, vErr.Err)
}

func Test_Service_GetByStudentID_normalizesDigits(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, newStudent("12345678901", "Ahmed Hassan", "Center A"))
	require.NoError(t, err)

	// formatted and Arabic-Indic digit variants resolve to the same student
	std, err := svc.GetByStudentID(ctx, "123-4567-8901")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Hassan", std.FullName)

	std, err = svc.GetByStudentID(ctx, "١٢٣٤٥٦٧٨٩٠١")
	require.NoError(t, err)
	assert.Equal(t, "Ahmed Hassan", std.FullName)
}

func Test_Service_Search(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, newStudent("12345678901", "Ahmed Hassan", "Center A"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, newStudent("22345678901", "Sara Adel", "Center B"))
	require.NoError(t, err)

	t.Run("too short", func(t *testing.T) {
		_, err := svc.Search(ctx, "a")
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("by name", func(t *testing.T) {
		matches, err := svc.Search(ctx, "sara")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "Sara Adel", matches[0].FullName)
	})

	t.Run("by ID fragment", func(t *testing.T) {
		matches, err := svc.Search(ctx, "22345")
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "22345678901", matches[0].StudentID)
	})

	t.Run("no match", func(t *testing.T) {
		matches, err := svc.Search(ctx, "zzz")
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func Test_Service_Update(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	std, err := svc.Create(ctx, student.NewStudent{
		StudentID:   "12345678901",
		FullName:    "Ahmed Hassan",
		PhoneNumber: "01000000000",
		Gender:      student.GenderMale,
		MainCenter:  "Center A",
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, std.ID, student.UpdateStudent{
		FullName:    "Ahmed H. Hassan",
		PhoneNumber: "01012345678",
		MainCenter:  "Center B",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ahmed H. Hassan", updated.FullName)
	assert.Equal(t, "Center B", updated.MainCenter)
	assert.Equal(t, "12345678901", updated.StudentID)
	// empty enum values leave the stored ones alone
	assert.Equal(t, student.GenderMale, updated.Gender)
}

func Test_Service_Delete_cascadesToRecords(t *testing.T) {
	svc, recordSvc := setup(t)
	ctx := context.Background()

	std, err := svc.Create(ctx, newStudent("12345678901", "Ahmed Hassan", "Center A"))
	require.NoError(t, err)
	_, err = recordSvc.Upsert(ctx, record.Record{
		StudentID: std.ID, SessionID: "sess1", Center: "Center A",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, std.ID))

	_, err = svc.GetByID(ctx, std.ID)
	assert.Equal(t, student.ErrNotFound, errors.Cause(err))

	recs, err := recordSvc.QueryByStudent(ctx, std.ID)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
