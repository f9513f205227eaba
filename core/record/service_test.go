package record_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/record"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

func setup(t *testing.T) *record.Service {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)
	return record.NewService(dummydb.NewRecordRepository(db))
}

func Test_Service_Upsert_insertDefaults(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	rec, err := svc.Upsert(ctx, record.Record{
		StudentID: "std1", SessionID: "sess1", Center: "Center A", MainCenter: "Center A",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, record.AttendanceAbsent, rec.Attendance)
	assert.Equal(t, record.NoGrade, rec.Grade)
	assert.False(t, rec.Issue)
}

func Test_Service_Upsert_mergesSetFieldsOnly(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, record.Record{
		StudentID: "std1", SessionID: "sess1",
		Attendance: record.AttendancePresent, Grade: "7",
		Center: "Center A", MainCenter: "Center A", Notes: "late",
	})
	require.NoError(t, err)

	// an issue-only upsert leaves everything else in place
	rec, err := svc.Upsert(ctx, record.Record{StudentID: "std1", SessionID: "sess1", Issue: true})
	require.NoError(t, err)
	assert.True(t, rec.Issue)
	assert.Equal(t, record.AttendancePresent, rec.Attendance)
	assert.Equal(t, "7", rec.Grade)
	assert.Equal(t, "Center A", rec.Center)
	assert.Equal(t, "late", rec.Notes)

	// Issue is never cleared by later upserts
	rec, err = svc.Upsert(ctx, record.Record{StudentID: "std1", SessionID: "sess1", Grade: "9"})
	require.NoError(t, err)
	assert.True(t, rec.Issue)
	assert.Equal(t, "9", rec.Grade)
}

func Test_Service_Upsert_validates(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  record.Record
	}{
		{"missing keys", record.Record{StudentID: "std1"}},
		{
			"makeup without reason",
			record.Record{StudentID: "std1", SessionID: "sess1", Attendance: record.AttendanceMakeup,
				Center: "Center A", MainCenter: "Center B"},
		},
		{
			"makeup at main center",
			record.Record{StudentID: "std1", SessionID: "sess1", Attendance: record.AttendanceMakeup,
				Center: "Center A", MainCenter: "Center A", MakeupReason: "reason"},
		},
		{
			"grade out of range",
			record.Record{StudentID: "std1", SessionID: "sess1", Grade: "101"},
		},
		{
			"grade not numeric",
			record.Record{StudentID: "std1", SessionID: "sess1", Grade: "lol"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, tt.rec)
			var vErr *core.ValidationError
			require.ErrorAs(t, err, &vErr)
		})
	}
}

func Test_Service_BulkInsert_skipsExistingPairs(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	_, err := svc.Upsert(ctx, record.Record{
		StudentID: "std1", SessionID: "sess1", Attendance: record.AttendancePresent,
	})
	require.NoError(t, err)

	err = svc.BulkInsert(ctx, []record.Record{
		{StudentID: "std1", SessionID: "sess1", Attendance: record.AttendanceAbsent},
		{StudentID: "std2", SessionID: "sess1", Attendance: record.AttendanceAbsent},
	})
	require.NoError(t, err)

	// the existing pair kept its attendance
	rec, err := svc.Get(ctx, "std1", "sess1")
	require.NoError(t, err)
	assert.Equal(t, record.AttendancePresent, rec.Attendance)

	recs, err := svc.QueryBySession(ctx, "sess1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func Test_Service_Filter(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	seed := []record.Record{
		{StudentID: "std1", SessionID: "sess1", Attendance: record.AttendancePresent, Grade: "7", Center: "Center A"},
		{StudentID: "std2", SessionID: "sess1", Attendance: record.AttendanceMakeup, Center: "Center A",
			MainCenter: "Center B", MakeupReason: "reason"},
		{StudentID: "std3", SessionID: "sess1", Attendance: record.AttendanceAbsent, Center: "Center A"},
		{StudentID: "std4", SessionID: "sess1", Attendance: record.AttendanceAbsent, Issue: true, Center: "Center B"},
		{StudentID: "std1", SessionID: "sess2", Attendance: record.AttendancePresent, Center: "Center A"},
	}
	for _, rec := range seed {
		_, err := svc.Upsert(ctx, rec)
		require.NoError(t, err)
	}
	bPtr := func(b bool) *bool { return &b }

	tests := []struct {
		name   string
		filter record.QueryFilter
		want   int
	}{
		{"by session", record.QueryFilter{SessionID: "sess1"}, 4},
		{"present or makeup", record.QueryFilter{SessionID: "sess1",
			Attendance: []record.Attendance{record.AttendancePresent, record.AttendanceMakeup}}, 2},
		{"absent", record.QueryFilter{SessionID: "sess1", Attendance: []record.Attendance{record.AttendanceAbsent}}, 2},
		{"attended center (case-insensitive)", record.QueryFilter{SessionID: "sess1", Center: "center a"}, 3},
		{"graded", record.QueryFilter{SessionID: "sess1", HasGrade: bPtr(true)}, 1},
		{"ungraded", record.QueryFilter{SessionID: "sess1", HasGrade: bPtr(false)}, 3},
		{"issues", record.QueryFilter{SessionID: "sess1", Issue: bPtr(true)}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := svc.Filter(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, recs, tt.want)
		})
	}
}

func Test_Service_DeleteByFilter(t *testing.T) {
	svc := setup(t)
	ctx := context.Background()

	for _, rec := range []record.Record{
		{StudentID: "std1", SessionID: "sess1", Center: "Center A"},
		{StudentID: "std2", SessionID: "sess1", Center: "Center B"},
		{StudentID: "std1", SessionID: "sess2", Center: "Center A"},
	} {
		_, err := svc.Upsert(ctx, rec)
		require.NoError(t, err)
	}

	_, err := svc.DeleteByFilter(ctx, "", "Center A")
	assert.Equal(t, record.ErrMissingKeys, err)

	deleted, err := svc.DeleteByFilter(ctx, "sess1", "Center A")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = svc.DeleteByFilter(ctx, "sess1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	recs, err := svc.QueryBySession(ctx, "sess2")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
