package center_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutabaa-app/mutabaa/core"
	"github.com/mutabaa-app/mutabaa/core/center"
	"github.com/mutabaa-app/mutabaa/core/record"
	dummydb "github.com/mutabaa-app/mutabaa/storage/dummy"
)

func setup(t *testing.T) (*center.Service, record.Repository) {
	t.Helper()
	db, err := dummydb.Open()
	require.NoError(t, err)

	recordRepo := dummydb.NewRecordRepository(db)
	return center.NewService(dummydb.NewCenterRepository(db), recordRepo), recordRepo
}

func Test_Service_Create_nameUnique(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, center.NewCenter{Name: "Center A"})
	require.NoError(t, err)

	// names are matched case insensitively
	_, err = svc.Create(ctx, center.NewCenter{Name: "center a"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}

func Test_Service_Rename(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	ctr, err := svc.Create(ctx, center.NewCenter{Name: "Center A"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, center.NewCenter{Name: "Center B"})
	require.NoError(t, err)

	t.Run("to a free name", func(t *testing.T) {
		renamed, err := svc.Rename(ctx, ctr.ID, center.NewCenter{Name: "Center C"})
		require.NoError(t, err)
		assert.Equal(t, "Center C", renamed.Name)
	})

	t.Run("to its own name", func(t *testing.T) {
		_, err := svc.Rename(ctx, ctr.ID, center.NewCenter{Name: "Center C"})
		assert.NoError(t, err)
	})

	t.Run("to a taken name", func(t *testing.T) {
		_, err := svc.Rename(ctx, ctr.ID, center.NewCenter{Name: "Center B"})
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})
}

func Test_Service_Delete_guarded(t *testing.T) {
	svc, recordRepo := setup(t)
	ctx := context.Background()

	ctr, err := svc.Create(ctx, center.NewCenter{Name: "Center A"})
	require.NoError(t, err)

	_, err = recordRepo.UpsertRecord(ctx, record.Record{
		StudentID: "std1", SessionID: "sess1", Center: "Center A", MainCenter: "Center A",
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, ctr.ID)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, err.Error(), "it is being used in 1 record(s)")

	// once the records are gone, deletion goes through
	_, err = recordRepo.DeleteRecordsByFilter(ctx, "sess1", "")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, ctr.ID))

	_, err = svc.GetByName(ctx, "Center A")
	assert.Equal(t, center.ErrNotFound, err)
}
