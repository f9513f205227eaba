package center

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/mutabaa-app/mutabaa/core"
)

var (
	// errors
	ErrNotFound   = errors.New("center not found")
	ErrNameExists = errors.New("a center with this name already exists")
)

type (
	Repository interface {
		CreateCenter(ctx context.Context, ctr Center) (Center, error)
		GetCenterByID(ctx context.Context, id string) (Center, error)
		// GetCenterByName matches case-insensitively.
		GetCenterByName(ctx context.Context, name string) (Center, error)
		// QueryAllCenters returns centers sorted by name.
		QueryAllCenters(ctx context.Context) ([]Center, error)
		UpdateCenter(ctx context.Context, ctr Center) (Center, error)
		DeleteCenter(ctx context.Context, id string) error
	}

	// RecordCounter guards center deletion: a center referenced by any
	// record cannot be removed.
	RecordCounter interface {
		CountRecordsByCenter(ctx context.Context, center string) (int64, error)
	}

	Service struct {
		repo    Repository
		records RecordCounter
	}
)

func NewService(repo Repository, records RecordCounter) *Service {
	return &Service{repo: repo, records: records}
}

func (svc *Service) Create(ctx context.Context, nc NewCenter) (Center, error) {
	if err := svc.checkUniqueness(ctx, nc.Name, ""); err != nil {
		return Center{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateCenter(ctx, Center{Name: nc.Name, CreatedAt: now, UpdatedAt: now})
}

func (svc *Service) GetByName(ctx context.Context, name string) (Center, error) {
	return svc.repo.GetCenterByName(ctx, core.CleanString(name))
}

func (svc *Service) QueryAll(ctx context.Context) ([]Center, error) {
	return svc.repo.QueryAllCenters(ctx)
}

// Rename updates the center's display name. Student and record references
// carry the name as denormalized text and keep the old value; they are not
// rewritten here.
func (svc *Service) Rename(ctx context.Context, id string, nc NewCenter) (Center, error) {
	ctr, err := svc.repo.GetCenterByID(ctx, id)
	if err != nil {
		return Center{}, err
	}
	if err := svc.checkUniqueness(ctx, nc.Name, ctr.ID); err != nil {
		return Center{}, err
	}
	ctr.Name = nc.Name
	ctr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateCenter(ctx, ctr)
}

// Delete removes the center unless any record still references it by name.
func (svc *Service) Delete(ctx context.Context, id string) error {
	ctr, err := svc.repo.GetCenterByID(ctx, id)
	if err != nil {
		return err
	}
	count, err := svc.records.CountRecordsByCenter(ctx, ctr.Name)
	if err != nil {
		return errors.Wrap(err, "counting center records")
	}
	if count > 0 {
		return core.NewValidationError(fmt.Errorf(
			"cannot delete center: it is being used in %d record(s)", count))
	}
	return svc.repo.DeleteCenter(ctx, ctr.ID)
}

func (svc *Service) checkUniqueness(ctx context.Context, name, excludedID string) error {
	existing, err := svc.repo.GetCenterByName(ctx, name)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if existing.ID == excludedID {
		return nil
	}
	return core.NewValidationError(
		ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
}
