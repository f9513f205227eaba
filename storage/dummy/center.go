package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mutabaa-app/mutabaa/core/center"
)

type centerRepository struct {
	db *centerTable
}

var _ center.Repository = (*centerRepository)(nil) // interface compliance check

func NewCenterRepository(db *DB) center.Repository {
	return &centerRepository{db: db.center}
}

func (repo *centerRepository) CreateCenter(_ context.Context, ctr center.Center) (center.Center, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, c := range repo.db.table {
		if strings.EqualFold(c.Name, ctr.Name) {
			return center.Center{}, center.ErrNameExists
		}
	}
	ctr.ID = uuid.NewString()
	repo.db.table[ctr.ID] = &ctr
	return ctr, nil
}

func (repo *centerRepository) GetCenterByID(_ context.Context, id string) (center.Center, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ctr, ok := repo.db.table[id]; ok {
		return *ctr, nil
	}
	return center.Center{}, center.ErrNotFound
}

func (repo *centerRepository) GetCenterByName(_ context.Context, name string) (center.Center, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ctr := range repo.db.table {
		if strings.EqualFold(ctr.Name, name) {
			return *ctr, nil
		}
	}
	return center.Center{}, center.ErrNotFound
}

func (repo *centerRepository) QueryAllCenters(_ context.Context) ([]center.Center, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	centers := make([]center.Center, 0, len(repo.db.table))
	for _, ctr := range repo.db.table {
		centers = append(centers, *ctr)
	}
	sort.Slice(centers, func(i, j int) bool { return centers[i].Name < centers[j].Name })
	return centers, nil
}

func (repo *centerRepository) UpdateCenter(_ context.Context, ctr center.Center) (center.Center, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[ctr.ID]
	if !ok {
		return center.Center{}, center.ErrNotFound
	}
	for id, c := range repo.db.table {
		if id != ctr.ID && strings.EqualFold(c.Name, ctr.Name) {
			return center.Center{}, center.ErrNameExists
		}
	}
	orig.Name = ctr.Name
	orig.UpdatedAt = ctr.UpdatedAt
	return *orig, nil
}

func (repo *centerRepository) DeleteCenter(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return center.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
