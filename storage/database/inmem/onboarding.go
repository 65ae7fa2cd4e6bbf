package inmemdb

import (
	"context"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
)

type progressRepository struct {
	db *table[string, onboarding.Progress]
}

var _ onboarding.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *DB) onboarding.Repository {
	return &progressRepository{db: db.progress}
}

func (repo *progressRepository) Create(_ context.Context, p onboarding.Progress) (onboarding.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.first(func(o *onboarding.Progress) bool { return o.Email == p.Email }); ok {
		return onboarding.Progress{}, onboarding.ErrProgressExists
	}
	p.CompletedSteps = nonNil(p.CompletedSteps)
	repo.db.rows[p.ID] = &p
	return p, nil
}

// getBy returns the most recently updated progress matching `keep`.
func (repo *progressRepository) getBy(keep func(*onboarding.Progress) bool) (onboarding.Progress, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var (
		found onboarding.Progress
		ok    bool
	)
	for _, p := range repo.db.all(keep) {
		if !ok || p.UpdatedAt.After(found.UpdatedAt) {
			found, ok = p, true
		}
	}
	if !ok {
		return onboarding.Progress{}, onboarding.ErrNotFound
	}
	return found, nil
}

func (repo *progressRepository) GetByEmail(_ context.Context, email string) (onboarding.Progress, error) {
	return repo.getBy(func(p *onboarding.Progress) bool { return p.Email == email })
}

func (repo *progressRepository) GetByUserID(_ context.Context, userID string) (onboarding.Progress, error) {
	return repo.getBy(func(p *onboarding.Progress) bool { return p.UserID == userID })
}

func (repo *progressRepository) Update(_ context.Context, p onboarding.Progress) (onboarding.Progress, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[p.ID]; !ok {
		return onboarding.Progress{}, onboarding.ErrNotFound
	}
	p.CompletedSteps = nonNil(p.CompletedSteps)
	repo.db.rows[p.ID] = &p
	return p, nil
}
