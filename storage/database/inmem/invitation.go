package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
)

var invitationColumns = map[string]lessFunc[invitation.Invitation]{
	"email":      func(a, b *invitation.Invitation) int { return strings.Compare(a.Email, b.Email) },
	"status":     func(a, b *invitation.Invitation) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"expires_at": func(a, b *invitation.Invitation) int { return a.ExpiresAt.Compare(b.ExpiresAt) },
	"created_at": func(a, b *invitation.Invitation) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type invitationRepository struct {
	db *table[string, invitation.Invitation]
}

var _ invitation.Repository = (*invitationRepository)(nil) // interface compliance check

func NewInvitationRepository(db *DB) invitation.Repository {
	return &invitationRepository{db: db.invitation}
}

// conflicts reports whether storing `inv` would break token uniqueness or leave two
// PENDING invitations for one email.
func (repo *invitationRepository) conflicts(inv invitation.Invitation) bool {
	_, ok := repo.db.first(func(other *invitation.Invitation) bool {
		if other.ID == inv.ID {
			return false
		}
		return other.Token == inv.Token || (inv.IsPending() && other.IsPending() && other.Email == inv.Email)
	})
	return ok
}

func (repo *invitationRepository) Create(_ context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.conflicts(inv) {
		return invitation.Invitation{}, invitation.ErrPendingExists
	}
	repo.db.rows[inv.ID] = &inv
	return inv, nil
}

func (repo *invitationRepository) getBy(keep func(*invitation.Invitation) bool) (invitation.Invitation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if inv, ok := repo.db.first(keep); ok {
		return inv, nil
	}
	return invitation.Invitation{}, invitation.ErrNotFound
}

func (repo *invitationRepository) GetByID(_ context.Context, id string) (invitation.Invitation, error) {
	return repo.getBy(func(inv *invitation.Invitation) bool { return inv.ID == id })
}

func (repo *invitationRepository) GetByToken(_ context.Context, token string) (invitation.Invitation, error) {
	return repo.getBy(func(inv *invitation.Invitation) bool { return inv.Token == token })
}

func (repo *invitationRepository) GetPendingByEmail(_ context.Context, email string) (invitation.Invitation, error) {
	return repo.getBy(func(inv *invitation.Invitation) bool { return inv.Email == email && inv.IsPending() })
}

func (repo *invitationRepository) Query(_ context.Context, filter *invitation.QueryFilter, ordering []core.DBOrdering) ([]invitation.Invitation, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	invs := repo.db.all(func(inv *invitation.Invitation) bool {
		if filter == nil {
			return true
		}
		if filter.Email != "" && inv.Email != core.CleanString(filter.Email, true /* lower */) {
			return false
		}
		if len(filter.Statuses) > 0 && !contains(filter.Statuses, inv.Status) {
			return false
		}
		return filter.Type == "" || inv.Type == filter.Type
	})
	less := sorter(ordering, invitationColumns, []core.DBOrdering{{Field: "created_at"}})
	sort.SliceStable(invs, func(i, j int) bool { return less(&invs[i], &invs[j]) })
	return invs, nil
}

func (repo *invitationRepository) Update(_ context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.rows[inv.ID]; !ok {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	if repo.conflicts(inv) {
		return invitation.Invitation{}, invitation.ErrPendingExists
	}
	repo.db.rows[inv.ID] = &inv
	return inv, nil
}

func (repo *invitationRepository) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for _, inv := range repo.db.rows {
		if inv.IsPending() && inv.IsExpired(now) {
			inv.Status = invitation.StatusExpired
			inv.UpdatedAt = now.UTC()
			n++
		}
	}
	return n, nil
}
