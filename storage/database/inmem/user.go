package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

var userColumns = map[string]lessFunc[user.User]{
	"email":      func(a, b *user.User) int { return strings.Compare(a.Email, b.Email) },
	"first_name": func(a, b *user.User) int { return strings.Compare(a.FirstName, b.FirstName) },
	"last_name":  func(a, b *user.User) int { return strings.Compare(a.LastName, b.LastName) },
	"role":       func(a, b *user.User) int { return strings.Compare(string(a.Role), string(b.Role)) },
	"created_at": func(a, b *user.User) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type userRepository struct {
	db      *table[string, user.User]
	profile *table[string, user.Profile]
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user, profile: db.profile}
}

func (repo *userRepository) emailTaken(email, exceptID string) bool {
	_, ok := repo.db.first(func(u *user.User) bool { return u.Email == email && u.ID != exceptID })
	return ok
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.emailTaken(usr.Email, "") {
		return user.User{}, user.ErrEmailExists
	}
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	repo.db.rows[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.rows[filter.ID]; ok {
			return *usr, nil
		}
	case filter.Email != "":
		if usr, ok := repo.db.first(func(u *user.User) bool { return u.Email == filter.Email }); ok {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.db.all(func(u *user.User) bool {
		if filter == nil {
			return true
		}
		if filter.Search != "" && !containsFold(u.FullName(), filter.Search) && !containsFold(u.Email, filter.Search) {
			return false
		}
		if len(filter.Roles) > 0 && !contains(filter.Roles, u.Role) {
			return false
		}
		return filter.IsActive == nil || u.IsActive == *filter.IsActive
	})
	less := sorter(ordering, userColumns, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	sort.SliceStable(users, func(i, j int) bool { return less(&users[i], &users[j]) })
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.rows[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if repo.emailTaken(usr.Email, usr.ID) {
		return user.User{}, user.ErrEmailExists
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.rows[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) CreateProfile(_ context.Context, p user.Profile) (user.Profile, error) {
	repo.profile.Lock()
	defer repo.profile.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Certifications = nonNil(p.Certifications)
	p.Specialties = nonNil(p.Specialties)
	repo.profile.rows[p.UserID] = &p
	return p, nil
}

func (repo *userRepository) GetProfile(_ context.Context, userID string) (user.Profile, error) {
	repo.profile.RLock()
	defer repo.profile.RUnlock()

	if p, ok := repo.profile.rows[userID]; ok {
		return *p, nil
	}
	return user.Profile{}, user.ErrProfileNotFound
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
