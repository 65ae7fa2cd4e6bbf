package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

const (
	userColumns    = "id, email, first_name, last_name, phone, role, is_active, identity_id, created_at, updated_at"
	profileColumns = "id, user_id, position, bio, years_experience, certifications, specialties, d1_athletics_count, created_at, updated_at"
)

var userOrderings = map[string]bool{"email": true, "first_name": true, "last_name": true, "role": true, "created_at": true}

type (
	userRow struct {
		ID         string    `db:"id"`
		Email      string    `db:"email"`
		FirstName  string    `db:"first_name"`
		LastName   string    `db:"last_name"`
		Phone      string    `db:"phone"`
		Role       string    `db:"role"`
		IsActive   bool      `db:"is_active"`
		IdentityID string    `db:"identity_id"`
		CreatedAt  time.Time `db:"created_at"`
		UpdatedAt  time.Time `db:"updated_at"`
	}

	profileRow struct {
		ID               string                      `db:"id"`
		UserID           string                      `db:"user_id"`
		Position         string                      `db:"position"`
		Bio              string                      `db:"bio"`
		YearsExperience  int                         `db:"years_experience"`
		Certifications   datatypes.JSONSlice[string] `db:"certifications"`
		Specialties      datatypes.JSONSlice[string] `db:"specialties"`
		D1AthleticsCount int                         `db:"d1_athletics_count"`
		CreatedAt        time.Time                   `db:"created_at"`
		UpdatedAt        time.Time                   `db:"updated_at"`
	}
)

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{db: db}
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:         usr.ID,
		Email:      usr.Email,
		FirstName:  usr.FirstName,
		LastName:   usr.LastName,
		Phone:      usr.Phone,
		Role:       string(usr.Role),
		IsActive:   usr.IsActive,
		IdentityID: usr.IdentityID,
		CreatedAt:  usr.CreatedAt.UTC(),
		UpdatedAt:  usr.UpdatedAt.UTC(),
	}
}

func (r userRow) user() user.User {
	return user.User{
		ID:         r.ID,
		Email:      r.Email,
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Phone:      r.Phone,
		Role:       user.Role(r.Role),
		IsActive:   r.IsActive,
		IdentityID: r.IdentityID,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func toProfileRow(p user.Profile) profileRow {
	return profileRow{
		ID:               p.ID,
		UserID:           p.UserID,
		Position:         p.Position,
		Bio:              p.Bio,
		YearsExperience:  p.YearsExperience,
		Certifications:   datatypes.NewJSONSlice(nonNil(p.Certifications)),
		Specialties:      datatypes.NewJSONSlice(nonNil(p.Specialties)),
		D1AthleticsCount: p.D1AthleticsCount,
		CreatedAt:        p.CreatedAt.UTC(),
		UpdatedAt:        p.UpdatedAt.UTC(),
	}
}

func (r profileRow) profile() user.Profile {
	return user.Profile{
		ID:               r.ID,
		UserID:           r.UserID,
		Position:         r.Position,
		Bio:              r.Bio,
		YearsExperience:  r.YearsExperience,
		Certifications:   nonNil(r.Certifications),
		Specialties:      nonNil(r.Specialties),
		D1AthleticsCount: r.D1AthleticsCount,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	row := toUserRow(usr)
	q := "INSERT INTO users (" + userColumns + ") VALUES " +
		"(:id, :email, :first_name, :last_name, :phone, :role, :is_active, :identity_id, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return row.user(), nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter) (user.User, error) {
	var w whereBuilder
	switch {
	case filter.ID != "":
		w.add("id = ?", filter.ID)
	case filter.Email != "":
		w.add("email = ?", filter.Email)
	default:
		return user.User{}, user.ErrNotFound
	}

	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String())
	if err := repo.db.GetContext(ctx, &row, q, w.args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return row.user(), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering) ([]user.User, error) {
	var w whereBuilder
	if filter != nil {
		// users with a name or email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			w.add(`(LOWER(first_name || ' ' || last_name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, val, val)
		}
		roles := make([]interface{}, 0, len(filter.Roles))
		for _, role := range filter.Roles {
			roles = append(roles, string(role))
		}
		w.in("role", roles)
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	var rows []userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users" + w.String() + orderBy(ordering, userOrderings, "created_at ASC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.user())
	}
	return users, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	row := toUserRow(usr)
	q := "UPDATE users SET email = :email, first_name = :first_name, last_name = :last_name, phone = :phone, " +
		"role = :role, is_active = :is_active, identity_id = :identity_id, updated_at = :updated_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, user.ErrEmailExists
		}
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
}

func (repo userRepository) CreateProfile(ctx context.Context, p user.Profile) (user.Profile, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := toProfileRow(p)
	q := "INSERT INTO profiles (" + profileColumns + ") VALUES (:id, :user_id, :position, :bio, :years_experience, " +
		":certifications, :specialties, :d1_athletics_count, :created_at, :updated_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return user.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return row.profile(), nil
}

func (repo userRepository) GetProfile(ctx context.Context, userID string) (user.Profile, error) {
	var row profileRow
	q := repo.db.Rebind("SELECT " + profileColumns + " FROM profiles WHERE user_id = ?")
	if err := repo.db.GetContext(ctx, &row, q, userID); err != nil {
		return user.Profile{}, trapNoRowsErr(err, user.ErrProfileNotFound, "finding profile")
	}
	return row.profile(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
