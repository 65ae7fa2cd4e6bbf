package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"gorm.io/datatypes"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
)

const progressColumns = "id, user_id, email, current_step, completed_steps, form_data, invitation_based, " +
	"invitation_id, profile_id, result, created_at, updated_at, completed_at"

type progressRow struct {
	ID              string                                  `db:"id"`
	UserID          string                                  `db:"user_id"`
	Email           string                                  `db:"email"`
	CurrentStep     string                                  `db:"current_step"`
	CompletedSteps  datatypes.JSONSlice[onboarding.Step]    `db:"completed_steps"`
	FormData        datatypes.JSONType[onboarding.FormData] `db:"form_data"`
	InvitationBased bool                                    `db:"invitation_based"`
	InvitationID    string                                  `db:"invitation_id"`
	ProfileID       string                                  `db:"profile_id"`
	Result          *datatypes.JSONType[edfi.Result]        `db:"result"`
	CreatedAt       time.Time                               `db:"created_at"`
	UpdatedAt       time.Time                               `db:"updated_at"`
	CompletedAt     *time.Time                              `db:"completed_at"`
}

type progressRepository struct {
	db *sqlx.DB
}

var _ onboarding.Repository = (*progressRepository)(nil) // interface compliance check

func NewProgressRepository(db *sqlx.DB) onboarding.Repository {
	return &progressRepository{db: db}
}

func toProgressRow(p onboarding.Progress) progressRow {
	row := progressRow{
		ID:              p.ID,
		UserID:          p.UserID,
		Email:           p.Email,
		CurrentStep:     string(p.CurrentStep),
		CompletedSteps:  datatypes.NewJSONSlice(nonNil(p.CompletedSteps)),
		FormData:        datatypes.NewJSONType(p.FormData),
		InvitationBased: p.InvitationBased,
		InvitationID:    p.InvitationID,
		ProfileID:       p.ProfileID,
		CreatedAt:       p.CreatedAt.UTC(),
		UpdatedAt:       p.UpdatedAt.UTC(),
		CompletedAt:     utcPtr(p.CompletedAt),
	}
	if p.Result != nil {
		res := datatypes.NewJSONType(*p.Result)
		row.Result = &res
	}
	return row
}

func (r progressRow) progress() onboarding.Progress {
	p := onboarding.Progress{
		ID:              r.ID,
		UserID:          r.UserID,
		Email:           r.Email,
		CurrentStep:     onboarding.Step(r.CurrentStep),
		CompletedSteps:  nonNil(r.CompletedSteps),
		FormData:        r.FormData.Data(),
		InvitationBased: r.InvitationBased,
		InvitationID:    r.InvitationID,
		ProfileID:       r.ProfileID,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
		CompletedAt:     utcPtr(r.CompletedAt),
	}
	if r.Result != nil {
		res := r.Result.Data()
		p.Result = &res
	}
	return p
}

func (repo progressRepository) Create(ctx context.Context, p onboarding.Progress) (onboarding.Progress, error) {
	row := toProgressRow(p)
	q := "INSERT INTO onboarding_progress (" + progressColumns + ") VALUES (:id, :user_id, :email, :current_step, " +
		":completed_steps, :form_data, :invitation_based, :invitation_id, :profile_id, :result, :created_at, " +
		":updated_at, :completed_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return onboarding.Progress{}, onboarding.ErrProgressExists
		}
		return onboarding.Progress{}, errors.Wrap(err, "inserting onboarding progress")
	}
	return row.progress(), nil
}

func (repo progressRepository) getBy(ctx context.Context, cond string, arg interface{}) (onboarding.Progress, error) {
	var row progressRow
	q := repo.db.Rebind("SELECT " + progressColumns + " FROM onboarding_progress WHERE " + cond +
		" ORDER BY updated_at DESC LIMIT 1")
	if err := repo.db.GetContext(ctx, &row, q, arg); err != nil {
		return onboarding.Progress{}, trapNoRowsErr(err, onboarding.ErrNotFound, "finding onboarding progress")
	}
	return row.progress(), nil
}

func (repo progressRepository) GetByEmail(ctx context.Context, email string) (onboarding.Progress, error) {
	return repo.getBy(ctx, "email = ?", email)
}

func (repo progressRepository) GetByUserID(ctx context.Context, userID string) (onboarding.Progress, error) {
	return repo.getBy(ctx, "user_id = ?", userID)
}

// Update overwrites the stored progress; the last write wins.
func (repo progressRepository) Update(ctx context.Context, p onboarding.Progress) (onboarding.Progress, error) {
	row := toProgressRow(p)
	q := "UPDATE onboarding_progress SET user_id = :user_id, email = :email, current_step = :current_step, " +
		"completed_steps = :completed_steps, form_data = :form_data, invitation_based = :invitation_based, " +
		"invitation_id = :invitation_id, profile_id = :profile_id, result = :result, updated_at = :updated_at, " +
		"completed_at = :completed_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return onboarding.Progress{}, errors.Wrap(err, "updating onboarding progress")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return onboarding.Progress{}, onboarding.ErrNotFound
	}
	return row.progress(), nil
}
