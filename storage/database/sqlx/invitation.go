package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
)

const invitationColumns = "id, email, invited_by, type, status, token, expires_at, first_name, last_name, phone, " +
	"city, state, bio, d1_athletics_count, school_name, school_type, sport, student_name, student_grade, message, " +
	"created_at, updated_at, accepted_at"

var invitationOrderings = map[string]bool{"email": true, "status": true, "expires_at": true, "created_at": true}

type invitationRow struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	InvitedBy        string     `db:"invited_by"`
	Type             string     `db:"type"`
	Status           string     `db:"status"`
	Token            string     `db:"token"`
	ExpiresAt        time.Time  `db:"expires_at"`
	FirstName        string     `db:"first_name"`
	LastName         string     `db:"last_name"`
	Phone            string     `db:"phone"`
	City             string     `db:"city"`
	State            string     `db:"state"`
	Bio              string     `db:"bio"`
	D1AthleticsCount int        `db:"d1_athletics_count"`
	SchoolName       string     `db:"school_name"`
	SchoolType       string     `db:"school_type"`
	Sport            string     `db:"sport"`
	StudentName      string     `db:"student_name"`
	StudentGrade     string     `db:"student_grade"`
	Message          string     `db:"message"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	AcceptedAt       *time.Time `db:"accepted_at"`
}

type invitationRepository struct {
	db *sqlx.DB
}

var _ invitation.Repository = (*invitationRepository)(nil) // interface compliance check

func NewInvitationRepository(db *sqlx.DB) invitation.Repository {
	return &invitationRepository{db: db}
}

func toInvitationRow(inv invitation.Invitation) invitationRow {
	return invitationRow{
		ID:               inv.ID,
		Email:            inv.Email,
		InvitedBy:        inv.InvitedBy,
		Type:             string(inv.Type),
		Status:           string(inv.Status),
		Token:            inv.Token,
		ExpiresAt:        inv.ExpiresAt.UTC(),
		FirstName:        inv.FirstName,
		LastName:         inv.LastName,
		Phone:            inv.Phone,
		City:             inv.City,
		State:            inv.State,
		Bio:              inv.Bio,
		D1AthleticsCount: inv.D1AthleticsCount,
		SchoolName:       inv.SchoolName,
		SchoolType:       inv.SchoolType,
		Sport:            inv.Sport,
		StudentName:      inv.StudentName,
		StudentGrade:     inv.StudentGrade,
		Message:          inv.Message,
		CreatedAt:        inv.CreatedAt.UTC(),
		UpdatedAt:        inv.UpdatedAt.UTC(),
		AcceptedAt:       utcPtr(inv.AcceptedAt),
	}
}

func (r invitationRow) invitation() invitation.Invitation {
	return invitation.Invitation{
		ID:               r.ID,
		Email:            r.Email,
		InvitedBy:        r.InvitedBy,
		Type:             invitation.Type(r.Type),
		Status:           invitation.Status(r.Status),
		Token:            r.Token,
		ExpiresAt:        r.ExpiresAt.UTC(),
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		Phone:            r.Phone,
		City:             r.City,
		State:            r.State,
		Bio:              r.Bio,
		D1AthleticsCount: r.D1AthleticsCount,
		SchoolName:       r.SchoolName,
		SchoolType:       r.SchoolType,
		Sport:            r.Sport,
		StudentName:      r.StudentName,
		StudentGrade:     r.StudentGrade,
		Message:          r.Message,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		AcceptedAt:       utcPtr(r.AcceptedAt),
	}
}

func (repo invitationRepository) Create(ctx context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	row := toInvitationRow(inv)
	q := "INSERT INTO invitations (" + invitationColumns + ") VALUES (:id, :email, :invited_by, :type, :status, " +
		":token, :expires_at, :first_name, :last_name, :phone, :city, :state, :bio, :d1_athletics_count, " +
		":school_name, :school_type, :sport, :student_name, :student_grade, :message, :created_at, :updated_at, :accepted_at)"
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		if isUniqueViolation(err) {
			return invitation.Invitation{}, invitation.ErrPendingExists
		}
		return invitation.Invitation{}, errors.Wrap(err, "inserting invitation")
	}
	return row.invitation(), nil
}

func (repo invitationRepository) getBy(ctx context.Context, cond string, args ...interface{}) (invitation.Invitation, error) {
	var row invitationRow
	q := repo.db.Rebind("SELECT " + invitationColumns + " FROM invitations WHERE " + cond)
	if err := repo.db.GetContext(ctx, &row, q, args...); err != nil {
		return invitation.Invitation{}, trapNoRowsErr(err, invitation.ErrNotFound, "finding invitation")
	}
	return row.invitation(), nil
}

func (repo invitationRepository) GetByID(ctx context.Context, id string) (invitation.Invitation, error) {
	return repo.getBy(ctx, "id = ?", id)
}

func (repo invitationRepository) GetByToken(ctx context.Context, token string) (invitation.Invitation, error) {
	return repo.getBy(ctx, "token = ?", token)
}

func (repo invitationRepository) GetPendingByEmail(ctx context.Context, email string) (invitation.Invitation, error) {
	return repo.getBy(ctx, "email = ? AND status = ?", email, string(invitation.StatusPending))
}

func (repo invitationRepository) Query(ctx context.Context, filter *invitation.QueryFilter, ordering []core.DBOrdering) ([]invitation.Invitation, error) {
	var w whereBuilder
	if filter != nil {
		if filter.Email != "" {
			w.add("email = ?", core.CleanString(filter.Email, true /* lower */))
		}
		statuses := make([]interface{}, 0, len(filter.Statuses))
		for _, st := range filter.Statuses {
			statuses = append(statuses, string(st))
		}
		w.in("status", statuses)
		if filter.Type != "" {
			w.add("type = ?", string(filter.Type))
		}
	}

	var rows []invitationRow
	q := repo.db.Rebind("SELECT " + invitationColumns + " FROM invitations" + w.String() +
		orderBy(ordering, invitationOrderings, "created_at DESC"))
	if err := repo.db.SelectContext(ctx, &rows, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying invitations")
	}
	invs := make([]invitation.Invitation, 0, len(rows))
	for _, row := range rows {
		invs = append(invs, row.invitation())
	}
	return invs, nil
}

func (repo invitationRepository) Update(ctx context.Context, inv invitation.Invitation) (invitation.Invitation, error) {
	row := toInvitationRow(inv)
	q := "UPDATE invitations SET email = :email, invited_by = :invited_by, type = :type, status = :status, " +
		"token = :token, expires_at = :expires_at, first_name = :first_name, last_name = :last_name, phone = :phone, " +
		"city = :city, state = :state, bio = :bio, d1_athletics_count = :d1_athletics_count, " +
		"school_name = :school_name, school_type = :school_type, sport = :sport, student_name = :student_name, " +
		"student_grade = :student_grade, message = :message, updated_at = :updated_at, accepted_at = :accepted_at " +
		"WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		if isUniqueViolation(err) {
			return invitation.Invitation{}, invitation.ErrPendingExists
		}
		return invitation.Invitation{}, errors.Wrap(err, "updating invitation")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return invitation.Invitation{}, invitation.ErrNotFound
	}
	return row.invitation(), nil
}

func (repo invitationRepository) ExpireBefore(ctx context.Context, now time.Time) (int64, error) {
	now = now.UTC()
	q := repo.db.Rebind("UPDATE invitations SET status = ?, updated_at = ? WHERE status = ? AND expires_at <= ?")
	res, err := repo.db.ExecContext(ctx, q, string(invitation.StatusExpired), now, string(invitation.StatusPending), now)
	if err != nil {
		return 0, errors.Wrap(err, "expiring invitations")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "expiring invitations")
	}
	return n, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
