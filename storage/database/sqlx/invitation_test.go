package sqlxrepos

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
)

func newTestInvitation(email, token string, status invitation.Status, createdAt, expiresAt string) invitation.Invitation {
	ts := tstamp(createdAt)
	return invitation.Invitation{
		ID:        token + "-id",
		Email:     email,
		InvitedBy: "admin@example.com",
		Type:      invitation.TypeCoach,
		Status:    status,
		Token:     token,
		ExpiresAt: tstamp(expiresAt),
		FirstName: "Jane",
		LastName:  "Doe",
		Phone:     "+15551234567",
		City:      "Austin",
		State:     "TX",
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestInvitationRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(newTestDB(t))

	inv, err := repo.Create(ctx, newTestInvitation("jane@example.com", "tok1", invitation.StatusPending,
		"2024-03-01T10:00:00Z", "2024-03-31T10:00:00Z"))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv, got)

	got, err = repo.GetByToken(ctx, "tok1")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	got, err = repo.GetPendingByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = repo.GetByToken(ctx, "nope")
	assert.ErrorIs(t, err, invitation.ErrNotFound)
}

func TestInvitationRepository_SinglePendingPerEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(newTestDB(t))

	first, err := repo.Create(ctx, newTestInvitation("jane@example.com", "tok1", invitation.StatusPending,
		"2024-03-01T10:00:00Z", "2024-03-31T10:00:00Z"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newTestInvitation("jane@example.com", "tok2", invitation.StatusPending,
		"2024-03-02T10:00:00Z", "2024-04-01T10:00:00Z"))
	assert.ErrorIs(t, err, invitation.ErrPendingExists)

	first.Status = invitation.StatusRevoked
	first.UpdatedAt = tstamp("2024-03-02T10:00:00Z")
	_, err = repo.Update(ctx, first)
	require.NoError(t, err)

	_, err = repo.Create(ctx, newTestInvitation("jane@example.com", "tok2", invitation.StatusPending,
		"2024-03-02T10:00:00Z", "2024-04-01T10:00:00Z"))
	assert.NoError(t, err)
}

func TestInvitationRepository_Query(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(newTestDB(t))

	jane, err := repo.Create(ctx, newTestInvitation("jane@example.com", "tok1", invitation.StatusPending,
		"2024-03-01T10:00:00Z", "2024-03-31T10:00:00Z"))
	require.NoError(t, err)
	johnInv := newTestInvitation("john@example.com", "tok2", invitation.StatusAccepted,
		"2024-03-02T10:00:00Z", "2024-04-01T10:00:00Z")
	johnInv.Type = invitation.TypeParent
	john, err := repo.Create(ctx, johnInv)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter *invitation.QueryFilter
		want   []invitation.Invitation
	}{
		{name: "newest first", want: []invitation.Invitation{john, jane}},
		{name: "email", filter: &invitation.QueryFilter{Email: " JANE@example.com "}, want: []invitation.Invitation{jane}},
		{name: "statuses", filter: &invitation.QueryFilter{Statuses: []invitation.Status{invitation.StatusAccepted}}, want: []invitation.Invitation{john}},
		{name: "type", filter: &invitation.QueryFilter{Type: invitation.TypeCoach}, want: []invitation.Invitation{jane}},
		{name: "none", filter: &invitation.QueryFilter{Email: "nobody@example.com"}, want: []invitation.Invitation{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Query(ctx, tt.filter, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvitationRepository_ExpireBefore(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(newTestDB(t))

	stale, err := repo.Create(ctx, newTestInvitation("stale@example.com", "tok1", invitation.StatusPending,
		"2024-01-01T10:00:00Z", "2024-01-31T10:00:00Z"))
	require.NoError(t, err)
	fresh, err := repo.Create(ctx, newTestInvitation("fresh@example.com", "tok2", invitation.StatusPending,
		"2024-03-01T10:00:00Z", "2024-03-31T10:00:00Z"))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newTestInvitation("done@example.com", "tok3", invitation.StatusAccepted,
		"2024-01-01T10:00:00Z", "2024-01-31T10:00:00Z"))
	require.NoError(t, err)

	n, err := repo.ExpireBefore(ctx, tstamp("2024-02-15T00:00:00Z"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusExpired, got.Status)
	assert.Equal(t, tstamp("2024-02-15T00:00:00Z"), got.UpdatedAt)

	got, err = repo.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusPending, got.Status)

	n, err = repo.ExpireBefore(ctx, tstamp("2024-02-15T00:00:00Z"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestInvitationRepository_UpdateUnknown(t *testing.T) {
	repo := NewInvitationRepository(newTestDB(t))
	inv := newTestInvitation("jane@example.com", "tok1", invitation.StatusPending, "2024-03-01T10:00:00Z", "2024-03-31T10:00:00Z")
	_, err := repo.Update(context.Background(), inv)
	assert.ErrorIs(t, err, invitation.ErrNotFound)
}
