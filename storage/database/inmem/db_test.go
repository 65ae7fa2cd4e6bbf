package inmemdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(Open())

	jane, err := repo.CreateUser(ctx, user.User{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Role: user.RoleCoach, IsActive: true, CreatedAt: t0})
	require.NoError(t, err)
	bob, err := repo.CreateUser(ctx, user.User{Email: "bob@example.com", FirstName: "Bob", Role: user.RoleParent, CreatedAt: t0.Add(time.Hour)})
	require.NoError(t, err)

	_, err = repo.CreateUser(ctx, user.User{Email: "jane@example.com"})
	assert.ErrorIs(t, err, user.ErrEmailExists)

	got, err := repo.QueryUsers(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []user.User{jane, bob}, got)

	got, err = repo.QueryUsers(ctx, nil, []core.DBOrdering{{Field: "email", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, []user.User{bob, jane}, got)

	active := true
	got, err = repo.QueryUsers(ctx, &user.QueryFilter{Search: "DOE", IsActive: &active}, nil)
	require.NoError(t, err)
	assert.Equal(t, []user.User{jane}, got)

	bob.Email = "jane@example.com"
	_, err = repo.UpdateUser(ctx, bob)
	assert.ErrorIs(t, err, user.ErrEmailExists)

	_, err = repo.GetUser(ctx, user.GetFilter{ID: "missing"})
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestInvitationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewInvitationRepository(Open())

	inv := invitation.Invitation{ID: "1", Email: "jane@example.com", Token: "a", Status: invitation.StatusPending, ExpiresAt: t0, CreatedAt: t0}
	_, err := repo.Create(ctx, inv)
	require.NoError(t, err)

	_, err = repo.Create(ctx, invitation.Invitation{ID: "2", Email: "jane@example.com", Token: "b", Status: invitation.StatusPending})
	assert.ErrorIs(t, err, invitation.ErrPendingExists)
	_, err = repo.Create(ctx, invitation.Invitation{ID: "3", Email: "bob@example.com", Token: "a", Status: invitation.StatusPending})
	assert.ErrorIs(t, err, invitation.ErrPendingExists)

	n, err := repo.ExpireBefore(ctx, t0.Add(-time.Second))
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = repo.ExpireBefore(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByToken(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, invitation.StatusExpired, got.Status)

	_, err = repo.GetPendingByEmail(ctx, "jane@example.com")
	assert.ErrorIs(t, err, invitation.ErrNotFound)
}

func TestEdfiRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewEdfiRepository(Open())

	org, err := repo.CreateEducationOrganization(ctx, edfi.EducationOrganization{ID: 1, NameOfInstitution: "Austin Academy", Address: edfi.Address{StateAbbreviation: "TX"}})
	require.NoError(t, err)
	got, err := repo.FindEducationOrganization(ctx, "AUSTIN academy", "TX")
	require.NoError(t, err)
	assert.Equal(t, org, got)

	_, err = repo.CreateSchool(ctx, edfi.School{ID: 2, EducationOrganizationID: 1})
	require.NoError(t, err)
	_, err = repo.CreateSchool(ctx, edfi.School{ID: 3, EducationOrganizationID: 1})
	assert.ErrorIs(t, err, edfi.ErrDuplicate)

	for i, name := range []string{"Zoe", "Adam"} {
		_, err := repo.CreateStudent(ctx, edfi.Student{StudentUSI: int64(10 + i), SchoolID: 2, FirstName: name, LastSurname: "Smith"})
		require.NoError(t, err)
	}
	students, err := repo.QueryStudents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Adam", students[0].FirstName)

	_, err = repo.GetStaffByUserID(ctx, "nobody")
	assert.ErrorIs(t, err, edfi.ErrNotFound)
}

func TestEventRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(Open())

	ev, err := repo.CreateEvent(ctx, event.Event{Title: "Camp", StartDate: t0})
	require.NoError(t, err)
	_, err = repo.CreateRegistration(ctx, event.Registration{EventID: ev.ID, Status: event.RegistrationConfirmed})
	require.NoError(t, err)

	n, err := repo.CountRegistrations(ctx, ev.ID, event.RegistrationConfirmed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))
	n, err = repo.CountRegistrations(ctx, ev.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, repo.DeleteEvent(ctx, ev.ID), event.ErrNotFound)
}
