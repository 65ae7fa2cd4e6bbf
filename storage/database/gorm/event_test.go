package gormrepos

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/storage/database"
)

func newTestRepo(t *testing.T) event.Repository {
	t.Helper()
	sqlDB, err := sql.Open(sqlite.DriverName, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(context.Background(), sqlx.NewDb(sqlDB, sqlite.DriverName)))

	gdb, err := open(sqlite.Dialector{Conn: sqlDB}, core.NewTestConfig())
	require.NoError(t, err)
	return NewEventRepository(gdb)
}

func tstamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UTC()
}

func newTestEvent(coachID, title string, typ event.Type, status event.Status, start string) event.Event {
	st := tstamp(start)
	return event.Event{
		CoachID:   coachID,
		Title:     title,
		EventType: typ,
		Status:    status,
		StartDate: st,
		EndDate:   st.Add(2 * time.Hour),
		Venue:     "Main Gym",
		Capacity:  20,
		CreatedAt: st.Add(-24 * time.Hour),
		UpdatedAt: st.Add(-24 * time.Hour),
	}
}

func TestEventRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	deadline := tstamp("2024-05-30T00:00:00Z")
	in := newTestEvent("coach-1", "Summer Camp", event.TypeCamp, event.StatusDraft, "2024-06-01T15:00:00Z")
	in.RegistrationDeadline = &deadline
	ev, err := repo.CreateEvent(ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)

	got, err := repo.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	ev.Status = event.StatusPublished
	ev.GoogleCalendarEventID = "gcal-1"
	ev.RegistrationDeadline = nil
	ev.UpdatedAt = tstamp("2024-05-02T00:00:00Z")
	got, err = repo.UpdateEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = repo.UpdateEvent(ctx, event.Event{ID: "missing"})
	assert.ErrorIs(t, err, event.ErrNotFound)

	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))
	_, err = repo.GetEvent(ctx, ev.ID)
	assert.ErrorIs(t, err, event.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteEvent(ctx, ev.ID), event.ErrNotFound)
}

func TestEventRepository_QueryEvents(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	camp, err := repo.CreateEvent(ctx, newTestEvent("coach-1", "Camp", event.TypeCamp, event.StatusPublished, "2024-06-01T15:00:00Z"))
	require.NoError(t, err)
	game, err := repo.CreateEvent(ctx, newTestEvent("coach-1", "Game", event.TypeGame, event.StatusDraft, "2024-05-01T15:00:00Z"))
	require.NoError(t, err)
	other, err := repo.CreateEvent(ctx, newTestEvent("coach-2", "Tryout", event.TypeTryout, event.StatusPublished, "2024-05-15T15:00:00Z"))
	require.NoError(t, err)

	from, to := tstamp("2024-05-10T00:00:00Z"), tstamp("2024-06-10T00:00:00Z")
	tests := []struct {
		name     string
		filter   *event.QueryFilter
		ordering []core.DBOrdering
		want     []event.Event
	}{
		{name: "all by start date", want: []event.Event{game, other, camp}},
		{name: "coach", filter: &event.QueryFilter{CoachID: "coach-1"}, want: []event.Event{game, camp}},
		{name: "statuses", filter: &event.QueryFilter{Statuses: []event.Status{event.StatusPublished}}, want: []event.Event{other, camp}},
		{name: "types", filter: &event.QueryFilter{Types: []event.Type{event.TypeGame, event.TypeTryout}}, want: []event.Event{game, other}},
		{name: "window", filter: &event.QueryFilter{From: &from, To: &to}, want: []event.Event{other, camp}},
		{name: "ordered", ordering: []core.DBOrdering{{Field: "title", Ascending: true}}, want: []event.Event{camp, game, other}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.QueryEvents(ctx, tt.filter, tt.ordering)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEventRepository_Registrations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	ev, err := repo.CreateEvent(ctx, newTestEvent("coach-1", "Camp", event.TypeCamp, event.StatusPublished, "2024-06-01T15:00:00Z"))
	require.NoError(t, err)

	ts := tstamp("2024-05-01T00:00:00Z")
	var regs []event.Registration
	for i, st := range []event.RegistrationStatus{event.RegistrationConfirmed, event.RegistrationPending, event.RegistrationCancelled} {
		reg, err := repo.CreateRegistration(ctx, event.Registration{
			EventID:     ev.ID,
			ParentName:  "John Smith",
			ParentEmail: "john@example.com",
			StudentName: "Kid",
			Status:      st,
			CreatedAt:   ts.Add(time.Duration(i) * time.Minute),
			UpdatedAt:   ts.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		regs = append(regs, reg)
	}

	n, err := repo.CountRegistrations(ctx, ev.ID, event.RegistrationConfirmed, event.RegistrationPending)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	n, err = repo.CountRegistrations(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := repo.QueryRegistrations(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, regs, got)

	regs[1].Status = event.RegistrationConfirmed
	updated, err := repo.UpdateRegistration(ctx, regs[1])
	require.NoError(t, err)
	assert.Equal(t, event.RegistrationConfirmed, updated.Status)

	got, err = repo.QueryRegistrations(ctx, ev.ID, event.RegistrationConfirmed)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = repo.GetRegistration(ctx, "missing")
	assert.ErrorIs(t, err, event.ErrRegistrationNotFound)

	require.NoError(t, repo.DeleteEvent(ctx, ev.ID))
	n, err = repo.CountRegistrations(ctx, ev.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEventRepository_Enrollments(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	ts := tstamp("2024-05-01T00:00:00Z")
	start := tstamp("2024-09-01T00:00:00Z")
	first, err := repo.CreateEnrollment(ctx, event.Enrollment{
		CoachID:      "coach-1",
		StudentName:  "Zoe Smith",
		ParentEmail:  "john@example.com",
		AcademicYear: "2024-2025",
		Status:       event.EnrollmentPending,
		StartDate:    &start,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	})
	require.NoError(t, err)
	second, err := repo.CreateEnrollment(ctx, event.Enrollment{
		CoachID:      "coach-1",
		StudentName:  "Adam Jones",
		ParentEmail:  "mary@example.com",
		AcademicYear: "2024-2025",
		Status:       event.EnrollmentApproved,
		CreatedAt:    ts.Add(time.Hour),
		UpdatedAt:    ts.Add(time.Hour),
	})
	require.NoError(t, err)

	got, err := repo.QueryEnrollments(ctx, &event.EnrollmentFilter{CoachID: "coach-1"})
	require.NoError(t, err)
	assert.Equal(t, []event.Enrollment{second, first}, got)

	got, err = repo.QueryEnrollments(ctx, &event.EnrollmentFilter{Search: "JOHN@"})
	require.NoError(t, err)
	assert.Equal(t, []event.Enrollment{first}, got)

	got, err = repo.QueryEnrollments(ctx, &event.EnrollmentFilter{Statuses: []event.EnrollmentStatus{event.EnrollmentApproved}})
	require.NoError(t, err)
	assert.Equal(t, []event.Enrollment{second}, got)

	first.Status = event.EnrollmentApproved
	first.Notes = "welcome"
	updated, err := repo.UpdateEnrollment(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, updated)

	_, err = repo.GetEnrollment(ctx, "missing")
	assert.ErrorIs(t, err, event.ErrEnrollmentNotFound)
	_, err = repo.UpdateEnrollment(ctx, event.Enrollment{ID: "missing"})
	assert.ErrorIs(t, err, event.ErrEnrollmentNotFound)
}
