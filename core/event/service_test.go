package event_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
	inmemdb "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/inmem"
)

var now = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeCalendar struct {
	upserts []core.CalendarEvent
	fail    map[string]bool // by title
}

func (c *fakeCalendar) UpsertEvent(_ context.Context, ev core.CalendarEvent) (string, error) {
	c.upserts = append(c.upserts, ev)
	if c.fail[ev.Title] {
		return "", errors.New("calendar unavailable")
	}
	if ev.ExternalID != "" {
		return ev.ExternalID, nil
	}
	return "cal-" + ev.Title, nil
}

func newService(t *testing.T, calendar core.CalendarSyncer) *event.Service {
	t.Helper()
	event.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { event.NowFunc = time.Now })
	emailsvc.ResetSentMessages()

	conf := core.NewTestConfig()
	templates, err := notify.NewGenerator(conf)
	require.NoError(t, err)
	return event.NewService(inmemdb.NewEventRepository(inmemdb.Open()), calendar, emailsvc.NewConsoleServiceMock(conf), templates, core.NopLogger{})
}

func newEvent(title string, capacity int) event.NewEvent {
	return event.NewEvent{
		Title:     title,
		EventType: event.TypeCamp,
		StartDate: now.Add(7 * 24 * time.Hour),
		EndDate:   now.Add(7*24*time.Hour + 3*time.Hour),
		Venue:     "Zilker Park",
		Address:   "2100 Barton Springs Rd, Austin, TX",
		Capacity:  capacity,
	}
}

func newRegistration(student string) event.NewRegistration {
	return event.NewRegistration{ParentName: "Pat Doe", ParentEmail: "Pat@X.com", StudentName: student}
}

func publishedEvent(t *testing.T, svc *event.Service, title string, capacity int) event.Event {
	t.Helper()
	ctx := context.Background()
	ev, err := svc.CreateEvent(ctx, "coach-1", newEvent(title, capacity))
	require.NoError(t, err)
	ev, err = svc.Publish(ctx, "coach-1", ev.ID)
	require.NoError(t, err)
	return ev
}

func TestService_CreateEvent(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ev, err := svc.CreateEvent(ctx, "coach-1", newEvent("  Sprint Camp ", 10))
	require.NoError(t, err)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "Sprint Camp", ev.Title)
	assert.Equal(t, event.StatusDraft, ev.Status)
	assert.Equal(t, "coach-1", ev.CoachID)
	assert.Equal(t, now, ev.CreatedAt)
	assert.Equal(t, "Zilker Park, 2100 Barton Springs Rd, Austin, TX", ev.Location())

	t.Run("invalid", func(t *testing.T) {
		ne := newEvent("", -1)
		ne.EndDate = ne.StartDate.Add(-time.Hour)
		ne.EventType = "PARTY"
		_, err := svc.CreateEvent(ctx, "coach-1", ne)

		var vErr *core.ValidationError
		require.True(t, errors.As(err, &vErr))
		fields := make([]string, 0, len(vErr.Fields))
		for _, f := range vErr.Fields {
			fields = append(fields, f.Field)
		}
		assert.ElementsMatch(t, []string{"title", "event_type", "end_date", "capacity"}, fields)
	})

	t.Run("other coach", func(t *testing.T) {
		_, err := svc.GetCoachEvent(ctx, "coach-2", ev.ID)
		assert.True(t, errors.Is(err, event.ErrNotFound))

		_, err = svc.UpdateEvent(ctx, "coach-2", ev.ID, newEvent("Stolen", 1))
		assert.True(t, errors.Is(err, event.ErrNotFound))
	})
}

func TestService_StatusTransitions(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ev, err := svc.CreateEvent(ctx, "coach-1", newEvent("Tryouts", 0))
	require.NoError(t, err)

	_, err = svc.MarkCompleted(ctx, "coach-1", ev.ID)
	assert.True(t, errors.Is(err, event.ErrInvalidTransition), "a draft cannot complete")

	ev, err = svc.Publish(ctx, "coach-1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusPublished, ev.Status)

	_, err = svc.Publish(ctx, "coach-1", ev.ID)
	assert.True(t, errors.Is(err, event.ErrInvalidTransition))

	err = svc.DeleteEvent(ctx, "coach-1", ev.ID)
	assert.True(t, errors.Is(err, event.ErrInvalidTransition), "published events are cancelled, not deleted")

	ev, err = svc.Cancel(ctx, "coach-1", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, event.StatusCancelled, ev.Status)

	require.NoError(t, svc.DeleteEvent(ctx, "coach-1", ev.ID))
	_, err = svc.GetEvent(ctx, ev.ID)
	assert.True(t, errors.Is(err, event.ErrNotFound))
}

func TestService_QueryEvents(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	later := newEvent("Later", 0)
	later.StartDate = later.StartDate.Add(48 * time.Hour)
	later.EndDate = later.EndDate.Add(48 * time.Hour)
	_, err := svc.CreateEvent(ctx, "coach-1", later)
	require.NoError(t, err)
	publishedEvent(t, svc, "Sooner", 0)
	_, err = svc.CreateEvent(ctx, "coach-2", newEvent("Elsewhere", 0))
	require.NoError(t, err)

	events, err := svc.QueryEvents(ctx, &event.QueryFilter{CoachID: "coach-1"}, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Sooner", events[0].Title)
	assert.Equal(t, "Later", events[1].Title)

	events, err = svc.QueryEvents(ctx, &event.QueryFilter{CoachID: "coach-1", Statuses: []event.Status{event.StatusDraft}}, nil)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Later", events[0].Title)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	t.Run("draft event", func(t *testing.T) {
		ev, err := svc.CreateEvent(ctx, "coach-1", newEvent("Draft", 0))
		require.NoError(t, err)
		_, err = svc.Register(ctx, ev.ID, newRegistration("Sam"))
		assert.True(t, errors.Is(err, event.ErrNotOpen))
	})

	t.Run("deadline passed", func(t *testing.T) {
		ne := newEvent("Closed", 0)
		deadline := now.Add(-time.Hour)
		ne.RegistrationDeadline = &deadline
		ev, err := svc.CreateEvent(ctx, "coach-1", ne)
		require.NoError(t, err)
		_, err = svc.Publish(ctx, "coach-1", ev.ID)
		require.NoError(t, err)

		_, err = svc.Register(ctx, ev.ID, newRegistration("Sam"))
		assert.True(t, errors.Is(err, event.ErrNotOpen))
	})

	t.Run("capacity", func(t *testing.T) {
		ev := publishedEvent(t, svc, "Small Camp", 2)

		first, err := svc.Register(ctx, ev.ID, newRegistration("Sam"))
		require.NoError(t, err)
		assert.Equal(t, event.RegistrationConfirmed, first.Status)
		assert.Equal(t, "pat@x.com", first.ParentEmail)

		second, err := svc.Register(ctx, ev.ID, newRegistration("Ada"))
		require.NoError(t, err)
		assert.Equal(t, event.RegistrationConfirmed, second.Status)

		third, err := svc.Register(ctx, ev.ID, newRegistration("Max"))
		require.NoError(t, err)
		assert.Equal(t, event.RegistrationWaitlisted, third.Status)

		_, err = svc.UpdateRegistrationStatus(ctx, "coach-1", third.ID, event.RegistrationConfirmed)
		assert.True(t, errors.Is(err, event.ErrEventFull))

		_, err = svc.UpdateRegistrationStatus(ctx, "coach-1", first.ID, event.RegistrationCancelled)
		require.NoError(t, err)
		third, err = svc.UpdateRegistrationStatus(ctx, "coach-1", third.ID, event.RegistrationConfirmed)
		require.NoError(t, err)
		assert.Equal(t, event.RegistrationConfirmed, third.Status)

		_, err = svc.UpdateRegistrationStatus(ctx, "coach-1", first.ID, event.RegistrationConfirmed)
		assert.True(t, errors.Is(err, event.ErrInvalidTransition), "cancelled registrations stay cancelled")

		confirmed, err := svc.Registrations(ctx, "coach-1", ev.ID, event.RegistrationConfirmed)
		require.NoError(t, err)
		assert.Len(t, confirmed, 2)

		_, err = svc.Registrations(ctx, "coach-2", ev.ID)
		assert.True(t, errors.Is(err, event.ErrNotFound))
	})

	t.Run("paid event", func(t *testing.T) {
		ne := newEvent("Paid Clinic", 0)
		ne.PriceCents = 2500
		ev, err := svc.CreateEvent(ctx, "coach-1", ne)
		require.NoError(t, err)
		_, err = svc.Publish(ctx, "coach-1", ev.ID)
		require.NoError(t, err)

		reg, err := svc.Register(ctx, ev.ID, newRegistration("Sam"))
		require.NoError(t, err)
		assert.Equal(t, event.RegistrationPending, reg.Status)
	})

	t.Run("invalid", func(t *testing.T) {
		ev := publishedEvent(t, svc, "Open Camp", 0)
		_, err := svc.Register(ctx, ev.ID, event.NewRegistration{ParentName: " ", ParentEmail: "nope"})
		var vErr *core.ValidationError
		assert.True(t, errors.As(err, &vErr))
	})
}

func TestService_NotifyRegistrants(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	ev := publishedEvent(t, svc, "Sprint Camp", 1)
	_, err := svc.Register(ctx, ev.ID, newRegistration("Sam"))
	require.NoError(t, err)
	_, err = svc.Register(ctx, ev.ID, event.NewRegistration{ParentName: "Lee Roe", ParentEmail: "lee@x.com", StudentName: "Max"})
	require.NoError(t, err)
	emailsvc.ResetSentMessages()

	n, err := svc.NotifyRegistrants(ctx, "coach-1", ev.ID, "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only confirmed registrants are notified")

	sent := emailsvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "pat@x.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].Subject, "Sprint Camp")
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "event.ics", sent[0].Attachments[0].Filename)
	assert.Equal(t, "text/calendar", sent[0].Attachments[0].ContentType)
}

func TestService_Enrollments(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, nil)

	enr, err := svc.CreateEnrollment(ctx, "coach-1", event.NewEnrollment{
		StudentName:  "Sam Doe",
		ParentEmail:  "pat@x.com",
		GradeLevel:   "Third grade",
		AcademicYear: "2024-2025",
	})
	require.NoError(t, err)
	assert.Equal(t, event.EnrollmentPending, enr.Status)

	_, err = svc.CreateEnrollment(ctx, "coach-1", event.NewEnrollment{
		StudentName:  "Sam Doe",
		ParentEmail:  "pat@x.com",
		AcademicYear: "2024-2026",
	})
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "academic_year", vErr.Fields[0].Field)

	tests := []struct {
		status  event.EnrollmentStatus
		wantErr error
	}{
		{event.EnrollmentActive, event.ErrInvalidTransition},
		{event.EnrollmentApproved, nil},
		{event.EnrollmentActive, nil},
		{event.EnrollmentPending, event.ErrInvalidTransition},
		{event.EnrollmentWithdrawn, nil},
		{event.EnrollmentActive, event.ErrInvalidTransition},
	}
	for _, tt := range tests {
		got, err := svc.UpdateEnrollmentStatus(ctx, "coach-1", enr.ID, tt.status)
		if tt.wantErr != nil {
			assert.True(t, errors.Is(err, tt.wantErr), "to %s", tt.status)
			continue
		}
		require.NoError(t, err, "to %s", tt.status)
		assert.Equal(t, tt.status, got.Status)
	}

	_, err = svc.UpdateEnrollmentStatus(ctx, "coach-2", enr.ID, event.EnrollmentWithdrawn)
	assert.True(t, errors.Is(err, event.ErrEnrollmentNotFound))

	list, err := svc.QueryEnrollments(ctx, &event.EnrollmentFilter{CoachID: "coach-1", Search: "sam"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, event.EnrollmentWithdrawn, list[0].Status)
}

func TestService_SyncCalendar(t *testing.T) {
	ctx := context.Background()

	t.Run("no calendar", func(t *testing.T) {
		svc := newService(t, nil)
		_, err := svc.SyncCalendar(ctx, "coach-1")
		assert.ErrorIs(t, err, event.ErrNoCalendar)
	})

	cal := &fakeCalendar{fail: map[string]bool{"Broken": true}}
	svc := newService(t, cal)
	camp := publishedEvent(t, svc, "Camp", 0)
	broken := publishedEvent(t, svc, "Broken", 0)
	_, err := svc.CreateEvent(ctx, "coach-1", newEvent("Draft", 0))
	require.NoError(t, err)

	res, err := svc.SyncCalendar(ctx, "coach-1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Synced)
	assert.Equal(t, []string{broken.ID}, res.Failed)

	stored, err := svc.GetEvent(ctx, camp.ID)
	require.NoError(t, err)
	assert.Equal(t, "cal-Camp", stored.GoogleCalendarEventID)

	// a second run updates the existing calendar entry
	cal.upserts = nil
	_, err = svc.SyncCalendar(ctx, "coach-1")
	require.NoError(t, err)
	for _, up := range cal.upserts {
		if up.Title == "Camp" {
			assert.Equal(t, "cal-Camp", up.ExternalID)
		}
	}
}
