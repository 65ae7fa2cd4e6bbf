package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
)

var eventColumns = map[string]lessFunc[event.Event]{
	"title":      func(a, b *event.Event) int { return strings.Compare(a.Title, b.Title) },
	"status":     func(a, b *event.Event) int { return strings.Compare(string(a.Status), string(b.Status)) },
	"start_date": func(a, b *event.Event) int { return a.StartDate.Compare(b.StartDate) },
	"created_at": func(a, b *event.Event) int { return a.CreatedAt.Compare(b.CreatedAt) },
}

type eventRepository struct {
	event        *table[string, event.Event]
	registration *table[string, event.Registration]
	enrollment   *table[string, event.Enrollment]
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{event: db.event, registration: db.registration, enrollment: db.enrollment}
}

func (repo *eventRepository) CreateEvent(_ context.Context, ev event.Event) (event.Event, error) {
	repo.event.Lock()
	defer repo.event.Unlock()

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	repo.event.rows[ev.ID] = &ev
	return ev, nil
}

func (repo *eventRepository) GetEvent(_ context.Context, id string) (event.Event, error) {
	repo.event.RLock()
	defer repo.event.RUnlock()

	if ev, ok := repo.event.rows[id]; ok {
		return *ev, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	repo.event.RLock()
	defer repo.event.RUnlock()

	events := repo.event.all(func(ev *event.Event) bool {
		if filter == nil {
			return true
		}
		switch {
		case filter.CoachID != "" && ev.CoachID != filter.CoachID:
			return false
		case len(filter.Statuses) > 0 && !contains(filter.Statuses, ev.Status):
			return false
		case len(filter.Types) > 0 && !contains(filter.Types, ev.EventType):
			return false
		case filter.From != nil && ev.StartDate.Before(*filter.From):
			return false
		case filter.To != nil && !ev.StartDate.Before(*filter.To):
			return false
		}
		return true
	})
	less := sorter(ordering, eventColumns, []core.DBOrdering{{Field: "start_date", Ascending: true}})
	sort.SliceStable(events, func(i, j int) bool { return less(&events[i], &events[j]) })
	return events, nil
}

func (repo *eventRepository) UpdateEvent(_ context.Context, ev event.Event) (event.Event, error) {
	repo.event.Lock()
	defer repo.event.Unlock()

	orig, ok := repo.event.rows[ev.ID]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	ev.CreatedAt = orig.CreatedAt
	repo.event.rows[ev.ID] = &ev
	return ev, nil
}

// DeleteEvent removes the event along with its registrations.
func (repo *eventRepository) DeleteEvent(_ context.Context, id string) error {
	repo.event.Lock()
	defer repo.event.Unlock()
	repo.registration.Lock()
	defer repo.registration.Unlock()

	if _, ok := repo.event.rows[id]; !ok {
		return event.ErrNotFound
	}
	delete(repo.event.rows, id)
	for regID, reg := range repo.registration.rows {
		if reg.EventID == id {
			delete(repo.registration.rows, regID)
		}
	}
	return nil
}

func (repo *eventRepository) CreateRegistration(_ context.Context, reg event.Registration) (event.Registration, error) {
	repo.registration.Lock()
	defer repo.registration.Unlock()

	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	repo.registration.rows[reg.ID] = &reg
	return reg, nil
}

func (repo *eventRepository) GetRegistration(_ context.Context, id string) (event.Registration, error) {
	repo.registration.RLock()
	defer repo.registration.RUnlock()

	if reg, ok := repo.registration.rows[id]; ok {
		return *reg, nil
	}
	return event.Registration{}, event.ErrRegistrationNotFound
}

func (repo *eventRepository) registrations(eventID string, statuses []event.RegistrationStatus) []event.Registration {
	return repo.registration.all(func(reg *event.Registration) bool {
		return reg.EventID == eventID && (len(statuses) == 0 || contains(statuses, reg.Status))
	})
}

func (repo *eventRepository) QueryRegistrations(_ context.Context, eventID string, statuses ...event.RegistrationStatus) ([]event.Registration, error) {
	repo.registration.RLock()
	defer repo.registration.RUnlock()

	regs := repo.registrations(eventID, statuses)
	sort.SliceStable(regs, func(i, j int) bool { return regs[i].CreatedAt.Before(regs[j].CreatedAt) })
	return regs, nil
}

func (repo *eventRepository) CountRegistrations(_ context.Context, eventID string, statuses ...event.RegistrationStatus) (int, error) {
	repo.registration.RLock()
	defer repo.registration.RUnlock()
	return len(repo.registrations(eventID, statuses)), nil
}

func (repo *eventRepository) UpdateRegistration(_ context.Context, reg event.Registration) (event.Registration, error) {
	repo.registration.Lock()
	defer repo.registration.Unlock()

	orig, ok := repo.registration.rows[reg.ID]
	if !ok {
		return event.Registration{}, event.ErrRegistrationNotFound
	}
	reg.CreatedAt = orig.CreatedAt
	repo.registration.rows[reg.ID] = &reg
	return reg, nil
}

func (repo *eventRepository) CreateEnrollment(_ context.Context, enr event.Enrollment) (event.Enrollment, error) {
	repo.enrollment.Lock()
	defer repo.enrollment.Unlock()

	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	repo.enrollment.rows[enr.ID] = &enr
	return enr, nil
}

func (repo *eventRepository) GetEnrollment(_ context.Context, id string) (event.Enrollment, error) {
	repo.enrollment.RLock()
	defer repo.enrollment.RUnlock()

	if enr, ok := repo.enrollment.rows[id]; ok {
		return *enr, nil
	}
	return event.Enrollment{}, event.ErrEnrollmentNotFound
}

func (repo *eventRepository) QueryEnrollments(_ context.Context, filter *event.EnrollmentFilter) ([]event.Enrollment, error) {
	repo.enrollment.RLock()
	defer repo.enrollment.RUnlock()

	enrs := repo.enrollment.all(func(enr *event.Enrollment) bool {
		if filter == nil {
			return true
		}
		switch {
		case filter.CoachID != "" && enr.CoachID != filter.CoachID:
			return false
		case len(filter.Statuses) > 0 && !contains(filter.Statuses, enr.Status):
			return false
		case filter.Search != "" && !containsFold(enr.StudentName, filter.Search) && !containsFold(enr.ParentEmail, filter.Search):
			return false
		}
		return true
	})
	sort.SliceStable(enrs, func(i, j int) bool { return enrs[i].CreatedAt.After(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *eventRepository) UpdateEnrollment(_ context.Context, enr event.Enrollment) (event.Enrollment, error) {
	repo.enrollment.Lock()
	defer repo.enrollment.Unlock()

	orig, ok := repo.enrollment.rows[enr.ID]
	if !ok {
		return event.Enrollment{}, event.ErrEnrollmentNotFound
	}
	enr.CreatedAt = orig.CreatedAt
	repo.enrollment.rows[enr.ID] = &enr
	return enr, nil
}
