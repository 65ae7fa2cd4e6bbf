// Package event manages the events coaches schedule, the registrations parents make for
// them and the enrollments of students in a coach's school.
package event

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound             = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrEnrollmentNotFound   = errors.New("enrollment not found")
	ErrInvalidTransition    = errors.New("this status change is not allowed")
	ErrNotOpen              = errors.New("event is not open for registration")
	ErrEventFull            = errors.New("event is full")
	ErrNoCalendar           = errors.New("no calendar configured")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, ev Event) (Event, error)
		GetEvent(ctx context.Context, id string) (Event, error)
		QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error)
		UpdateEvent(ctx context.Context, ev Event) (Event, error)
		DeleteEvent(ctx context.Context, id string) error

		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		GetRegistration(ctx context.Context, id string) (Registration, error)
		QueryRegistrations(ctx context.Context, eventID string, statuses ...RegistrationStatus) ([]Registration, error)
		CountRegistrations(ctx context.Context, eventID string, statuses ...RegistrationStatus) (int, error)
		UpdateRegistration(ctx context.Context, reg Registration) (Registration, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, filter *EnrollmentFilter) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	}

	// SyncResult summarizes a calendar synchronization.
	SyncResult struct {
		Synced int      `json:"synced"`
		Failed []string `json:"failed"`
	}

	Service struct {
		repo       Repository
		calendar   core.CalendarSyncer
		mailSvc    core.EmailService
		templates  *notify.Generator
		logger     core.Logger
		validate   *validator.Validate
		translator ut.Translator
	}
)

// NewService returns the event service. `calendar` may be nil when no calendar is
// configured, SyncCalendar then fails.
func NewService(
	repo Repository,
	calendar core.CalendarSyncer,
	mailSvc core.EmailService,
	templates *notify.Generator,
	logger core.Logger,
) *Service {
	validate, translator := core.NewValidator()
	InitValidators(validate, translator)

	return &Service{
		repo:       repo,
		calendar:   calendar,
		mailSvc:    mailSvc,
		templates:  templates,
		logger:     logger,
		validate:   validate,
		translator: translator,
	}
}

func (svc *Service) validateStruct(s interface{}) error {
	return core.TranslateValidationErrors(svc.validate.Struct(s), svc.translator)
}

func (svc *Service) CreateEvent(ctx context.Context, coachID string, ne NewEvent) (Event, error) {
	ne.Clean()
	if err := svc.validateStruct(ne); err != nil {
		return Event{}, err
	}
	now := NowFunc().UTC()
	ev := Event{
		ID:        uuid.NewString(),
		CoachID:   coachID,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ev.apply(ne)
	return svc.repo.CreateEvent(ctx, ev)
}

func (ev *Event) apply(ne NewEvent) {
	ev.Title = ne.Title
	ev.Description = ne.Description
	ev.EventType = ne.EventType
	ev.StartDate = ne.StartDate.UTC()
	ev.EndDate = ne.EndDate.UTC()
	ev.Venue = ne.Venue
	ev.Address = ne.Address
	ev.Capacity = ne.Capacity
	ev.PriceCents = ne.PriceCents
	ev.MeetingURL = ne.MeetingURL
	ev.RegistrationDeadline = nil
	if ne.RegistrationDeadline != nil {
		d := ne.RegistrationDeadline.UTC()
		ev.RegistrationDeadline = &d
	}
}

func (svc *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	return svc.repo.GetEvent(ctx, id)
}

// GetCoachEvent returns the event `id` when it belongs to `coachID`.
func (svc *Service) GetCoachEvent(ctx context.Context, coachID, id string) (Event, error) {
	ev, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if ev.CoachID != coachID {
		return Event{}, ErrNotFound
	}
	return ev, nil
}

func (svc *Service) QueryEvents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Event, error) {
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "start_date", Ascending: true}}
	}
	return svc.repo.QueryEvents(ctx, filter, ordering)
}

// UpdateEvent replaces the details of an event. Last write wins.
func (svc *Service) UpdateEvent(ctx context.Context, coachID, id string, ne NewEvent) (Event, error) {
	ne.Clean()
	if err := svc.validateStruct(ne); err != nil {
		return Event{}, err
	}
	ev, err := svc.GetCoachEvent(ctx, coachID, id)
	if err != nil {
		return Event{}, err
	}
	ev.apply(ne)
	ev.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, ev)
}

// DeleteEvent deletes a DRAFT or CANCELLED event.
func (svc *Service) DeleteEvent(ctx context.Context, coachID, id string) error {
	ev, err := svc.GetCoachEvent(ctx, coachID, id)
	if err != nil {
		return err
	}
	if ev.Status != StatusDraft && ev.Status != StatusCancelled {
		return ErrInvalidTransition
	}
	return svc.repo.DeleteEvent(ctx, id)
}

func (svc *Service) Publish(ctx context.Context, coachID, id string) (Event, error) {
	return svc.setStatus(ctx, coachID, id, StatusPublished, StatusDraft)
}

func (svc *Service) Cancel(ctx context.Context, coachID, id string) (Event, error) {
	return svc.setStatus(ctx, coachID, id, StatusCancelled, StatusDraft, StatusPublished)
}

func (svc *Service) MarkCompleted(ctx context.Context, coachID, id string) (Event, error) {
	return svc.setStatus(ctx, coachID, id, StatusCompleted, StatusPublished)
}

func (svc *Service) setStatus(ctx context.Context, coachID, id string, status Status, from ...Status) (Event, error) {
	ev, err := svc.GetCoachEvent(ctx, coachID, id)
	if err != nil {
		return Event{}, err
	}
	allowed := false
	for _, st := range from {
		if ev.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return ev, ErrInvalidTransition
	}
	ev.Status = status
	ev.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEvent(ctx, ev)
}

// Register signs a student up for a published event. Free events confirm right away and
// paid ones stay PENDING until paid; once confirmed registrations reach the capacity,
// new ones are WAITLISTED.
func (svc *Service) Register(ctx context.Context, eventID string, nr NewRegistration) (Registration, error) {
	nr.Clean()
	if err := svc.validateStruct(nr); err != nil {
		return Registration{}, err
	}
	ev, err := svc.repo.GetEvent(ctx, eventID)
	if err != nil {
		return Registration{}, err
	}
	now := NowFunc().UTC()
	if ev.Status != StatusPublished || (ev.RegistrationDeadline != nil && now.After(*ev.RegistrationDeadline)) {
		return Registration{}, ErrNotOpen
	}

	status := RegistrationConfirmed
	if !ev.IsFree() {
		status = RegistrationPending
	}
	full, err := svc.isFull(ctx, ev)
	if err != nil {
		return Registration{}, err
	}
	if full {
		status = RegistrationWaitlisted
	}

	reg, err := svc.repo.CreateRegistration(ctx, Registration{
		ID:           uuid.NewString(),
		EventID:      ev.ID,
		ParentUserID: nr.ParentUserID,
		ParentName:   nr.ParentName,
		ParentEmail:  nr.ParentEmail,
		StudentName:  nr.StudentName,
		Status:       status,
		Notes:        nr.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Registration{}, err
	}
	svc.sendRegistrationEmail(ev, reg)
	return reg, nil
}

// isFull counts PENDING registrations too: they hold a spot until paid or cancelled.
func (svc *Service) isFull(ctx context.Context, ev Event) (bool, error) {
	if ev.Capacity <= 0 {
		return false, nil
	}
	n, err := svc.repo.CountRegistrations(ctx, ev.ID, RegistrationConfirmed, RegistrationPending)
	if err != nil {
		return false, errors.Wrap(err, "counting registrations")
	}
	return n >= ev.Capacity, nil
}

func (svc *Service) Registrations(ctx context.Context, coachID, eventID string, statuses ...RegistrationStatus) ([]Registration, error) {
	if _, err := svc.GetCoachEvent(ctx, coachID, eventID); err != nil {
		return nil, err
	}
	return svc.repo.QueryRegistrations(ctx, eventID, statuses...)
}

// UpdateRegistrationStatus lets the coach confirm, waitlist or cancel a registration.
// Confirming a registration of a full event fails with ErrEventFull.
func (svc *Service) UpdateRegistrationStatus(ctx context.Context, coachID, regID string, status RegistrationStatus) (Registration, error) {
	reg, err := svc.repo.GetRegistration(ctx, regID)
	if err != nil {
		return Registration{}, err
	}
	ev, err := svc.GetCoachEvent(ctx, coachID, reg.EventID)
	if err != nil {
		return Registration{}, err
	}
	if reg.Status == status {
		return reg, nil
	}
	switch status {
	case RegistrationConfirmed:
		if reg.Status == RegistrationCancelled {
			return reg, ErrInvalidTransition
		}
		if reg.Status == RegistrationWaitlisted {
			full, err := svc.isFull(ctx, ev)
			if err != nil {
				return Registration{}, err
			}
			if full {
				return reg, ErrEventFull
			}
		}
	case RegistrationWaitlisted, RegistrationPending:
		if reg.Status == RegistrationCancelled {
			return reg, ErrInvalidTransition
		}
	case RegistrationCancelled:
	default:
		return reg, ErrInvalidTransition
	}

	reg.Status = status
	reg.UpdatedAt = NowFunc().UTC()
	if reg, err = svc.repo.UpdateRegistration(ctx, reg); err != nil {
		return Registration{}, err
	}
	svc.sendRegistrationEmail(ev, reg)
	return reg, nil
}

func (svc *Service) sendRegistrationEmail(ev Event, reg Registration) {
	r, err := svc.templates.RegistrationConfirmation(notify.RegistrationConfirmationData{
		ParentName:  reg.ParentName,
		StudentName: reg.StudentName,
		EventTitle:  ev.Title,
		Location:    ev.Location(),
		Status:      string(reg.Status),
		Start:       ev.StartDate,
	})
	if err != nil {
		svc.logger.Error(fmt.Sprintf("registration %s: rendering email: %v", reg.ID, err), err)
		return
	}
	svc.mailSvc.SendMessages(r.Message(mail.Address{Name: reg.ParentName, Address: reg.ParentEmail}))
}

// NotifyRegistrants e-mails the event details to every confirmed registrant and returns
// how many messages were queued.
func (svc *Service) NotifyRegistrants(ctx context.Context, coachID, eventID, coachName string) (int, error) {
	ev, err := svc.GetCoachEvent(ctx, coachID, eventID)
	if err != nil {
		return 0, err
	}
	regs, err := svc.repo.QueryRegistrations(ctx, ev.ID, RegistrationConfirmed)
	if err != nil {
		return 0, err
	}

	eventURL := svc.templates.URL("/events/" + ev.ID)
	ics := ev.ICS(NowFunc(), eventURL)
	msgs := make([]*core.EmailMessage, 0, len(regs))
	for _, reg := range regs {
		r, err := svc.templates.EventNotification(notify.EventNotificationData{
			RecipientName: reg.ParentName,
			CoachName:     coachName,
			EventTitle:    ev.Title,
			Location:      ev.Place(),
			MeetingURL:    ev.MeetingURL,
			EventURL:      eventURL,
			Start:         ev.StartDate,
			End:           ev.EndDate,
		})
		if err != nil {
			return 0, errors.Wrap(err, "rendering event notification")
		}
		msg := r.Message(mail.Address{Name: reg.ParentName, Address: reg.ParentEmail})
		if err := msg.Attach(bytes.NewReader(ics), "event.ics", "text/calendar"); err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) > 0 {
		svc.mailSvc.SendMessages(msgs...)
	}
	return len(msgs), nil
}

func (svc *Service) CreateEnrollment(ctx context.Context, coachID string, ne NewEnrollment) (Enrollment, error) {
	ne.Clean()
	if err := svc.validateStruct(ne); err != nil {
		return Enrollment{}, err
	}
	now := NowFunc().UTC()
	return svc.repo.CreateEnrollment(ctx, Enrollment{
		ID:           uuid.NewString(),
		CoachID:      coachID,
		StudentName:  ne.StudentName,
		ParentEmail:  ne.ParentEmail,
		GradeLevel:   ne.GradeLevel,
		AcademicYear: ne.AcademicYear,
		Status:       EnrollmentPending,
		StartDate:    ne.StartDate,
		Notes:        ne.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (svc *Service) QueryEnrollments(ctx context.Context, filter *EnrollmentFilter) ([]Enrollment, error) {
	return svc.repo.QueryEnrollments(ctx, filter)
}

func (svc *Service) UpdateEnrollmentStatus(ctx context.Context, coachID, id string, status EnrollmentStatus) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.CoachID != coachID {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	if !enr.Status.CanBecome(status) {
		return enr, ErrInvalidTransition
	}
	enr.Status = status
	enr.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateEnrollment(ctx, enr)
}

// SyncCalendar pushes the published events of a coach to the calendar and stores the
// calendar ids. A failing event does not stop the others.
func (svc *Service) SyncCalendar(ctx context.Context, coachID string) (SyncResult, error) {
	res := SyncResult{Failed: []string{}}
	if svc.calendar == nil {
		return res, ErrNoCalendar
	}
	events, err := svc.repo.QueryEvents(ctx, &QueryFilter{CoachID: coachID, Statuses: []Status{StatusPublished}}, nil)
	if err != nil {
		return res, errors.Wrap(err, "querying events")
	}

	for _, ev := range events {
		extID, err := svc.calendar.UpsertEvent(ctx, ev.CalendarEvent())
		if err != nil {
			svc.logger.Error(fmt.Sprintf("syncing event %s: %v", ev.ID, err), err)
			res.Failed = append(res.Failed, ev.ID)
			continue
		}
		if extID != ev.GoogleCalendarEventID {
			ev.GoogleCalendarEventID = extID
			ev.UpdatedAt = NowFunc().UTC()
			if _, err := svc.repo.UpdateEvent(ctx, ev); err != nil {
				svc.logger.Error(fmt.Sprintf("saving calendar id of event %s: %v", ev.ID, err), err)
				res.Failed = append(res.Failed, ev.ID)
				continue
			}
		}
		res.Synced++
	}
	return res, nil
}
