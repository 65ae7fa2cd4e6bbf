package gormrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
)

var eventOrderings = map[string]bool{"title": true, "start_date": true, "created_at": true, "status": true}

type (
	eventRow struct {
		ID                    string     `gorm:"primaryKey"`
		CoachID               string     `gorm:"column:coach_id"`
		Title                 string     `gorm:"column:title"`
		Description           string     `gorm:"column:description"`
		EventType             string     `gorm:"column:event_type"`
		Status                string     `gorm:"column:status"`
		StartDate             time.Time  `gorm:"column:start_date"`
		EndDate               time.Time  `gorm:"column:end_date"`
		Venue                 string     `gorm:"column:venue"`
		Address               string     `gorm:"column:address"`
		Capacity              int        `gorm:"column:capacity"`
		PriceCents            int64      `gorm:"column:price_cents"`
		MeetingURL            string     `gorm:"column:meeting_url"`
		RegistrationDeadline  *time.Time `gorm:"column:registration_deadline"`
		GoogleCalendarEventID string     `gorm:"column:google_calendar_event_id"`
		CreatedAt             time.Time  `gorm:"column:created_at;autoCreateTime:false"`
		UpdatedAt             time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	}

	registrationRow struct {
		ID           string    `gorm:"primaryKey"`
		EventID      string    `gorm:"column:event_id"`
		ParentUserID string    `gorm:"column:parent_user_id"`
		ParentName   string    `gorm:"column:parent_name"`
		ParentEmail  string    `gorm:"column:parent_email"`
		StudentName  string    `gorm:"column:student_name"`
		Status       string    `gorm:"column:status"`
		Notes        string    `gorm:"column:notes"`
		CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime:false"`
		UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	}

	enrollmentRow struct {
		ID           string     `gorm:"primaryKey"`
		CoachID      string     `gorm:"column:coach_id"`
		StudentName  string     `gorm:"column:student_name"`
		ParentEmail  string     `gorm:"column:parent_email"`
		GradeLevel   string     `gorm:"column:grade_level"`
		AcademicYear string     `gorm:"column:academic_year"`
		Status       string     `gorm:"column:status"`
		StartDate    *time.Time `gorm:"column:start_date"`
		Notes        string     `gorm:"column:notes"`
		CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime:false"`
		UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime:false"`
	}
)

func (eventRow) TableName() string        { return "events" }
func (registrationRow) TableName() string { return "registrations" }
func (enrollmentRow) TableName() string   { return "enrollments" }

func toEventRow(ev event.Event) eventRow {
	return eventRow{
		ID:                    ev.ID,
		CoachID:               ev.CoachID,
		Title:                 ev.Title,
		Description:           ev.Description,
		EventType:             string(ev.EventType),
		Status:                string(ev.Status),
		StartDate:             ev.StartDate.UTC(),
		EndDate:               ev.EndDate.UTC(),
		Venue:                 ev.Venue,
		Address:               ev.Address,
		Capacity:              ev.Capacity,
		PriceCents:            ev.PriceCents,
		MeetingURL:            ev.MeetingURL,
		RegistrationDeadline:  utcPtr(ev.RegistrationDeadline),
		GoogleCalendarEventID: ev.GoogleCalendarEventID,
		CreatedAt:             ev.CreatedAt.UTC(),
		UpdatedAt:             ev.UpdatedAt.UTC(),
	}
}

func (r eventRow) event() event.Event {
	return event.Event{
		ID:                    r.ID,
		CoachID:               r.CoachID,
		Title:                 r.Title,
		Description:           r.Description,
		EventType:             event.Type(r.EventType),
		Status:                event.Status(r.Status),
		StartDate:             r.StartDate.UTC(),
		EndDate:               r.EndDate.UTC(),
		Venue:                 r.Venue,
		Address:               r.Address,
		Capacity:              r.Capacity,
		PriceCents:            r.PriceCents,
		MeetingURL:            r.MeetingURL,
		RegistrationDeadline:  utcPtr(r.RegistrationDeadline),
		GoogleCalendarEventID: r.GoogleCalendarEventID,
		CreatedAt:             r.CreatedAt.UTC(),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

func toRegistrationRow(reg event.Registration) registrationRow {
	return registrationRow{
		ID:           reg.ID,
		EventID:      reg.EventID,
		ParentUserID: reg.ParentUserID,
		ParentName:   reg.ParentName,
		ParentEmail:  reg.ParentEmail,
		StudentName:  reg.StudentName,
		Status:       string(reg.Status),
		Notes:        reg.Notes,
		CreatedAt:    reg.CreatedAt.UTC(),
		UpdatedAt:    reg.UpdatedAt.UTC(),
	}
}

func (r registrationRow) registration() event.Registration {
	return event.Registration{
		ID:           r.ID,
		EventID:      r.EventID,
		ParentUserID: r.ParentUserID,
		ParentName:   r.ParentName,
		ParentEmail:  r.ParentEmail,
		StudentName:  r.StudentName,
		Status:       event.RegistrationStatus(r.Status),
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

func toEnrollmentRow(enr event.Enrollment) enrollmentRow {
	return enrollmentRow{
		ID:           enr.ID,
		CoachID:      enr.CoachID,
		StudentName:  enr.StudentName,
		ParentEmail:  enr.ParentEmail,
		GradeLevel:   enr.GradeLevel,
		AcademicYear: enr.AcademicYear,
		Status:       string(enr.Status),
		StartDate:    utcPtr(enr.StartDate),
		Notes:        enr.Notes,
		CreatedAt:    enr.CreatedAt.UTC(),
		UpdatedAt:    enr.UpdatedAt.UTC(),
	}
}

func (r enrollmentRow) enrollment() event.Enrollment {
	return event.Enrollment{
		ID:           r.ID,
		CoachID:      r.CoachID,
		StudentName:  r.StudentName,
		ParentEmail:  r.ParentEmail,
		GradeLevel:   r.GradeLevel,
		AcademicYear: r.AcademicYear,
		Status:       event.EnrollmentStatus(r.Status),
		StartDate:    utcPtr(r.StartDate),
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

type eventRepository struct {
	db *gorm.DB
}

var _ event.Repository = (*eventRepository)(nil) // interface compliance check

func NewEventRepository(db *gorm.DB) event.Repository {
	return &eventRepository{db: db}
}

// update overwrites every column of the row with primary key `id`.
func (repo eventRepository) update(ctx context.Context, row interface{}, id string, notFound error, msg string) error {
	res := repo.db.WithContext(ctx).Model(row).Where("id = ?", id).Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		return errors.Wrap(res.Error, msg)
	}
	if res.RowsAffected == 0 {
		return notFound
	}
	return nil
}

func (repo eventRepository) CreateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	row := toEventRow(ev)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	return row.event(), nil
}

func (repo eventRepository) GetEvent(ctx context.Context, id string) (event.Event, error) {
	var row eventRow
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return event.Event{}, trapNotFound(err, event.ErrNotFound, "finding event")
	}
	return row.event(), nil
}

func (repo eventRepository) QueryEvents(ctx context.Context, filter *event.QueryFilter, ordering []core.DBOrdering) ([]event.Event, error) {
	stmt := repo.db.WithContext(ctx).Model(&eventRow{})
	if filter != nil {
		if filter.CoachID != "" {
			stmt = stmt.Where("coach_id = ?", filter.CoachID)
		}
		if len(filter.Statuses) > 0 {
			stmt = stmt.Where("status IN ?", filter.Statuses)
		}
		if len(filter.Types) > 0 {
			stmt = stmt.Where("event_type IN ?", filter.Types)
		}
		if filter.From != nil {
			stmt = stmt.Where("start_date >= ?", filter.From.UTC())
		}
		if filter.To != nil {
			stmt = stmt.Where("start_date < ?", filter.To.UTC())
		}
	}

	var rows []eventRow
	if err := stmt.Order(orderClause(ordering, eventOrderings, "start_date ASC")).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying events")
	}
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		events = append(events, row.event())
	}
	return events, nil
}

func (repo eventRepository) UpdateEvent(ctx context.Context, ev event.Event) (event.Event, error) {
	row := toEventRow(ev)
	if err := repo.update(ctx, &row, row.ID, event.ErrNotFound, "updating event"); err != nil {
		return event.Event{}, err
	}
	return repo.GetEvent(ctx, ev.ID)
}

// DeleteEvent removes the event along with its registrations.
func (repo eventRepository) DeleteEvent(ctx context.Context, id string) error {
	return repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&registrationRow{}).Error; err != nil {
			return errors.Wrap(err, "deleting registrations")
		}
		res := tx.Where("id = ?", id).Delete(&eventRow{})
		if res.Error != nil {
			return errors.Wrap(res.Error, "deleting event")
		}
		if res.RowsAffected == 0 {
			return event.ErrNotFound
		}
		return nil
	})
}

func (repo eventRepository) CreateRegistration(ctx context.Context, reg event.Registration) (event.Registration, error) {
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	row := toRegistrationRow(reg)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return event.Registration{}, errors.Wrap(err, "inserting registration")
	}
	return row.registration(), nil
}

func (repo eventRepository) GetRegistration(ctx context.Context, id string) (event.Registration, error) {
	var row registrationRow
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return event.Registration{}, trapNotFound(err, event.ErrRegistrationNotFound, "finding registration")
	}
	return row.registration(), nil
}

func (repo eventRepository) registrations(ctx context.Context, eventID string, statuses []event.RegistrationStatus) *gorm.DB {
	stmt := repo.db.WithContext(ctx).Model(&registrationRow{}).Where("event_id = ?", eventID)
	if len(statuses) > 0 {
		stmt = stmt.Where("status IN ?", statuses)
	}
	return stmt
}

func (repo eventRepository) QueryRegistrations(ctx context.Context, eventID string, statuses ...event.RegistrationStatus) ([]event.Registration, error) {
	var rows []registrationRow
	if err := repo.registrations(ctx, eventID, statuses).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying registrations")
	}
	regs := make([]event.Registration, 0, len(rows))
	for _, row := range rows {
		regs = append(regs, row.registration())
	}
	return regs, nil
}

func (repo eventRepository) CountRegistrations(ctx context.Context, eventID string, statuses ...event.RegistrationStatus) (int, error) {
	var n int64
	if err := repo.registrations(ctx, eventID, statuses).Count(&n).Error; err != nil {
		return 0, errors.Wrap(err, "counting registrations")
	}
	return int(n), nil
}

func (repo eventRepository) UpdateRegistration(ctx context.Context, reg event.Registration) (event.Registration, error) {
	row := toRegistrationRow(reg)
	if err := repo.update(ctx, &row, row.ID, event.ErrRegistrationNotFound, "updating registration"); err != nil {
		return event.Registration{}, err
	}
	return repo.GetRegistration(ctx, reg.ID)
}

func (repo eventRepository) CreateEnrollment(ctx context.Context, enr event.Enrollment) (event.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.NewString()
	}
	row := toEnrollmentRow(enr)
	if err := repo.db.WithContext(ctx).Create(&row).Error; err != nil {
		return event.Enrollment{}, errors.Wrap(err, "inserting enrollment")
	}
	return row.enrollment(), nil
}

func (repo eventRepository) GetEnrollment(ctx context.Context, id string) (event.Enrollment, error) {
	var row enrollmentRow
	if err := repo.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error; err != nil {
		return event.Enrollment{}, trapNotFound(err, event.ErrEnrollmentNotFound, "finding enrollment")
	}
	return row.enrollment(), nil
}

func (repo eventRepository) QueryEnrollments(ctx context.Context, filter *event.EnrollmentFilter) ([]event.Enrollment, error) {
	stmt := repo.db.WithContext(ctx).Model(&enrollmentRow{})
	if filter != nil {
		if filter.CoachID != "" {
			stmt = stmt.Where("coach_id = ?", filter.CoachID)
		}
		if len(filter.Statuses) > 0 {
			stmt = stmt.Where("status IN ?", filter.Statuses)
		}
		// enrollments with a student name or parent email matching the search keyword
		if filter.Search != "" {
			val := likePattern(filter.Search)
			stmt = stmt.Where(`(LOWER(student_name) LIKE ? ESCAPE '\' OR LOWER(parent_email) LIKE ? ESCAPE '\')`, val, val)
		}
	}

	var rows []enrollmentRow
	if err := stmt.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrs := make([]event.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.enrollment())
	}
	return enrs, nil
}

func (repo eventRepository) UpdateEnrollment(ctx context.Context, enr event.Enrollment) (event.Enrollment, error) {
	row := toEnrollmentRow(enr)
	if err := repo.update(ctx, &row, row.ID, event.ErrEnrollmentNotFound, "updating enrollment"); err != nil {
		return event.Enrollment{}, err
	}
	return repo.GetEnrollment(ctx, enr.ID)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
