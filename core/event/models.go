package event

import (
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

type Type string

const (
	TypeTraining   Type = "TRAINING"
	TypeGame       Type = "GAME"
	TypeTournament Type = "TOURNAMENT"
	TypeCamp       Type = "CAMP"
	TypeTryout     Type = "TRYOUT"
	TypeMeeting    Type = "MEETING"
	TypeOther      Type = "OTHER"
)

type RegistrationStatus string

const (
	RegistrationPending    RegistrationStatus = "PENDING"
	RegistrationConfirmed  RegistrationStatus = "CONFIRMED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
	RegistrationWaitlisted RegistrationStatus = "WAITLISTED"
)

type EnrollmentStatus string

const (
	EnrollmentPending   EnrollmentStatus = "PENDING"
	EnrollmentApproved  EnrollmentStatus = "APPROVED"
	EnrollmentRejected  EnrollmentStatus = "REJECTED"
	EnrollmentActive    EnrollmentStatus = "ACTIVE"
	EnrollmentWithdrawn EnrollmentStatus = "WITHDRAWN"
)

// enrollmentTransitions lists the statuses an enrollment may move to.
var enrollmentTransitions = map[EnrollmentStatus][]EnrollmentStatus{
	EnrollmentPending:  {EnrollmentApproved, EnrollmentRejected, EnrollmentWithdrawn},
	EnrollmentApproved: {EnrollmentActive, EnrollmentWithdrawn},
	EnrollmentActive:   {EnrollmentWithdrawn},
}

func (s EnrollmentStatus) CanBecome(next EnrollmentStatus) bool {
	for _, st := range enrollmentTransitions[s] {
		if st == next {
			return true
		}
	}
	return false
}

type Event struct {
	ID                    string     `json:"id"`
	CoachID               string     `json:"coach_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	EventType             Type       `json:"event_type"`
	Status                Status     `json:"status"`
	StartDate             time.Time  `json:"start_date"`
	EndDate               time.Time  `json:"end_date"`
	Venue                 string     `json:"venue"`
	Address               string     `json:"address"`
	Capacity              int        `json:"capacity"`
	PriceCents            int64      `json:"price_cents"`
	MeetingURL            string     `json:"meeting_url,omitempty"`
	RegistrationDeadline  *time.Time `json:"registration_deadline,omitempty"`
	GoogleCalendarEventID string     `json:"google_calendar_event_id,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

func (e Event) IsFree() bool { return e.PriceCents == 0 }

// Place joins the venue and its address.
func (e Event) Place() string {
	switch {
	case e.Venue != "" && e.Address != "":
		return e.Venue + ", " + e.Address
	default:
		return core.FirstNonEmpty(e.Venue, e.Address)
	}
}

// Location is the place of the event, or its meeting link when it has no place.
func (e Event) Location() string {
	return core.FirstNonEmpty(e.Place(), e.MeetingURL)
}

func (e Event) CalendarEvent() core.CalendarEvent {
	return core.CalendarEvent{
		ExternalID:  e.GoogleCalendarEventID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Place(),
		MeetingURL:  e.MeetingURL,
		Start:       e.StartDate,
		End:         e.EndDate,
	}
}

type Registration struct {
	ID           string             `json:"id"`
	EventID      string             `json:"event_id"`
	ParentUserID string             `json:"parent_user_id,omitempty"`
	ParentName   string             `json:"parent_name"`
	ParentEmail  string             `json:"parent_email"`
	StudentName  string             `json:"student_name"`
	Status       RegistrationStatus `json:"status"`
	Notes        string             `json:"notes,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

type Enrollment struct {
	ID           string           `json:"id"`
	CoachID      string           `json:"coach_id"`
	StudentName  string           `json:"student_name"`
	ParentEmail  string           `json:"parent_email"`
	GradeLevel   string           `json:"grade_level,omitempty"`
	AcademicYear string           `json:"academic_year"`
	Status       EnrollmentStatus `json:"status"`
	StartDate    *time.Time       `json:"start_date,omitempty"`
	Notes        string           `json:"notes,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// NewEvent contains the information needed to create or update an event.
type NewEvent struct {
	Title                string     `json:"title" validate:"required,notblank,max=200"`
	Description          string     `json:"description" validate:"max=5000"`
	EventType            Type       `json:"event_type" validate:"required,oneof=TRAINING GAME TOURNAMENT CAMP TRYOUT MEETING OTHER"`
	StartDate            time.Time  `json:"start_date" validate:"required"`
	EndDate              time.Time  `json:"end_date" validate:"required,gtfield=StartDate"`
	Venue                string     `json:"venue" validate:"max=200"`
	Address              string     `json:"address" validate:"max=500"`
	Capacity             int        `json:"capacity" validate:"min=0"`
	PriceCents           int64      `json:"price_cents" validate:"min=0"`
	MeetingURL           string     `json:"meeting_url" validate:"omitempty,url"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
}

func (ne *NewEvent) Clean() {
	ne.Title = core.CleanString(ne.Title)
	ne.Description = core.CleanString(ne.Description)
	ne.EventType = Type(core.CleanString(string(ne.EventType)))
	ne.Venue = core.CleanString(ne.Venue)
	ne.Address = core.CleanString(ne.Address)
	ne.MeetingURL = core.CleanString(ne.MeetingURL)
}

type NewRegistration struct {
	ParentName   string `json:"parent_name" validate:"required,notblank"`
	ParentEmail  string `json:"parent_email" validate:"required,email"`
	StudentName  string `json:"student_name" validate:"required,notblank"`
	Notes        string `json:"notes" validate:"max=2000"`
	ParentUserID string `json:"-"`
}

func (nr *NewRegistration) Clean() {
	nr.ParentName = core.CleanString(nr.ParentName)
	nr.ParentEmail = core.CleanString(nr.ParentEmail, true /* lower */)
	nr.StudentName = core.CleanString(nr.StudentName)
	nr.Notes = core.CleanString(nr.Notes)
}

type NewEnrollment struct {
	StudentName  string     `json:"student_name" validate:"required,notblank"`
	ParentEmail  string     `json:"parent_email" validate:"required,email"`
	GradeLevel   string     `json:"grade_level"`
	AcademicYear string     `json:"academic_year" validate:"required,academicyear"`
	StartDate    *time.Time `json:"start_date"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

func (ne *NewEnrollment) Clean() {
	ne.StudentName = core.CleanString(ne.StudentName)
	ne.ParentEmail = core.CleanString(ne.ParentEmail, true /* lower */)
	ne.GradeLevel = core.CleanString(ne.GradeLevel)
	ne.AcademicYear = core.CleanString(ne.AcademicYear)
	ne.Notes = core.CleanString(ne.Notes)
}

type QueryFilter struct {
	CoachID  string   `query:"-"`
	Statuses []Status `query:"status"`
	Types    []Type   `query:"type"`
	From     *time.Time
	To       *time.Time
}

type EnrollmentFilter struct {
	CoachID  string             `query:"-"`
	Statuses []EnrollmentStatus `query:"status"`
	Search   string             `query:"search"`
}
