package invitation

import (
	"strings"
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

type Type string

const (
	TypeCoach  Type = "COACH"
	TypeParent Type = "PARENT"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusAccepted  Status = "ACCEPTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusRevoked   Status = "REVOKED"
)

type Invitation struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	InvitedBy string    `json:"invited_by"`
	Type      Type      `json:"type"`
	Status    Status    `json:"status"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`

	// pre-fill
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Bio              string `json:"bio,omitempty"`
	D1AthleticsCount int    `json:"d1_athletics_count"`
	SchoolName       string `json:"school_name,omitempty"`
	SchoolType       string `json:"school_type,omitempty"`
	Sport            string `json:"sport,omitempty"`
	StudentName      string `json:"student_name,omitempty"`
	StudentGrade     string `json:"student_grade,omitempty"`
	Message          string `json:"message,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
}

func (inv Invitation) IsPending() bool { return inv.Status == StatusPending }

func (inv Invitation) IsExpired(now time.Time) bool {
	return !inv.ExpiresAt.IsZero() && !now.Before(inv.ExpiresAt)
}

func (inv Invitation) FullName() string {
	return strings.TrimSpace(inv.FirstName + " " + inv.LastName)
}

// Prefill returns the onboarding defaults carried by the invitation.
func (inv Invitation) Prefill() Prefill {
	return Prefill{
		InvitationID:     inv.ID,
		Type:             inv.Type,
		Email:            inv.Email,
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
	}
}

// Prefill seeds the onboarding form of an invited user.
type Prefill struct {
	InvitationID     string `json:"invitation_id"`
	Type             Type   `json:"type"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name,omitempty"`
	LastName         string `json:"last_name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	Bio              string `json:"bio,omitempty"`
	D1AthleticsCount int    `json:"d1_athletics_count"`
	SchoolName       string `json:"school_name,omitempty"`
	SchoolType       string `json:"school_type,omitempty"`
	Sport            string `json:"sport,omitempty"`
	StudentName      string `json:"student_name,omitempty"`
	StudentGrade     string `json:"student_grade,omitempty"`
}

// CoachInvite contains the information needed to invite a coach.
type CoachInvite struct {
	Name             string `json:"name" validate:"required,notblank"`
	Email            string `json:"email" validate:"required,email"`
	Cell             string `json:"cell" validate:"required,phone"`
	Location         string `json:"location" validate:"required,location"`
	D1AthleticsCount int    `json:"d1_athletics_count" validate:"min=0"`
	Bio              string `json:"bio" validate:"required,min=10"`
	InvitedBy        string `json:"-"`
}

func (ci *CoachInvite) Clean() {
	ci.Name = strings.Join(strings.Fields(ci.Name), " ")
	ci.Email = core.CleanString(ci.Email, true /* lower */)
	ci.Cell = core.CleanString(ci.Cell)
	ci.Location = core.CleanString(ci.Location)
	ci.Bio = core.CleanString(ci.Bio)
}

// ParentApplication is submitted by a parent who wants to enroll a child.
type ParentApplication struct {
	ParentName   string `json:"parent_name" validate:"required,notblank"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,phone"`
	City         string `json:"city"`
	State        string `json:"state" validate:"omitempty,usstate"`
	StudentName  string `json:"student_name" validate:"required,notblank"`
	StudentGrade string `json:"student_grade"`
	Sport        string `json:"sport"`
	SchoolName   string `json:"school_name"`
	Message      string `json:"message" validate:"max=2000"`
	InvitedBy    string `json:"-"`
}

func (pa *ParentApplication) Clean() {
	pa.ParentName = strings.Join(strings.Fields(pa.ParentName), " ")
	pa.Email = core.CleanString(pa.Email, true /* lower */)
	pa.Phone = core.CleanString(pa.Phone)
	pa.City = core.CleanString(pa.City)
	pa.State = strings.ToUpper(core.CleanString(pa.State))
	pa.StudentName = core.CleanString(pa.StudentName)
	pa.StudentGrade = core.CleanString(pa.StudentGrade)
	pa.Sport = core.CleanString(pa.Sport)
	pa.SchoolName = core.CleanString(pa.SchoolName)
	pa.Message = core.CleanString(pa.Message)
}

type QueryFilter struct {
	Email    string   `query:"email"`
	Statuses []Status `query:"status"`
	Type     Type     `query:"type"`
}

// SplitName splits a full name into first and last names; the last name keeps every
// word after the first one.
func SplitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// ParseLocation parses "City, ST" into its city and upper-cased state parts.
func ParseLocation(loc string) (city, state string, ok bool) {
	idx := strings.LastIndex(loc, ",")
	if idx < 0 {
		return "", "", false
	}
	city = strings.TrimSpace(loc[:idx])
	state = strings.ToUpper(strings.TrimSpace(loc[idx+1:]))
	if city == "" || !core.IsUSState(state) {
		return "", "", false
	}
	return city, state, true
}
