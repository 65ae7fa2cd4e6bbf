package user

import (
	"strings"
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

type Role string

// Roles
const (
	RoleAdmin   Role = "ADMIN"
	RoleCoach   Role = "COACH"
	RoleParent  Role = "PARENT"
	RoleStudent Role = "STUDENT"
)

var roles = map[Role]bool{RoleAdmin: true, RoleCoach: true, RoleParent: true, RoleStudent: true}

func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, roles[r]
}

type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Phone      string    `json:"phone,omitempty"`
	Role       Role      `json:"role"`
	IsActive   bool      `json:"is_active"`
	IdentityID string    `json:"identity_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsStaff reports whether the user is expected to have an Ed-Fi Staff row.
func (u User) IsStaff() bool { return u.Role == RoleCoach || u.Role == RoleAdmin }

// Profile holds the coaching details collected during onboarding.
type Profile struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	Position         string    `json:"position,omitempty"`
	Bio              string    `json:"bio,omitempty"`
	YearsExperience  int       `json:"years_experience"`
	Certifications   []string  `json:"certifications"`
	Specialties      []string  `json:"specialties"`
	D1AthleticsCount int       `json:"d1_athletics_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type GetFilter struct {
	ID    string
	Email string
}

type QueryFilter struct {
	Search   string `query:"search"`
	Roles    []Role `query:"role"`
	IsActive *bool  `query:"is_active"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}
