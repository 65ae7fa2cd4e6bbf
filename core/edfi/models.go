// Package edfi holds the Ed-Fi flavoured school records created when a coach completes
// onboarding.
package edfi

import (
	"time"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

const (
	AddressTypePhysical     = "Physical"
	OperationalStatusActive = "Active"
	CategorySchool          = "School"
	DefaultPositionTitle    = "Head Coach"

	SexFemale      = "Female"
	SexMale        = "Male"
	SexNotSelected = "Not Selected"
)

type Address struct {
	AddressType       string `json:"address_type"`
	StreetNumberName  string `json:"street_number_name,omitempty"`
	City              string `json:"city,omitempty"`
	StateAbbreviation string `json:"state_abbreviation,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
}

func (a Address) IsZero() bool {
	return a.StreetNumberName == "" && a.City == "" && a.StateAbbreviation == "" && a.PostalCode == ""
}

type EducationOrganization struct {
	ID                     int64     `json:"education_organization_id"`
	NameOfInstitution      string    `json:"name_of_institution"`
	ShortNameOfInstitution string    `json:"short_name_of_institution"`
	WebSite                string    `json:"web_site,omitempty"`
	Phone                  string    `json:"phone,omitempty"`
	Category               string    `json:"category"`
	OperationalStatus      string    `json:"operational_status"`
	Address                Address   `json:"address"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type School struct {
	ID                      int64     `json:"school_id"`
	EducationOrganizationID int64     `json:"education_organization_id"`
	SchoolType              string    `json:"school_type"`
	GradeLevels             []string  `json:"grade_levels"`
	Sports                  []string  `json:"sports"`
	AcademicFocus           string    `json:"academic_focus,omitempty"`
	Description             string    `json:"description,omitempty"`
	EstimatedStudentCount   int       `json:"estimated_student_count"`
	OpeningDate             string    `json:"opening_date,omitempty"`
	CreatedAt               time.Time `json:"created_at"`
	UpdatedAt               time.Time `json:"updated_at"`
}

type Staff struct {
	StaffUSI                   int64      `json:"staff_usi"`
	UserID                     string     `json:"user_id"`
	SchoolID                   int64      `json:"school_id"`
	FirstName                  string     `json:"first_name"`
	LastSurname                string     `json:"last_surname"`
	Email                      string     `json:"email"`
	Phone                      string     `json:"phone,omitempty"`
	Sex                        string     `json:"sex,omitempty"`
	BirthDate                  *time.Time `json:"birth_date,omitempty"`
	PositionTitle              string     `json:"position_title"`
	YearsOfPriorProfessionalXP int        `json:"years_of_prior_professional_experience"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

type Parent struct {
	ParentUSI   int64     `json:"parent_usi"`
	UserID      string    `json:"user_id"`
	FirstName   string    `json:"first_name"`
	LastSurname string    `json:"last_surname"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Student struct {
	StudentUSI  int64      `json:"student_usi"`
	SchoolID    int64      `json:"school_id"`
	FirstName   string     `json:"first_name"`
	LastSurname string     `json:"last_surname"`
	Sex         string     `json:"sex,omitempty"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	GradeLevel  string     `json:"grade_level,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Bundle is the set of records created for one onboarded user.
// Staff is set for COACH/ADMIN users and Parent for PARENT users.
type Bundle struct {
	User                  user.User             `json:"user"`
	Profile               user.Profile          `json:"profile"`
	EducationOrganization EducationOrganization `json:"education_organization"`
	School                School                `json:"school"`
	Staff                 *Staff                `json:"staff,omitempty"`
	Parent                *Parent               `json:"parent,omitempty"`
	Students              []Student             `json:"students"`
}

// Result references the records a provisioning run created or found.
type Result struct {
	UserID                  string  `json:"user_id"`
	ProfileID               string  `json:"profile_id"`
	EducationOrganizationID int64   `json:"education_organization_id,omitempty"`
	SchoolID                int64   `json:"school_id,omitempty"`
	StaffUSI                int64   `json:"staff_usi,omitempty"`
	ParentUSI               int64   `json:"parent_usi,omitempty"`
	StudentUSIs             []int64 `json:"student_usis,omitempty"`
}
