package onboarding

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
)

// Form records use the field names of the onboarding form, which are also the names
// reported by completion validation.

type PersonalInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Sex       string `json:"sex" validate:"omitempty,sex"`
	BirthDate string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state" validate:"omitempty,usstate"`
	Zip       string `json:"zip" validate:"omitempty,zip"`
}

func (r *PersonalInfo) Clean() {
	r.FirstName = core.CleanString(r.FirstName)
	r.LastName = core.CleanString(r.LastName)
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Phone = core.CleanString(r.Phone)
	r.Sex = core.CleanString(r.Sex)
	r.BirthDate = core.CleanString(r.BirthDate)
	r.Street = core.CleanString(r.Street)
	r.City = core.CleanString(r.City)
	r.State = strings.ToUpper(core.CleanString(r.State))
	r.Zip = core.CleanString(r.Zip)
}

type RoleExperience struct {
	Role             string   `json:"role" validate:"omitempty,oneof=COACH ADMIN PARENT coach admin parent"`
	Position         string   `json:"position"`
	YearsExperience  int      `json:"yearsExperience" validate:"min=0,max=80"`
	Certifications   []string `json:"certifications"`
	Specialties      []string `json:"specialties"`
	Bio              string   `json:"bio" validate:"max=5000"`
	D1AthleticsCount int      `json:"d1AthleticsCount" validate:"min=0"`
}

func (r *RoleExperience) Clean() {
	r.Role = strings.ToUpper(core.CleanString(r.Role))
	r.Position = core.CleanString(r.Position)
	r.Certifications = cleanList(r.Certifications)
	r.Specialties = cleanList(r.Specialties)
	r.Bio = core.CleanString(r.Bio)
}

type SchoolSetup struct {
	SchoolType          string `json:"schoolType"`
	Sport               string `json:"sport"`
	HasPhysicalLocation bool   `json:"hasPhysicalLocation"`
	SchoolStreet        string `json:"schoolStreet"`
	SchoolCity          string `json:"schoolCity"`
	SchoolState         string `json:"schoolState" validate:"omitempty,usstate"`
	SchoolZip           string `json:"schoolZip" validate:"omitempty,zip"`
}

func (r *SchoolSetup) Clean() {
	r.SchoolType = core.CleanString(r.SchoolType)
	r.Sport = core.CleanString(r.Sport)
	r.SchoolStreet = core.CleanString(r.SchoolStreet)
	r.SchoolCity = core.CleanString(r.SchoolCity)
	r.SchoolState = strings.ToUpper(core.CleanString(r.SchoolState))
	r.SchoolZip = core.CleanString(r.SchoolZip)
}

type SchoolName struct {
	NameOfInstitution string `json:"nameOfInstitution" validate:"max=200"`
	Website           string `json:"website" validate:"omitempty,url"`
	SchoolPhone       string `json:"schoolPhone" validate:"omitempty,phone"`
}

func (r *SchoolName) Clean() {
	r.NameOfInstitution = strings.Join(strings.Fields(r.NameOfInstitution), " ")
	r.Website = core.CleanString(r.Website)
	r.SchoolPhone = core.CleanString(r.SchoolPhone)
}

type SchoolFocus struct {
	GradeLevels   []string `json:"gradeLevels"`
	Sports        []string `json:"sports"`
	AcademicFocus string   `json:"academicFocus"`
	Description   string   `json:"description" validate:"max=5000"`
}

func (r *SchoolFocus) Clean() {
	r.GradeLevels = cleanList(r.GradeLevels)
	r.Sports = cleanList(r.Sports)
	r.AcademicFocus = core.CleanString(r.AcademicFocus)
	r.Description = core.CleanString(r.Description)
}

type StudentPlanning struct {
	EstimatedStudentCount int    `json:"estimatedStudentCount" validate:"min=0"`
	StartDate             string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
}

func (r *StudentPlanning) Clean() {
	r.StartDate = core.CleanString(r.StartDate)
}

type StudentInfo struct {
	FirstName  string `json:"firstName" validate:"required,notblank"`
	LastName   string `json:"lastName"`
	BirthDate  string `json:"birthDate" validate:"omitempty,datetime=2006-01-02"`
	Sex        string `json:"sex" validate:"omitempty,sex"`
	GradeLevel string `json:"gradeLevel"`
}

type Students struct {
	Students []StudentInfo `json:"students" validate:"max=500,dive"`
}

func (r *Students) Clean() {
	for i := range r.Students {
		st := &r.Students[i]
		st.FirstName = core.CleanString(st.FirstName)
		st.LastName = core.CleanString(st.LastName)
		st.BirthDate = core.CleanString(st.BirthDate)
		st.Sex = core.CleanString(st.Sex)
		st.GradeLevel = core.CleanString(st.GradeLevel)
	}
}

type Agreements struct {
	PlatformAgreement      bool `json:"platformAgreement"`
	BackgroundCheckConsent bool `json:"backgroundCheckConsent"`
	MarketingOptIn         bool `json:"marketingOptIn"`
}

func (r *Agreements) Clean() {}

type Finalize struct {
	ReferralSource string `json:"referralSource"`
	Notes          string `json:"notes" validate:"max=5000"`
}

func (r *Finalize) Clean() {
	r.ReferralSource = core.CleanString(r.ReferralSource)
	r.Notes = core.CleanString(r.Notes)
}

// FormData is the data collected so far, one record per step.
// A nil record means the step was never saved.
type FormData struct {
	PersonalInfo    *PersonalInfo    `json:"personalInfo,omitempty"`
	RoleExperience  *RoleExperience  `json:"roleExperience,omitempty"`
	SchoolSetup     *SchoolSetup     `json:"schoolSetup,omitempty"`
	SchoolName      *SchoolName      `json:"schoolName,omitempty"`
	SchoolFocus     *SchoolFocus     `json:"schoolFocus,omitempty"`
	StudentPlanning *StudentPlanning `json:"studentPlanning,omitempty"`
	Students        *Students        `json:"students,omitempty"`
	Agreements      *Agreements      `json:"agreements,omitempty"`
	Finalize        *Finalize        `json:"finalize,omitempty"`
}

type stepRecord interface {
	Clean()
}

// decodeStep decodes the JSON payload of `step` into its record.
func decodeStep(step Step, data []byte) (stepRecord, error) {
	var rec stepRecord
	switch step {
	case StepPersonalInfo:
		rec = new(PersonalInfo)
	case StepRoleExperience:
		rec = new(RoleExperience)
	case StepSchoolSetup:
		rec = new(SchoolSetup)
	case StepSchoolName:
		rec = new(SchoolName)
	case StepSchoolFocus:
		rec = new(SchoolFocus)
	case StepStudentPlanning:
		rec = new(StudentPlanning)
	case StepStudents:
		rec = new(Students)
	case StepAgreements:
		rec = new(Agreements)
	case StepFinalize:
		rec = new(Finalize)
	default:
		return nil, errors.Wrapf(ErrUnknownStep, "%s has no form", step)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, rec); err != nil {
			return nil, errors.Wrapf(err, "decoding %s", step)
		}
	}
	rec.Clean()
	return rec, nil
}

// set replaces the record of the step `rec` belongs to.
func (fd *FormData) set(rec stepRecord) {
	switch r := rec.(type) {
	case *PersonalInfo:
		fd.PersonalInfo = r
	case *RoleExperience:
		fd.RoleExperience = r
	case *SchoolSetup:
		fd.SchoolSetup = r
	case *SchoolName:
		fd.SchoolName = r
	case *SchoolFocus:
		fd.SchoolFocus = r
	case *StudentPlanning:
		fd.StudentPlanning = r
	case *Students:
		fd.Students = r
	case *Agreements:
		fd.Agreements = r
	case *Finalize:
		fd.Finalize = r
	}
}

// ApplyPrefill fills the blanks of the form with the invitation values; values already
// entered are kept.
func (fd *FormData) ApplyPrefill(p invitation.Prefill) {
	if fd.PersonalInfo == nil {
		fd.PersonalInfo = new(PersonalInfo)
	}
	pi := fd.PersonalInfo
	fillString(&pi.Email, p.Email)
	fillString(&pi.FirstName, p.FirstName)
	fillString(&pi.LastName, p.LastName)
	fillString(&pi.Phone, p.Phone)
	fillString(&pi.City, p.City)
	fillString(&pi.State, p.State)

	if p.Bio != "" || p.D1AthleticsCount > 0 || p.Type == invitation.TypeParent {
		if fd.RoleExperience == nil {
			fd.RoleExperience = new(RoleExperience)
		}
		if p.Type == invitation.TypeParent {
			fillString(&fd.RoleExperience.Role, string(user.RoleParent))
		}
		fillString(&fd.RoleExperience.Bio, p.Bio)
		if fd.RoleExperience.D1AthleticsCount == 0 {
			fd.RoleExperience.D1AthleticsCount = p.D1AthleticsCount
		}
	}
	if p.SchoolType != "" || p.Sport != "" {
		if fd.SchoolSetup == nil {
			fd.SchoolSetup = new(SchoolSetup)
		}
		fillString(&fd.SchoolSetup.SchoolType, p.SchoolType)
		fillString(&fd.SchoolSetup.Sport, p.Sport)
	}
	if p.SchoolName != "" {
		if fd.SchoolName == nil {
			fd.SchoolName = new(SchoolName)
		}
		fillString(&fd.SchoolName.NameOfInstitution, p.SchoolName)
	}
	if p.StudentName != "" && (fd.Students == nil || len(fd.Students.Students) == 0) {
		first, last := invitation.SplitName(p.StudentName)
		fd.Students = &Students{Students: []StudentInfo{{FirstName: first, LastName: last, GradeLevel: p.StudentGrade}}}
	}
}

// withDefaults returns a copy of the form whose blanks are filled with the progress e-mail
// and the invitation values. The records of `fd` are not modified.
func (fd FormData) withDefaults(email string, prefill *invitation.Prefill) FormData {
	out := fd
	if fd.PersonalInfo != nil {
		pi := *fd.PersonalInfo
		out.PersonalInfo = &pi
	} else {
		out.PersonalInfo = new(PersonalInfo)
	}
	if fd.RoleExperience != nil {
		re := *fd.RoleExperience
		out.RoleExperience = &re
	}
	if fd.SchoolSetup != nil {
		ss := *fd.SchoolSetup
		out.SchoolSetup = &ss
	}
	if fd.SchoolName != nil {
		sn := *fd.SchoolName
		out.SchoolName = &sn
	}

	fillString(&out.PersonalInfo.Email, email)
	if prefill != nil {
		out.ApplyPrefill(*prefill)
	}
	return out
}

func fillString(dst *string, val string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = val
	}
}

func cleanList(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = core.CleanString(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
