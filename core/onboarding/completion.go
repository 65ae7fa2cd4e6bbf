package onboarding

import "strings"

// MissingField is a required field absent at completion.
type MissingField struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// MissingFieldsError is returned when onboarding cannot complete yet. The caller is
// expected to collect the listed fields and retry.
type MissingFieldsError struct {
	Fields []MissingField
}

func (err *MissingFieldsError) Error() string {
	return "missing required fields: " + strings.Join(err.FieldNames(), ", ")
}

// FieldNames returns the names of the missing fields, in order.
func (err *MissingFieldsError) FieldNames() []string {
	names := make([]string, 0, len(err.Fields))
	for _, f := range err.Fields {
		names = append(names, f.Field)
	}
	return names
}

type requiredField struct {
	name  string
	label string
	isSet func(fd FormData) bool
}

var requiredFields = []requiredField{
	{"firstName", "First Name", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.FirstName) }},
	{"lastName", "Last Name", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.LastName) }},
	{"email", "Email", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.Email) }},
	{"phone", "Phone Number", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.Phone) }},
	{"sex", "Gender", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.Sex) }},
	{"birthDate", "Date of Birth", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.BirthDate) }},
	{"city", "City", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.City) }},
	{"state", "State", func(fd FormData) bool { return fd.PersonalInfo != nil && notBlank(fd.PersonalInfo.State) }},
	{"nameOfInstitution", "School Name", func(fd FormData) bool { return fd.SchoolName != nil && notBlank(fd.SchoolName.NameOfInstitution) }},
	{"schoolType", "School Type", func(fd FormData) bool { return fd.SchoolSetup != nil && notBlank(fd.SchoolSetup.SchoolType) }},
	{"sport", "Sport", func(fd FormData) bool { return fd.SchoolSetup != nil && notBlank(fd.SchoolSetup.Sport) }},
	{"platformAgreement", "Platform Agreement", func(fd FormData) bool { return fd.Agreements != nil && fd.Agreements.PlatformAgreement }},
}

// FieldLabel returns the human label of a required field.
func FieldLabel(field string) string {
	for _, rf := range requiredFields {
		if rf.name == field {
			return rf.label
		}
	}
	return field
}

// ValidateForCompletion checks that every required field is present. It returns nil or a
// *MissingFieldsError listing the absent fields in form order.
func ValidateForCompletion(fd FormData) error {
	var missing []MissingField
	for _, rf := range requiredFields {
		if !rf.isSet(fd) {
			missing = append(missing, MissingField{Field: rf.name, Label: rf.label})
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
