package onboarding

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
)

var (
	sexTag  = "sex"
	sexText = "must be one of female, male or not selected"

	zipTag   = "zip"
	zipText  = "must be a valid ZIP code"
	zipRegex = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
)

// InitValidators registers the onboarding form validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sexTag, sexValidation)
	core.RegisterCustomTranslation(validate, translator, sexTag, sexText)

	_ = validate.RegisterValidation(zipTag, zipValidation)
	core.RegisterCustomTranslation(validate, translator, zipTag, zipText)
}

func sexValidation(fl validator.FieldLevel) bool {
	_, ok := ParseSex(fl.Field().String())
	return ok
}

func zipValidation(fl validator.FieldLevel) bool {
	return zipRegex.MatchString(fl.Field().String())
}

// ParseSex maps the form values to the Ed-Fi sex descriptors.
func ParseSex(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "f", "female":
		return edfi.SexFemale, true
	case "m", "male":
		return edfi.SexMale, true
	case "not selected", "not_selected", "notselected", "other", "prefer not to say":
		return edfi.SexNotSelected, true
	default:
		return "", false
	}
}
