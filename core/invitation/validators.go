package invitation

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
)

var (
	locationTag  = "location"
	locationText = `location must look like "City, ST"`
)

// InitValidators registers the invitation validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(locationTag, locationValidation)
	core.RegisterCustomTranslation(validate, translator, locationTag, locationText)
}

func locationValidation(fl validator.FieldLevel) bool {
	_, _, ok := ParseLocation(fl.Field().String())
	return ok
}
