package user

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ukmiverse/ukmiverse/core"
)

var (
	roleTag  = "role"
	roleText = "invalid role"
)

// InitValidators registers the user validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)
}

func roleValidation(fl validator.FieldLevel) bool {
	_, err := ParseRole(fl.Field().String())
	return err == nil
}
