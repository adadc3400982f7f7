package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// custom validation tags & texts
	alphaNumUnderTag   = "alphanum_"
	alphaNumUnderText  = "only alphanumeric characters and underscores are allowed"
	alphaNumUnderRegex = regexp.MustCompile(`^[\w\s]+$`)

	phoneTag   = "phone"
	phoneText  = "invalid phone number"
	phoneRegex = regexp.MustCompile(`^\+?[0-9][0-9 ().-]{5,19}$`)

	colorHexTag   = "colorhex"
	colorHexText  = "{0} must be a 6 digits hexadecimal color"
	colorHexRegex = regexp.MustCompile(`^#?[0-9a-fA-F]{6}$`)

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(alphaNumUnderTag, alphaNumUnderValidation)
	RegisterCustomTranslation(validate, translator, alphaNumUnderTag, alphaNumUnderText)

	_ = validate.RegisterValidation(phoneTag, phoneValidation)
	RegisterCustomTranslation(validate, translator, phoneTag, phoneText)

	_ = validate.RegisterValidation(colorHexTag, colorHexValidation)
	RegisterCustomTranslation(validate, translator, colorHexTag, colorHexText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// Custom Global Validators

// alphaNumUnderValidation only allows alphanumeric characters and underscores.
func alphaNumUnderValidation(fl validator.FieldLevel) bool {
	return alphaNumUnderRegex.MatchString(fl.Field().String())
}

func phoneValidation(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}

func colorHexValidation(fl validator.FieldLevel) bool {
	return colorHexRegex.MatchString(fl.Field().String())
}

// NormalizeColor strips the leading `#` and lowers a hex color.
func NormalizeColor(color string) string {
	return strings.ToLower(strings.TrimPrefix(CleanString(color), "#"))
}
