package avatar

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/ukmiverse/ukmiverse/core"
)

var (
	refTag  = "avatar_ref"
	refText = "must be an image URL, a site path or a base64 image data URI"
)

// InitValidators registers the `avatar_ref` tag for stored image references.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(refTag, refValidation)
	core.RegisterCustomTranslation(validate, translator, refTag, refText)
}

// refValidation accepts what CheckFormat accepts plus site relative paths (`/static/...`).
func refValidation(fl validator.FieldLevel) bool {
	ref := fl.Field().String()
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		return !strings.ContainsAny(ref, " \t\n")
	}
	return CheckFormat(ref, nil).Valid
}
