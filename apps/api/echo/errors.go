package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
)

var (
	errUnauthorized       = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAccountDeactivated = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errHttpForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorResponse maps err to a status code and a JSON body: a field->message map for invalid
// input, a plain message otherwise. Only 5xx responses are reported.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	var (
		httpErr   *echo.HTTPError
		fieldErrs validator.ValidationErrors
		inputErr  *core.ValidationError
	)

	switch cause := errors.Cause(err); {
	case cause == user.ErrNotFound, cause == club.ErrNotFound, cause == club.ErrCategoryNotFound:
		return errHttpNotFound.Code, errHttpNotFound.Message

	case cause == middleware.ErrJWTMissing: // echo answers 400 for it
		return http.StatusUnauthorized, middleware.ErrJWTMissing.Message

	case errors.As(err, &httpErr):
		if inner, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = inner
		}
		return httpErr.Code, httpErr.Message

	case errors.As(err, &fieldErrs):
		msgs := make(map[string]string, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, msgs

	case errors.As(err, &inputErr):
		if len(inputErr.Fields) == 0 {
			return http.StatusBadRequest, inputErr.Error()
		}
		msgs := make(map[string]string, len(inputErr.Fields))
		for _, fe := range inputErr.Fields {
			msgs[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, msgs
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// newAppHTTPErrorHandler answers every failed request with errorResponse. Server errors are logged
// with the requesting user, and a core shutdown error calls signalShutdown.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code >= http.StatusInternalServerError {
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			msg := http.StatusText(code)
			logger.Error(msg, errors.Wrap(err, msg), usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, message)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
