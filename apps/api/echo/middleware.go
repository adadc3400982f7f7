package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/user"
)

// adminMiddleware trusts the role of the token, the account itself must still be active.
func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.UserRole().IsAdmin() {
				return errHttpForbidden
			}
			if _, err := getContextUser(ctx, svc); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// ctxUserOrAdminMiddleware sets the User of the `:id` path param as the context object.
// Anybody else than that User or an admin gets a 404.
func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}

			claims, _ := getContextClaims(ctx)
			if ctx.Param("id") == ctxUsr.ID || claims.UserRole().IsAdmin() {
				if usr, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id")); err == nil {
					ctx.Set(objectKey, usr)
					return next(ctx)
				} else if errors.Cause(err) != user.ErrNotFound {
					return errors.Wrap(err, "finding user by ID")
				}
			}
			return errHttpNotFound
		}
	}
}
