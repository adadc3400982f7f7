package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/user"
)

var errUsrNotFoundInCtx = errors.New("user object not found in echo.Context")

type userApi struct {
	svc        user.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}
	admin := adminMiddleware(api.svc)

	ug := g.Group("/users", jwt)
	ug.GET("", api.query, admin)
	ug.DELETE("", api.destroyMultiple, admin)
	ug.GET("/roles", api.queryRoles, admin)

	// detail endpoints
	dg := ug.Group("/:id", ctxUserOrAdminMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, admin)
	dg.DELETE("", api.destroy, admin)
}

// Handlers

func (api *userApi) query(ctx echo.Context) error {
	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, user.OrderingFields)

	users, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) retrieve(ctx echo.Context) error {
	usr, ok := getObject[user.User](ctx)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, newProfileResponse(usr))
}

func (api *userApi) update(ctx echo.Context) error {
	usr, ok := getObject[user.User](ctx)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	var data user.UpdateAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateAccount")
	}
	if err := data.Validate(ctx.Request().Context(), usr, api.validate, api.svc); err != nil {
		return err
	}

	// an admin cannot demote or deactivate themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID && (data.IsActive != nil && !*data.IsActive || data.Role != "" && data.Role != usr.Role.String()) {
		return errHttpForbidden
	}

	usr, err = api.svc.UpdateAccount(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating user")
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, ok := getObject[user.User](ctx)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}

	// ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	if usr.ID == ctxUsr.ID {
		return errHttpForbidden
	}

	if err := api.svc.Delete(ctx.Request().Context(), usr.ID); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}

	// ctxUser cannot delete themselves
	ctxUsr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	for _, id := range query.IDs {
		if id == ctxUsr.ID {
			return errHttpForbidden
		}
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

type DestroyMultipleRequest struct {
	IDs []string `query:"id"`
}
