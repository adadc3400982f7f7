package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
)

var (
	errClubNotFoundInCtx     = errors.New("club object not found in echo.Context")
	errCategoryNotFoundInCtx = errors.New("category object not found in echo.Context")
)

type clubApi struct {
	svc       club.Service
	usrSvc    user.Service
	avatarSvc *avatar.Service
	validate  *validator.Validate
}

func registerClubAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := clubApi{
		svc:       deps.ClubSvc,
		usrSvc:    deps.UserSvc,
		avatarSvc: deps.AvatarSvc,
		validate:  deps.Validate,
	}
	admin := adminMiddleware(api.usrSvc)

	// browsing the directory needs no account
	cg := g.Group("/clubs")
	cg.GET("", api.query)
	cg.POST("", api.create, jwt, admin)
	cg.DELETE("", api.destroyMultiple, jwt, admin)

	dg := cg.Group("/:id", clubObjectMiddleware(api.svc))
	dg.GET("", api.retrieve)
	dg.GET("/logo", api.logo)
	dg.PUT("", api.update, jwt, admin)
	dg.DELETE("", api.destroy, jwt, admin)

	kg := g.Group("/categories")
	kg.GET("", api.queryCategories)
	kg.POST("", api.createCategory, jwt, admin)

	kdg := kg.Group("/:id", categoryObjectMiddleware(api.svc))
	kdg.GET("", api.retrieveCategory)
	kdg.PUT("", api.updateCategory, jwt, admin)
	kdg.DELETE("", api.destroyCategory, jwt, admin)
}

func clubObjectMiddleware(svc club.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			c, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == club.ErrNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding club by ID")
			}
			ctx.Set(objectKey, c)
			return next(ctx)
		}
	}
}

func categoryObjectMiddleware(svc club.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cat, err := svc.GetCategoryByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Cause(err) == club.ErrCategoryNotFound {
					return errHttpNotFound
				}
				return errors.Wrap(err, "finding category by ID")
			}
			ctx.Set(objectKey, cat)
			return next(ctx)
		}
	}
}

// Handlers

func (api *clubApi) query(ctx echo.Context) error {
	filter := new(club.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []club.Club{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx, club.OrderingFields)

	clubs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying clubs")
	}
	if clubs == nil {
		clubs = []club.Club{}
	}
	return ctx.JSON(http.StatusOK, clubs)
}

func (api *clubApi) create(ctx echo.Context) error {
	var data club.NewClub
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClub")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating club")
	}
	return ctx.JSON(http.StatusCreated, c)
}

func (api *clubApi) retrieve(ctx echo.Context) error {
	c, ok := getObject[club.Club](ctx)
	if !ok {
		return errors.Wrap(errClubNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) logo(ctx echo.Context) error {
	c, ok := getObject[club.Club](ctx)
	if !ok {
		return errors.Wrap(errClubNotFoundInCtx, "retrieving object from context")
	}
	return resolveAndRender(ctx, api.avatarSvc, c.LogoSubject())
}

func (api *clubApi) update(ctx echo.Context) error {
	c, ok := getObject[club.Club](ctx)
	if !ok {
		return errors.Wrap(errClubNotFoundInCtx, "retrieving object from context")
	}

	var data club.UpdateClub
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClub")
	}
	if err := data.Validate(ctx.Request().Context(), c, api.validate, api.svc); err != nil {
		return err
	}

	c, err := api.svc.Update(ctx.Request().Context(), c, data)
	if err != nil {
		return errors.Wrap(err, "updating club")
	}
	return ctx.JSON(http.StatusOK, c)
}

func (api *clubApi) destroy(ctx echo.Context) error {
	c, ok := getObject[club.Club](ctx)
	if !ok {
		return errors.Wrap(errClubNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.Delete(ctx.Request().Context(), c.ID); err != nil {
		return errors.Wrap(err, "deleting club")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *clubApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if len(query.IDs) == 0 {
		return ctx.NoContent(http.StatusNoContent)
	}
	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting clubs")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *clubApi) queryCategories(ctx echo.Context) error {
	cats, err := api.svc.QueryCategories(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying categories")
	}
	if cats == nil {
		cats = []club.Category{}
	}
	return ctx.JSON(http.StatusOK, cats)
}

func (api *clubApi) createCategory(ctx echo.Context) error {
	var data club.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc); err != nil {
		return err
	}

	cat, err := api.svc.CreateCategory(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating category")
	}
	return ctx.JSON(http.StatusCreated, cat)
}

func (api *clubApi) retrieveCategory(ctx echo.Context) error {
	cat, ok := getObject[club.Category](ctx)
	if !ok {
		return errors.Wrap(errCategoryNotFoundInCtx, "retrieving object from context")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *clubApi) updateCategory(ctx echo.Context) error {
	cat, ok := getObject[club.Category](ctx)
	if !ok {
		return errors.Wrap(errCategoryNotFoundInCtx, "retrieving object from context")
	}

	var data club.NewCategory
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCategory")
	}
	if err := data.Validate(ctx.Request().Context(), api.validate, api.svc, cat); err != nil {
		return err
	}

	cat, err := api.svc.UpdateCategory(ctx.Request().Context(), cat, data)
	if err != nil {
		return errors.Wrap(err, "updating category")
	}
	return ctx.JSON(http.StatusOK, cat)
}

func (api *clubApi) destroyCategory(ctx echo.Context) error {
	cat, ok := getObject[club.Category](ctx)
	if !ok {
		return errors.Wrap(errCategoryNotFoundInCtx, "retrieving object from context")
	}
	if err := api.svc.DeleteCategory(ctx.Request().Context(), cat.ID); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
