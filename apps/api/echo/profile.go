package echoapi

import (
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/user"
	uploadsvc "github.com/ukmiverse/ukmiverse/services/upload"
)

type profileApi struct {
	svc      user.Service
	uploads  *uploadsvc.Store
	validate *validator.Validate
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := profileApi{
		svc:      deps.UserSvc,
		uploads:  deps.Uploads,
		validate: deps.Validate,
	}

	pg := g.Group("/profile", jwt)
	pg.GET("", api.retrieve)
	pg.PUT("", api.update)
	pg.PUT("/avatar", api.setAvatar)
	pg.DELETE("/avatar", api.removeAvatar)
	if api.uploads != nil {
		// room for the multipart envelope around the file
		limit := fmt.Sprintf("%dK", api.uploads.MaxSize()/1024+64)
		pg.POST("/avatar/upload", api.uploadAvatar, middleware.BodyLimit(limit))
	}
}

// ProfileResponse is a User as shown to themselves (or an admin).
type ProfileResponse struct {
	user.User
	DisplayName string           `json:"display_name"`
	Permissions user.Permissions `json:"permissions"`
}

func newProfileResponse(usr user.User) ProfileResponse {
	return ProfileResponse{
		User:        usr,
		DisplayName: usr.DisplayName(),
		Permissions: usr.Permissions(),
	}
}

// Handlers

func (api *profileApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newProfileResponse(usr))
}

func (api *profileApi) update(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err = api.svc.UpdateProfile(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, newProfileResponse(usr))
}

// setAvatar stores the reference as given, except base64 images which are saved as uploaded files.
// Whether a URL loads is only known when it is displayed.
func (api *profileApi) setAvatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	var data user.SetAvatar
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetAvatar")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	if api.uploads == nil || !avatar.IsDataURI(data.AvatarURL) {
		return api.saveAvatar(ctx, usr, data.AvatarURL, false)
	}
	ref, err := api.uploads.SaveDataURI(usr.ID, data.AvatarURL)
	if err != nil {
		return uploadError(err, "avatar_url")
	}
	return api.saveAvatar(ctx, usr, ref, true)
}

func (api *profileApi) uploadAvatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	fh, err := ctx.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return uploadError(uploadsvc.ErrNoFile, "avatar")
		}
		return errors.Wrap(err, "reading avatar file")
	}
	if fh.Size > api.uploads.MaxSize() {
		return uploadError(uploadsvc.ErrTooLarge, "avatar")
	}

	file, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening avatar file")
	}
	defer func() { _ = file.Close() }()

	ref, err := api.uploads.Save(usr.ID, fh.Filename, file)
	if err != nil {
		return uploadError(err, "avatar")
	}
	return api.saveAvatar(ctx, usr, ref, true)
}

// saveAvatar stores ref. A file uploaded for it is dropped if that fails.
func (api *profileApi) saveAvatar(ctx echo.Context, usr user.User, ref string, uploaded bool) error {
	reqCtx := ctx.Request().Context()
	updated, err := api.svc.SetAvatar(reqCtx, usr, ref)
	if err != nil {
		if uploaded {
			api.uploads.RemoveAvatar(reqCtx, usr.ID, ref)
		}
		return errors.Wrap(err, "setting avatar")
	}
	return ctx.JSON(http.StatusOK, newProfileResponse(updated))
}

func uploadError(err error, field string) error {
	switch err {
	case uploadsvc.ErrNoFile, uploadsvc.ErrTooLarge, uploadsvc.ErrExtension, uploadsvc.ErrUnsupportedType:
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return errors.Wrap(err, "saving avatar file")
}

func (api *profileApi) removeAvatar(ctx echo.Context) error {
	usr, err := getContextUser(ctx, api.svc)
	if err != nil {
		return err
	}

	usr, err = api.svc.RemoveAvatar(ctx.Request().Context(), usr)
	if err != nil {
		return errors.Wrap(err, "removing avatar")
	}
	return ctx.JSON(http.StatusOK, newProfileResponse(usr))
}
