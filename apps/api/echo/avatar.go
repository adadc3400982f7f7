package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/user"
)

type avatarApi struct {
	svc      *avatar.Service
	usrSvc   user.Service
	validate *validator.Validate
}

func registerAvatarAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := avatarApi{
		svc:      deps.AvatarSvc,
		usrSvc:   deps.UserSvc,
		validate: deps.Validate,
	}

	ag := g.Group("/avatars")
	ag.GET("/fallbacks", api.fallbacks)
	ag.GET("/placeholder", api.placeholder)
	ag.POST("/validate", api.validateCandidate, jwt)
	ag.POST("/recommend", api.recommend, jwt, adminMiddleware(api.usrSvc))

	// user avatars are public, like the profile pictures of the club pages
	g.GET("/users/:id/avatar", api.userAvatar)
	g.POST("/users/:id/avatar/retry", api.retryUserAvatar, jwt, ctxUserOrAdminMiddleware(api.usrSvc))
}

// AvatarQuery are the display options of a resolved image.
type AvatarQuery struct {
	Redirect      bool
	AllowInsecure bool
	Size          int
}

// Bind reads `?redirect=&allow_insecure=&size=`, also on POST requests. Malformed values are ignored.
func (q *AvatarQuery) Bind(ctx echo.Context) {
	q.Redirect, _ = strconv.ParseBool(ctx.QueryParam("redirect"))
	q.AllowInsecure, _ = strconv.ParseBool(ctx.QueryParam("allow_insecure"))
	q.Size, _ = strconv.Atoi(ctx.QueryParam("size"))
}

// resolveAndRender resolves sub and answers with the resolution as JSON, or with the image itself
// when `?redirect=true`: a redirect to the loaded URL, the decoded data URI or the placeholder.
func resolveAndRender(ctx echo.Context, svc *avatar.Service, sub avatar.Subject) error {
	var query AvatarQuery
	query.Bind(ctx)
	sub.AllowInsecure = query.AllowInsecure

	res := svc.Resolve(ctx.Request().Context(), sub)
	if !query.Redirect {
		return ctx.JSON(http.StatusOK, res)
	}

	ctx.Response().Header().Set("Cache-Control", "no-store")
	if res.State != avatar.StateLoaded {
		return inertBlob(ctx, avatar.PlaceholderContentType, avatar.Placeholder(sub.Name, query.Size))
	}
	if typ, data, ok := avatar.DecodeDataURI(res.Src); ok {
		return inertBlob(ctx, typ, data)
	}
	return ctx.Redirect(http.StatusFound, svc.Href(res.Src))
}

// imageCSP keeps an image opened as a document from running scripts or loading anything.
const imageCSP = "default-src 'none'; style-src 'unsafe-inline'; sandbox"

// inertBlob serves user supplied image bytes (an SVG may embed scripts) from the API origin.
func inertBlob(ctx echo.Context, contentType string, data []byte) error {
	h := ctx.Response().Header()
	h.Set(echo.HeaderContentSecurityPolicy, imageCSP)
	h.Set(echo.HeaderXContentTypeOptions, "nosniff")
	h.Set(echo.HeaderContentDisposition, "inline")
	return ctx.Blob(http.StatusOK, contentType, data)
}

// Handlers

func (api *avatarApi) userAvatar(ctx echo.Context) error {
	usr, err := api.usrSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}
	return resolveAndRender(ctx, api.svc, usr.AvatarSubject())
}

// retryUserAvatar is the manual retry of an exhausted avatar: the shared outcomes of its
// candidates are dropped before resolving again.
func (api *avatarApi) retryUserAvatar(ctx echo.Context) error {
	usr, ok := getObject[user.User](ctx)
	if !ok {
		return errors.Wrap(errUsrNotFoundInCtx, "retrieving object from context")
	}
	sub := usr.AvatarSubject()
	api.svc.Forget(ctx.Request().Context(), sub)
	return resolveAndRender(ctx, api.svc, sub)
}

func (api *avatarApi) fallbacks(ctx echo.Context) error {
	name := core.CleanString(ctx.QueryParam("name"))
	color := core.CleanString(ctx.QueryParam("color"))
	return ctx.JSON(http.StatusOK, FallbacksResponse{
		Initial:   avatar.Initial(name),
		Fallbacks: api.svc.Fallbacks(name, color),
	})
}

func (api *avatarApi) placeholder(ctx echo.Context) error {
	var query AvatarQuery
	query.Bind(ctx)
	return inertBlob(ctx, avatar.PlaceholderContentType, avatar.Placeholder(ctx.QueryParam("name"), query.Size))
}

func (api *avatarApi) validateCandidate(ctx echo.Context) error {
	var data ValidateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ValidateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	resp := ValidateResponse{Format: api.svc.CheckFormat(data.Candidate)}
	if resp.Format.Valid && !data.FormatOnly {
		res := api.svc.Validate(ctx.Request().Context(), data.Candidate, data.AllowInsecure)
		resp.Load = &res
	}
	return ctx.JSON(http.StatusOK, resp)
}

func (api *avatarApi) recommend(ctx echo.Context) error {
	var data RecommendRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RecommendRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, api.svc.Recommend(ctx.Request().Context(), data.URLs))
}

type (
	FallbacksResponse struct {
		Initial   string   `json:"initial"`
		Fallbacks []string `json:"fallbacks"`
	}

	ValidateRequest struct {
		Candidate     string `json:"candidate" validate:"required,max=2097152"`
		AllowInsecure bool   `json:"allow_insecure"`
		FormatOnly    bool   `json:"format_only"`
	}

	ValidateResponse struct {
		Format avatar.Result  `json:"format"`
		Load   *avatar.Result `json:"load,omitempty"`
	}

	RecommendRequest struct {
		URLs []string `json:"urls" validate:"required,min=1,max=50,dive,required,max=2048"`
	}
)

func (vr *ValidateRequest) Validate(validate *validator.Validate) error {
	vr.Candidate = core.CleanString(vr.Candidate)
	return validate.Struct(vr)
}

func (rr *RecommendRequest) Validate(validate *validator.Validate) error {
	for i, u := range rr.URLs {
		rr.URLs[i] = core.CleanString(u)
	}
	return validate.Struct(rr)
}
