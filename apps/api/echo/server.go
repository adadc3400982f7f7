package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
	uploadsvc "github.com/ukmiverse/ukmiverse/services/upload"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		UserSvc        user.Service
		ClubSvc        club.Service
		AvatarSvc      *avatar.Service
		Uploads        *uploadsvc.Store
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		jwt:      newJWTConfig(deps.Conf),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if s.deps.Uploads != nil {
		s.app.Static(strings.TrimSuffix(uploadsvc.URLPrefix, "/"), s.deps.Uploads.Dir())
	}

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt)

	registerUserAPI(v1, jwt, s.deps)
	registerProfileAPI(v1, jwt, s.deps)
	registerClubAPI(v1, jwt, s.deps)
	registerAvatarAPI(v1, jwt, s.deps)
}

// Start blocks until the server stops. Failures other than a requested shutdown are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	signal.Stop(s.shutdown)
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to UKMiverse API!")
}
