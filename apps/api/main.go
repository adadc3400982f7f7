package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/ukmiverse/ukmiverse/apps/api/echo"
	"github.com/ukmiverse/ukmiverse/apps/shared"
	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
	logsvc "github.com/ukmiverse/ukmiverse/services/logger"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	ctx := context.Background()

	// set up DB
	store, err := shared.OpenStorage(ctx, conf, true /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = store.Close(); err != nil {
			dbLogger.Error("Failed to close", err)
		}
	}()

	// set up services
	uploads, err := shared.NewUploadStore(conf, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up uploads: %v", err), err)
	}

	avatarSvc, cacheCloser, err := shared.NewAvatarService(ctx, conf, uploads, logger)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up avatar service: %v", err), err)
	}
	defer func() { _ = cacheCloser.Close() }()

	usrSvc := user.NewService(store.Users, user.WithAvatarFiles(uploads))
	clubSvc := club.NewService(store.Clubs)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q, database %q, avatar cache %q",
		conf.Build, conf.Database.Engine, conf.Avatar.Cache))
	defer logger.Info("Application stopped")

	validate, translator := shared.NewValidator()

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			ClubSvc:    clubSvc,
			AvatarSvc:  avatarSvc,
			Uploads:    uploads,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(ctx, conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
