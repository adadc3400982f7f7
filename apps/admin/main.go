package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ukmiverse/ukmiverse/apps/shared"
	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
	logsvc "github.com/ukmiverse/ukmiverse/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	ctx := context.Background()

	// set up DB
	store, err := shared.OpenStorage(ctx, conf, false /* migrate */)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	uploads, err := shared.NewUploadStore(conf, logger)
	if err != nil {
		_ = store.Close()
		logger.Fatal(fmt.Sprintf("setting up uploads: %v", err), err)
	}

	avatarSvc, cacheCloser, err := shared.NewAvatarService(ctx, conf, uploads, logger)
	if err != nil {
		_ = store.Close()
		logger.Fatal(fmt.Sprintf("setting up avatar service: %v", err), err)
	}

	validate, _ := shared.NewValidator()

	// start CLI
	cli := commandLine{
		conf:      conf,
		db:        store.DB,
		usrSvc:    user.NewService(store.Users, user.WithAvatarFiles(uploads)),
		avatarSvc: avatarSvc,
		validate:  validate,
		out:       os.Stdout,
	}
	err = cli.run(os.Args)

	_ = cacheCloser.Close()
	_ = store.Close()

	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
