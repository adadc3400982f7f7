package main

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/storage/database"
)

var (
	gooseRunFunc = database.Migrate // mockable

	errNoDatabase = errors.New("migrations need a postgres database")
)

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	if cli.db == nil {
		return errNoDatabase
	}
	return gooseRunFunc(ctx, cli.db, args[0], args[1:]...)
}
