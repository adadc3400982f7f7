package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/user"
)

func (cli *commandLine) setRole(ctx context.Context, uname, role string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	ua := user.UpdateAccount{Role: role}
	if err = ua.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.UpdateAccount(ctx, usr, ua); err != nil {
		return errors.Wrap(err, "updating role")
	}
	fmt.Fprintf(cli.out, "%s is now %s\n", usr.Username, usr.Role)
	return nil
}
