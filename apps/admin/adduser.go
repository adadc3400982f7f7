package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core/user"
)

// addUser creates a user.User, or reactivates the existing one with that username.
// An existing admin is never demoted.
func (cli *commandLine) addUser(ctx context.Context, uname, email, name string, isAdmin bool) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	switch {
	case errors.Cause(err) == user.ErrNotFound:
		nu := user.NewUser{Username: uname, Email: email, FullName: name}
		if isAdmin {
			nu.Role = user.RoleAdmin.String()
		}
		if err = nu.Validate(ctx, cli.validate, cli.usrSvc); err != nil {
			return err
		}
		if usr, err = cli.usrSvc.Create(ctx, nu); err != nil {
			return errors.Wrap(err, "creating user")
		}
		fmt.Fprintf(cli.out, "created %s (%s)\n", usr.Username, usr.Role)
		return nil

	case err != nil:
		return errors.Wrap(err, "finding user")
	}

	active := true
	ua := user.UpdateAccount{IsActive: &active}
	if isAdmin {
		ua.Role = user.RoleAdmin.String()
	}
	if err = ua.Validate(ctx, usr, cli.validate, cli.usrSvc); err != nil {
		return err
	}
	if usr, err = cli.usrSvc.UpdateAccount(ctx, usr, ua); err != nil {
		return errors.Wrap(err, "updating user")
	}
	fmt.Fprintf(cli.out, "updated %s (%s)\n", usr.Username, usr.Role)
	return nil
}
