package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	echoapi "github.com/ukmiverse/ukmiverse/apps/api/echo"
)

// token prints a bearer token for a user, for local testing of the API.
func (cli *commandLine) token(ctx context.Context, uname string) error {
	usr, err := cli.usrSvc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return errors.Errorf("%s is deactivated", usr.Username)
	}
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}

// probe prints the reliability report of urls as JSON.
func (cli *commandLine) probe(ctx context.Context, urls []string) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(cli.avatarSvc.Recommend(ctx, urls)), "encoding report")
}
