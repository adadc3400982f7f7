package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/user"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf      *core.Config
	db        *sqlx.DB // nil with the memory engine
	usrSvc    user.Service
	avatarSvc *avatar.Service
	validate  *validator.Validate
	out       io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS]                                 - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME -email EMAIL [-name NAME] [-admin] - create a user, or activate an existing one")
	fmt.Fprintln(cli.out, "  setrole -username USERNAME|EMAIL -role admin|member    - change the role of a user")
	fmt.Fprintln(cli.out, "  token -username USERNAME|EMAIL                         - print a JWT for a user")
	fmt.Fprintln(cli.out, "  probe URL [URL...]                                     - test avatar URLs and rank them")
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse returns errHelp when a required flag is missing.
func parse(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	for _, val := range required {
		if core.CleanString(*val) == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: migrate COMMAND [ARGS]")
			return errHelp
		}
		return cli.migrate(ctx, args[2:])

	case "adduser":
		cmd := cli.flagSet("adduser")
		uname := cmd.String("username", "", "The user's username.")
		email := cmd.String("email", "", "The user's email.")
		name := cmd.String("name", "", "The user's full name.")
		isAdmin := cmd.Bool("admin", false, "Make the user an admin.")
		if err := parse(cmd, args[2:], uname, email); err != nil {
			return err
		}
		return cli.addUser(ctx, *uname, *email, *name, *isAdmin)

	case "setrole":
		cmd := cli.flagSet("setrole")
		uname := cmd.String("username", "", "The user's username or email.")
		role := cmd.String("role", "", "The new role: admin or member.")
		if err := parse(cmd, args[2:], uname, role); err != nil {
			return err
		}
		return cli.setRole(ctx, *uname, *role)

	case "token":
		cmd := cli.flagSet("token")
		uname := cmd.String("username", "", "The user's username or email.")
		if err := parse(cmd, args[2:], uname); err != nil {
			return err
		}
		return cli.token(ctx, *uname)

	case "probe":
		if len(args) < 3 {
			fmt.Fprintln(cli.out, "Usage: probe URL [URL...]")
			return errHelp
		}
		return cli.probe(ctx, args[2:])

	default:
		cli.printUsage()
		return errHelp
	}
}
