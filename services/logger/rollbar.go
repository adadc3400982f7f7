package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
)

// RollbarLogger prints to a std logger and reports to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable turns Rollbar reporting on or off; printing is never disabled.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled && rollbar.Token() != "")
}

// prepare moves the first user.User of args to the Rollbar person.
// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	var person *user.User
	reported := make([]interface{}, 0, len(args)+1)
	reported = append(reported, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if person == nil {
				person = &a
			}
		case *user.User:
			if person == nil && a != nil {
				person = a
			}
		default:
			reported = append(reported, arg)
		}
	}
	if person != nil && person.ID != "" {
		rollbar.SetPerson(person.ID, person.Username, person.Email)
	} else {
		rollbar.ClearPerson()
	}
	return reported
}

func (l RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("[%s] %s", level, msg)
	for _, arg := range args {
		switch arg.(type) {
		case user.User, *user.User:
			continue
		}
		l.std.Printf("%+v", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	rollbar.Debug(l.prepare(msg, args)...)
	l.print("DEBUG", msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	rollbar.Info(l.prepare(msg, args)...)
	l.print("INFO", msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.print("WARN", msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.print("ERROR", msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	rollbar.Critical(l.prepare(msg, args)...)
	l.print("FATAL", msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
