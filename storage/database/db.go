package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/ukmiverse/ukmiverse/core"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsDir is the directory of the embedded migrations.
const MigrationsDir = "migrations"

func init() {
	goose.SetBaseFS(migrationsFS)
}

func open(dbName string, admin bool, conf *core.Config) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

// Open connects to the application database and waits for it to be ready.
func Open(conf *core.Config) (*sqlx.DB, error) {
	db, err := open(conf.Database.Name, false, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if err = ping(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping canceled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func exists(ctx context.Context, db *sqlx.DB, query, name string) (bool, error) {
	var found bool
	if err := db.GetContext(ctx, &found, query, name); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return found, nil
}

func createAppUser(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	found, err := exists(ctx, db, "SELECT true FROM pg_roles WHERE rolname = $1", conf.Database.User)
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	if !found {
		// identifiers and passwords can not be bound as parameters
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.ExecContext(ctx, q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(ctx context.Context, db *sqlx.DB, conf *core.Config) error {
	found, err := exists(ctx, db, "SELECT true FROM pg_database WHERE datname = $1", conf.Database.Name)
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	if !found {
		if _, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

// CreateIfNotExist creates the application role (as admin) and database (as the application role).
func CreateIfNotExist(ctx context.Context, conf *core.Config) error {
	adminDB, err := open("postgres", true, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = adminDB.Close() }()

	if err = ping(ctx, adminDB); err != nil {
		return errors.Wrap(err, "pinging database")
	}
	if err = createAppUser(ctx, adminDB, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}

	appDB, err := open("postgres", false, conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = appDB.Close() }()

	if err = createDB(ctx, appDB, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

// Migrate runs a goose command (up, down, status, redo, reset, version, ...) over the embedded migrations.
func Migrate(ctx context.Context, db *sqlx.DB, command string, args ...string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "setting dialect")
	}
	if err := goose.RunContext(ctx, command, db.DB, MigrationsDir, args...); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	return nil
}
