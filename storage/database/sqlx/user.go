package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/user"
)

const userColumns = `id, username, email, full_name, bio, phone, address, gender, student_id, faculty, major,
	avatar_url, preferred_color, role, is_active, created_at, updated_at`

// userRow is the `users` table row. Nullable columns go through null types.
type userRow struct {
	ID             string      `db:"id"`
	Username       string      `db:"username"`
	Email          string      `db:"email"`
	FullName       string      `db:"full_name"`
	Bio            string      `db:"bio"`
	Phone          string      `db:"phone"`
	Address        string      `db:"address"`
	Gender         string      `db:"gender"`
	StudentID      string      `db:"student_id"`
	Faculty        string      `db:"faculty"`
	Major          string      `db:"major"`
	AvatarURL      null.String `db:"avatar_url"`
	PreferredColor string      `db:"preferred_color"`
	Role           user.Role   `db:"role"`
	IsActive       bool        `db:"is_active"`
	CreatedAt      null.Time   `db:"created_at"`
	UpdatedAt      null.Time   `db:"updated_at"`
}

type userRepository struct {
	db sqlx.ExtContext
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db sqlx.ExtContext) user.Repository {
	return &userRepository{db: db}
}

func (repo userRepository) toRow(usr user.User) userRow {
	return userRow{
		ID:             usr.ID,
		Username:       usr.Username,
		Email:          usr.Email,
		FullName:       usr.FullName,
		Bio:            usr.Bio,
		Phone:          usr.Phone,
		Address:        usr.Address,
		Gender:         usr.Gender,
		StudentID:      usr.StudentID,
		Faculty:        usr.Faculty,
		Major:          usr.Major,
		AvatarURL:      null.StringFromPtr(usr.AvatarURL),
		PreferredColor: usr.PreferredColor,
		Role:           usr.Role,
		IsActive:       usr.IsActive,
		CreatedAt:      null.NewTime(usr.CreatedAt.UTC(), !usr.CreatedAt.IsZero()),
		UpdatedAt:      null.NewTime(usr.UpdatedAt.UTC(), !usr.UpdatedAt.IsZero()),
	}
}

func (repo userRepository) fromRow(row userRow) user.User {
	return user.User{
		ID:             row.ID,
		Username:       row.Username,
		Email:          row.Email,
		FullName:       row.FullName,
		Bio:            row.Bio,
		Phone:          row.Phone,
		Address:        row.Address,
		Gender:         row.Gender,
		StudentID:      row.StudentID,
		Faculty:        row.Faculty,
		Major:          row.Major,
		AvatarURL:      row.AvatarURL.Ptr(),
		PreferredColor: row.PreferredColor,
		Role:           row.Role,
		IsActive:       row.IsActive,
		CreatedAt:      row.CreatedAt.Time,
		UpdatedAt:      row.UpdatedAt.Time,
	}
}

// trapNoRowsErr maps psql "no rows" err to user.ErrNotFound
func (repo userRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return user.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...user.User) error {
	q := "SELECT username, email FROM users WHERE (username = ? OR email = ?)"
	args := []interface{}{username, email}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		q += " AND id NOT IN (?)"
		args = append(args, ids)
	}
	q, args, err := sqlx.In(q+" LIMIT 1", args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var found struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	if err = sqlx.GetContext(ctx, repo.db, &found, repo.db.Rebind(q), args...); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return nil
		}
		return errors.Wrap(err, "checking user uniqueness")
	}
	if found.Username == username {
		return user.ErrUsernameExists
	}
	return user.ErrEmailExists
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `INSERT INTO users (` + userColumns + `) VALUES (
		:id, :username, :email, :full_name, :bio, :phone, :address, :gender, :student_id, :faculty, :major,
		:avatar_url, :preferred_color, :role, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(usr)); err != nil {
		return user.User{}, errors.Wrap(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) FilterUsers(ctx context.Context, filter *user.QueryFilter, ordering ...core.DBOrdering) ([]user.User, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter != nil {
		// users with FullName, Username or Email matching the search keyword
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			where = append(where, "(full_name ILIKE ? OR username ILIKE ? OR email ILIKE ?)")
			args = append(args, val, val, val)
		}
		if role, ok := filter.RoleFilter(); ok {
			where = append(where, "role = ?")
			args = append(args, role.String())
		}
		if filter.IsActive != nil {
			where = append(where, "is_active = ?")
			args = append(args, *filter.IsActive)
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, "created_at <= ?")
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	q := "SELECT " + userColumns + " FROM users"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY " + core.OrderingClause(ordering, user.OrderingFields, "username ASC")

	var rows []userRow
	if err := sqlx.SelectContext(ctx, repo.db, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.fromRow(row))
	}
	return users, nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := sqlx.GetContext(ctx, repo.db, &row, q, id); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user by ID")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) GetUserByUsernameOrEmail(ctx context.Context, username string) (user.User, error) {
	var row userRow
	q := repo.db.Rebind("SELECT " + userColumns + " FROM users WHERE username = ? OR email = ? LIMIT 1")
	if err := sqlx.GetContext(ctx, repo.db, &row, q, username, username); err != nil {
		return user.User{}, repo.trapNoRowsErr(err, "finding user")
	}
	return repo.fromRow(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User) (user.User, error) {
	q := `UPDATE users SET
		username = :username, email = :email, full_name = :full_name, bio = :bio, phone = :phone,
		address = :address, gender = :gender, student_id = :student_id, faculty = :faculty, major = :major,
		avatar_url = :avatar_url, preferred_color = :preferred_color, role = :role, is_active = :is_active,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.db, q, repo.toRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "updating user")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.User{}, user.ErrNotFound
	}
	return repo.GetUserByID(ctx, usr.ID)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q, args, err := sqlx.In("DELETE FROM users WHERE id IN (?)", ids)
	if err != nil {
		return errors.Wrap(err, "building delete query")
	}
	if _, err = repo.db.ExecContext(ctx, repo.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting users")
	}
	return nil
}
