package user

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/ukmiverse/ukmiverse/core"
)

var (
	// errors
	ErrNotFound       = errors.New("user not found")
	ErrEmailExists    = errors.New("a user with this email already exists")
	ErrUsernameExists = errors.New("a user with this username already exists")
)

type (
	Repository interface {
		CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.FullName, User.Username or User.Email.
		FilterUsers(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsernameOrEmail(ctx context.Context, username string) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByUsernameOrEmail(ctx context.Context, uname string) (User, error)
		UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error)
		UpdateAccount(ctx context.Context, usr User, ua UpdateAccount) (User, error)
		SetAvatar(ctx context.Context, usr User, ref string) (User, error)
		RemoveAvatar(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
	}

	// AvatarFiles deletes the uploaded avatar files users no longer refer to.
	AvatarFiles interface {
		RemoveAvatar(ctx context.Context, userID, ref string)
	}

	ServiceOption func(*service)

	service struct {
		repo  Repository
		files AvatarFiles
	}
)

var (
	_ Service = (*service)(nil)

	nowFunc = time.Now
)

func WithAvatarFiles(files AvatarFiles) ServiceOption {
	return func(svc *service) {
		svc.files = files
	}
}

func NewService(repo Repository, opts ...ServiceOption) Service {
	svc := &service{repo: repo}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUsernameUniqueness(ctx, uname, email, exclUsers...); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	var role Role
	if nu.Role != "" {
		var err error
		if role, err = ParseRole(nu.Role); err != nil {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
		}
	}

	now := nowFunc().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Username:  nu.Username,
		Email:     nu.Email,
		FullName:  nu.FullName,
		StudentID: nu.StudentID,
		Faculty:   nu.Faculty,
		Major:     nu.Major,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateUser(ctx, usr)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.FilterUsers(ctx, filter, ordering...)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByUsernameOrEmail(ctx context.Context, uname string) (User, error) {
	return svc.repo.GetUserByUsernameOrEmail(ctx, core.CleanString(uname, true /* lower */))
}

func (svc *service) UpdateProfile(ctx context.Context, usr User, up UpdateProfile) (User, error) {
	up.apply(&usr)
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) UpdateAccount(ctx context.Context, usr User, ua UpdateAccount) (User, error) {
	if ua.Role != "" {
		role, err := ParseRole(ua.Role)
		if err != nil {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "role", Error: err.Error()})
		}
		usr.Role = role
	}
	if ua.IsActive != nil {
		usr.IsActive = *ua.IsActive
	}
	usr.Username = ua.Username
	usr.Email = ua.Email
	usr.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetAvatar stores ref. The previous avatar file, if it was uploaded, is deleted once ref is saved.
func (svc *service) SetAvatar(ctx context.Context, usr User, ref string) (User, error) {
	return svc.replaceAvatar(ctx, usr, core.StringPtr(ref))
}

func (svc *service) RemoveAvatar(ctx context.Context, usr User) (User, error) {
	return svc.replaceAvatar(ctx, usr, nil)
}

func (svc *service) replaceAvatar(ctx context.Context, usr User, ref *string) (User, error) {
	prev := usr.AvatarURL
	usr.AvatarURL = ref
	usr.UpdatedAt = nowFunc().UTC()

	usr, err := svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		return User{}, err
	}
	if svc.files != nil && prev != nil && (ref == nil || *ref != *prev) {
		svc.files.RemoveAvatar(ctx, usr.ID, *prev)
	}
	return usr, nil
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return svc.repo.DeleteUsersByID(ctx, valid...)
}
