package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
)

type User struct {
	ID             string    `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	FullName       string    `json:"full_name" db:"full_name"`
	Bio            string    `json:"bio" db:"bio"`
	Phone          string    `json:"phone" db:"phone"`
	Address        string    `json:"address" db:"address"`
	Gender         string    `json:"gender" db:"gender"`
	StudentID      string    `json:"student_id" db:"student_id"` // NIM
	Faculty        string    `json:"faculty" db:"faculty"`
	Major          string    `json:"major" db:"major"`
	AvatarURL      *string   `json:"avatar_url" db:"avatar_url"` // URL, site relative path or base64 data URI
	PreferredColor string    `json:"preferred_color" db:"preferred_color"`
	Role           Role      `json:"role" db:"role"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Permissions are derived from the Role, never stored.
type Permissions struct {
	ViewClubs        bool `json:"can_view_ukm"`
	ManageClubs      bool `json:"can_manage_ukm"`
	ManageUsers      bool `json:"can_manage_users"`
	ManageCategories bool `json:"can_manage_categories"`
}

func (u User) IsAdmin() bool { return u.Role.IsAdmin() }

// DisplayName is the name shown next to the avatar.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.FullName); name != "" {
		return name
	}
	return u.Username
}

func (u User) Permissions() Permissions {
	admin := u.IsAdmin()
	return Permissions{
		ViewClubs:        true,
		ManageClubs:      admin,
		ManageUsers:      admin,
		ManageCategories: admin,
	}
}

// AvatarSubject describes what to display as the avatar of u.
func (u User) AvatarSubject() avatar.Subject {
	sub := avatar.Subject{Name: u.DisplayName(), Color: u.PreferredColor}
	if u.AvatarURL != nil {
		sub.Primary = *u.AvatarURL
	}
	return sub
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Username  string `json:"username" validate:"required,min=3,max=80,alphanum_"`
	Email     string `json:"email" validate:"required,email,max=120"`
	FullName  string `json:"full_name" validate:"max=100"`
	StudentID string `json:"student_id" validate:"max=20"`
	Faculty   string `json:"faculty" validate:"max=100"`
	Major     string `json:"major" validate:"max=100"`
	Role      string `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.StudentID = core.CleanString(nu.StudentID)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Username, nu.Email)
}

// UpdateProfile defines what a User may change on their own profile. Blank fields are left untouched.
type UpdateProfile struct {
	FullName       string `json:"full_name" validate:"max=100"`
	Bio            string `json:"bio" validate:"max=500"`
	Phone          string `json:"phone" validate:"omitempty,max=20,phone"`
	Address        string `json:"address" validate:"max=255"`
	Gender         string `json:"gender" validate:"omitempty,oneof=male female other"`
	StudentID      string `json:"student_id" validate:"max=20"`
	Faculty        string `json:"faculty" validate:"max=100"`
	Major          string `json:"major" validate:"max=100"`
	PreferredColor string `json:"preferred_color" validate:"omitempty,colorhex"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FullName = core.CleanString(up.FullName)
	up.Bio = core.CleanString(up.Bio)
	up.Phone = core.CleanString(up.Phone)
	up.Address = core.CleanString(up.Address)
	up.Gender = core.CleanString(up.Gender, true /* lower */)
	up.StudentID = core.CleanString(up.StudentID)
	up.Faculty = core.CleanString(up.Faculty)
	up.Major = core.CleanString(up.Major)
	up.PreferredColor = core.CleanString(up.PreferredColor)
	return validate.Struct(up)
}

func (up UpdateProfile) apply(usr *User) {
	set := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	set(&usr.FullName, up.FullName)
	set(&usr.Bio, up.Bio)
	set(&usr.Phone, up.Phone)
	set(&usr.Address, up.Address)
	set(&usr.Gender, up.Gender)
	set(&usr.StudentID, up.StudentID)
	set(&usr.Faculty, up.Faculty)
	set(&usr.Major, up.Major)
	if up.PreferredColor != "" {
		usr.PreferredColor = core.NormalizeColor(up.PreferredColor)
	}
}

// SetAvatar replaces the stored avatar reference. The reference is checked offline only:
// a broken image is handled when it is displayed.
type SetAvatar struct {
	AvatarURL string `json:"avatar_url" validate:"required,max=2097152,avatar_ref"`
}

func (sa *SetAvatar) Validate(validate *validator.Validate) error {
	sa.AvatarURL = strings.TrimSpace(sa.AvatarURL)
	return validate.Struct(sa)
}

// UpdateAccount defines what an admin may change on any account.
type UpdateAccount struct {
	Username string `json:"username" validate:"omitempty,min=3,max=80,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email,max=120"`
	Role     string `json:"role" validate:"omitempty,role"`
	IsActive *bool  `json:"is_active"`
}

func (ua *UpdateAccount) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	if uname := core.CleanString(ua.Username, true /* lower */); uname != "" {
		ua.Username = uname
	} else {
		ua.Username = origUsr.Username
	}

	if email := core.CleanString(ua.Email, true /* lower */); email != "" {
		ua.Email = email
	} else {
		ua.Email = origUsr.Email
	}

	if err := validate.Struct(ua); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, ua.Username, ua.Email, origUsr)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Role        string    `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`

	role *Role
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.role == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

// Clean normalizes the filter. An unknown role matches nobody rather than everybody.
func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.role = nil
	if r := core.CleanString(qf.Role); r != "" {
		role, err := ParseRole(r)
		if err != nil {
			role = Role(-1)
		}
		qf.role = &role
	}
}

// RoleFilter returns the role to match, if any. Clean must have been called.
func (qf *QueryFilter) RoleFilter() (Role, bool) {
	if qf.role == nil {
		return 0, false
	}
	return *qf.role, true
}

// OrderingFields are the columns users may be ordered by.
var OrderingFields = map[string]bool{
	"username":   true,
	"email":      true,
	"full_name":  true,
	"created_at": true,
	"updated_at": true,
}
