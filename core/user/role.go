package user

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Role is resolved once, where the request enters the system. Past that point it is one of
// RoleMember or RoleAdmin and nothing else.
type Role int

const (
	RoleMember Role = iota
	RoleAdmin
)

// legacy `role_id` values carried by older tokens and rows
const (
	legacyAdminID  = 1
	legacyMemberID = 2
)

var (
	ErrInvalidRole = errors.New("invalid role")

	roleNames = map[Role]string{
		RoleMember: "member",
		RoleAdmin:  "admin",
	}

	// Roles lists every assignable role.
	Roles = []RoleChoice{
		{Name: "Member", Value: RoleMember},
		{Name: "Admin", Value: RoleAdmin},
	}
)

type RoleChoice struct {
	Name  string `json:"name"`
	Value Role   `json:"value"`
}

// ParseRole accepts the role names, case insensitive. `user` is the legacy name of RoleMember.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "member", "user":
		return RoleMember, nil
	}
	return RoleMember, errors.Wrapf(ErrInvalidRole, "%q", s)
}

// RoleFromID maps a legacy numeric `role_id` (1: admin, 2: user).
func RoleFromID(id int) (Role, error) {
	switch id {
	case legacyAdminID:
		return RoleAdmin, nil
	case legacyMemberID:
		return RoleMember, nil
	}
	return RoleMember, errors.Wrapf(ErrInvalidRole, "id %d", id)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ID returns the legacy numeric id of r.
func (r Role) ID() int {
	if r == RoleAdmin {
		return legacyAdminID
	}
	return legacyMemberID
}

func (r Role) IsAdmin() bool { return r == RoleAdmin }

func (r Role) MarshalText() ([]byte, error) {
	if _, ok := roleNames[r]; !ok {
		return nil, errors.Wrapf(ErrInvalidRole, "%d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value stores the role name.
func (r Role) Value() (driver.Value, error) {
	return r.String(), nil
}

func (r *Role) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case int64:
		role, err := RoleFromID(int(v))
		if err != nil {
			return err
		}
		*r = role
		return nil
	}
	return errors.Errorf("cannot scan %T into Role", src)
}
