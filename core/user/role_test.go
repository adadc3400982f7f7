package user

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "admin", want: RoleAdmin},
		{in: " Admin ", want: RoleAdmin},
		{in: "member", want: RoleMember},
		{in: "USER", want: RoleMember},
		{in: "root", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				assert.Equal(t, ErrInvalidRole, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleFromID(t *testing.T) {
	role, err := RoleFromID(1)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	role, err = RoleFromID(2)
	require.NoError(t, err)
	assert.Equal(t, RoleMember, role)

	_, err = RoleFromID(3)
	assert.Equal(t, ErrInvalidRole, errors.Cause(err))

	assert.Equal(t, 1, RoleAdmin.ID())
	assert.Equal(t, 2, RoleMember.ID())
}

func TestRole_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]Role{"role": RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, string(data))

	_, err = json.Marshal(Role(7))
	assert.Error(t, err)

	var usr User
	require.NoError(t, json.Unmarshal([]byte(`{"role":"user"}`), &usr))
	assert.Equal(t, RoleMember, usr.Role)
	assert.Error(t, json.Unmarshal([]byte(`{"role":"root"}`), &usr))
}

func TestRole_Scan(t *testing.T) {
	tests := []struct {
		name    string
		src     interface{}
		want    Role
		wantErr bool
	}{
		{name: "name", src: "admin", want: RoleAdmin},
		{name: "bytes", src: []byte("member"), want: RoleMember},
		{name: "legacy id", src: int64(1), want: RoleAdmin},
		{name: "unknown id", src: int64(9), wantErr: true},
		{name: "unknown type", src: 1.5, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r Role
			err := r.Scan(tt.src)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r)
		})
	}

	val, err := RoleAdmin.Value()
	require.NoError(t, err)
	assert.Equal(t, "admin", val)
}

func TestUser_Permissions(t *testing.T) {
	assert.Equal(t, Permissions{ViewClubs: true}, User{Role: RoleMember}.Permissions())
	assert.Equal(t,
		Permissions{ViewClubs: true, ManageClubs: true, ManageUsers: true, ManageCategories: true},
		User{Role: RoleAdmin}.Permissions(),
	)
}

func TestUser_AvatarSubject(t *testing.T) {
	ref := "/static/uploads/avatars/budi.png"
	usr := User{Username: "budi", PreferredColor: "0066cc", AvatarURL: &ref}

	sub := usr.AvatarSubject()
	assert.Equal(t, ref, sub.Primary)
	assert.Equal(t, "budi", sub.Name)
	assert.Equal(t, "0066cc", sub.Color)

	usr.FullName = "  Budi Santoso "
	usr.AvatarURL = nil
	sub = usr.AvatarSubject()
	assert.Equal(t, "Budi Santoso", sub.Name)
	assert.Empty(t, sub.Primary)
}
