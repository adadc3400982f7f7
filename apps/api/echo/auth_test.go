package echoapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukmiverse/ukmiverse/core/user"
	"github.com/ukmiverse/ukmiverse/testutil"
)

func TestClaims_Valid(t *testing.T) {
	future := time.Now().Add(time.Hour).Unix()
	std := jwt.StandardClaims{Subject: "42", ExpiresAt: future}

	tests := []struct {
		name     string
		claims   Claims
		wantRole user.Role
		wantErr  bool
	}{
		{name: "role name", claims: Claims{StandardClaims: std, Role: "admin"}, wantRole: user.RoleAdmin},
		{name: "legacy user name", claims: Claims{StandardClaims: std, Role: "user"}, wantRole: user.RoleMember},
		{name: "legacy admin id", claims: Claims{StandardClaims: std, RoleID: 1}, wantRole: user.RoleAdmin},
		{name: "legacy user id", claims: Claims{StandardClaims: std, RoleID: 2}, wantRole: user.RoleMember},
		{name: "is_admin flag", claims: Claims{StandardClaims: std, IsAdmin: true}, wantRole: user.RoleAdmin},
		{name: "name wins over id", claims: Claims{StandardClaims: std, Role: "member", RoleID: 1}, wantRole: user.RoleMember},
		{name: "no role", claims: Claims{StandardClaims: std}, wantRole: user.RoleMember},
		{name: "unknown role", claims: Claims{StandardClaims: std, Role: "superuser"}, wantErr: true},
		{name: "unknown id", claims: Claims{StandardClaims: std, RoleID: 7}, wantErr: true},
		{name: "no subject", claims: Claims{StandardClaims: jwt.StandardClaims{ExpiresAt: future}}, wantErr: true},
		{
			name:    "expired",
			claims:  Claims{StandardClaims: jwt.StandardClaims{Subject: "42", ExpiresAt: time.Now().Add(-time.Hour).Unix()}},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.claims.Valid()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, tt.claims.UserRole())
		})
	}
}

func TestAuth(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)
	member := testutil.CreateUser(t, app.usrRepo, "Member", "member", "member@ukm.test", user.RoleMember, true)
	inactive := testutil.CreateUser(t, app.usrRepo, "Gone", "gone", "gone@ukm.test", user.RoleAdmin, false)

	sign := func(claims jwt.MapClaims) string {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(app.conf.SecretKey))
		require.NoError(t, err)
		return token
	}
	forged, err := GenerateToken(GetUserClaims(admin, app.conf), "not-the-secret")
	require.NoError(t, err)

	invalidToken := marshalObj(t, httpErr{Error: "invalid or expired jwt"})
	forbidden := marshalObj(t, httpErr{Error: "permission denied"})

	app.run(t, []httpTest{
		{name: "no token", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "forged token", path: "/v1/users", token: forged, wantCode: http.StatusUnauthorized, wantData: invalidToken},
		{name: "member", path: "/v1/users", token: app.getToken(t, member), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin", path: "/v1/users", token: app.getToken(t, admin)},
		{name: "legacy admin role_id", path: "/v1/users", token: sign(jwt.MapClaims{"sub": admin.ID, "role_id": 1})},
		{
			name: "legacy user role_id", path: "/v1/users", token: sign(jwt.MapClaims{"sub": member.ID, "role_id": 2}),
			wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "unknown role", path: "/v1/profile", token: sign(jwt.MapClaims{"sub": member.ID, "role": "root"}),
			wantCode: http.StatusUnauthorized, wantData: invalidToken,
		},
		{
			name: "deactivated account", path: "/v1/users", token: app.getToken(t, inactive),
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "unknown user", path: "/v1/profile", token: sign(jwt.MapClaims{"sub": "c0ffee00-0000-4000-8000-000000000000"}),
			wantCode: http.StatusUnauthorized, wantData: marshalObj(t, httpErr{Error: "user not authenticated"}),
		},
	})
}
