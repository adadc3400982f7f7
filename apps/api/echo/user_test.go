package echoapi

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukmiverse/ukmiverse/core/user"
	"github.com/ukmiverse/ukmiverse/testutil"
)

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	path := func(search, ordering, role string, createdFrom, createdTo time.Time, isActive *bool) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if role != "" {
			v.Add("role", role)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now().Truncate(time.Second)
	t1 := now.Add(1 * time.Hour)
	t2 := now.Add(2 * time.Hour)
	t3 := now.Add(3 * time.Hour)

	budi := testutil.CreateUser(t, app.usrRepo, "Budi Santoso", "budi", "budi@ukm.test", user.RoleMember, true, t1)
	sari := testutil.CreateUser(t, app.usrRepo, "Sari Dewi", "sari", "sari@ukm.test", user.RoleMember, true)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true, t2)
	joko := testutil.CreateUser(t, app.usrRepo, "Joko", "joko", "joko@ukm.test", user.RoleMember, false, t3)

	adminToken := app.getToken(t, admin)
	empty := marshalList(t)

	app.run(t, []httpTest{
		{name: "Get all", path: "/v1/users", token: adminToken, wantData: marshalList(t, admin, budi, joko, sari)},
		// filtering
		{name: "search (unknown)", path: path("lol", "", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: empty},
		{name: "search=SAN", path: path("SAN", "", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: marshalList(t, budi)},
		{name: "search by email", path: path("sari@", "", "", time.Time{}, time.Time{}, nil), token: adminToken, wantData: marshalList(t, sari)},
		{name: "role (unknown)", path: path("", "", "lol", time.Time{}, time.Time{}, nil), token: adminToken, wantData: empty},
		{name: "role=admin", path: path("", "", "admin", time.Time{}, time.Time{}, nil), token: adminToken, wantData: marshalList(t, admin)},
		{
			name: "role=user (legacy)", path: path("", "", "user", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marshalList(t, budi, joko, sari),
		},
		{name: "is_active=false", path: path("", "", "", time.Time{}, time.Time{}, bPtr(false)), token: adminToken, wantData: marshalList(t, joko)},
		{
			name: "created_from", path: path("", "", "", t1, time.Time{}, nil),
			token: adminToken, wantData: marshalList(t, admin, budi, joko),
		},
		{
			name: "created_from - created_to", path: path("", "", "", t1, t2, nil),
			token: adminToken, wantData: marshalList(t, admin, budi),
		},
		// ordering
		{
			name: "order by -created_at", path: path("", "-created_at", "", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marshalList(t, joko, admin, budi, sari),
		},
		{
			name: "unknown ordering ignored", path: path("", "password", "", time.Time{}, time.Time{}, nil),
			token: adminToken, wantData: marshalList(t, admin, budi, joko, sari),
		},
		{
			name: "filtering & ordering", path: path("", "-full_name", "member", time.Time{}, time.Time{}, bPtr(true)),
			token: adminToken, wantData: marshalList(t, sari, budi),
		},
	})
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)

	app.run(t, []httpTest{
		{
			name: "roles", path: "/v1/users/roles", token: app.getToken(t, admin),
			wantData: []byte(`[{"name":"Member","value":"member"},{"name":"Admin","value":"admin"}]`),
		},
	})
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)
	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	sari := testutil.CreateUser(t, app.usrRepo, "Sari", "sari", "sari@ukm.test", user.RoleMember, true)

	notFound := marshalObj(t, httpErr{Error: "not found"})

	app.run(t, []httpTest{
		{name: "Auth required", path: "/v1/users/" + budi.ID, wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{name: "self", path: "/v1/users/" + budi.ID, token: app.getToken(t, budi), wantData: marshalObj(t, newProfileResponse(budi))},
		{name: "other user", path: "/v1/users/" + budi.ID, token: app.getToken(t, sari), wantCode: http.StatusNotFound, wantData: notFound},
		{name: "admin", path: "/v1/users/" + budi.ID, token: app.getToken(t, admin), wantData: marshalObj(t, newProfileResponse(budi))},
		{name: "unknown", path: "/v1/users/nope", token: app.getToken(t, admin), wantCode: http.StatusNotFound, wantData: notFound},
	})
}

func Test_userApi_update(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)
	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	_ = testutil.CreateUser(t, app.usrRepo, "Sari", "sari", "sari@ukm.test", user.RoleMember, true)

	adminToken := app.getToken(t, admin)
	path := "/v1/users/" + budi.ID

	app.run(t, []httpTest{
		{
			name: "member forbidden", method: http.MethodPut, path: path, token: app.getToken(t, budi),
			body: []byte(`{"role":"admin"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "invalid role", method: http.MethodPut, path: path, token: adminToken,
			body: []byte(`{"role":"root"}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"role":"invalid role"}`),
		},
		{
			name: "username taken", method: http.MethodPut, path: path, token: adminToken,
			body: []byte(`{"username":"SARI"}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"username":"a user with this username already exists"}`),
		},
		{
			name: "cannot demote self", method: http.MethodPut, path: "/v1/users/" + admin.ID, token: adminToken,
			body: []byte(`{"role":"member"}`), wantCode: http.StatusForbidden,
		},
	})

	req, rec := newAuthRequest(http.MethodPut, path, adminToken, []byte(`{"role":"admin","is_active":false,"username":"budi_s"}`))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got user.User
	decode(t, rec, &got)
	assert.Equal(t, user.RoleAdmin, got.Role)
	assert.False(t, got.IsActive)
	assert.Equal(t, "budi_s", got.Username)
	assert.Equal(t, budi.Email, got.Email)
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)
	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	sari := testutil.CreateUser(t, app.usrRepo, "Sari", "sari", "sari@ukm.test", user.RoleMember, true)
	joko := testutil.CreateUser(t, app.usrRepo, "Joko", "joko", "joko@ukm.test", user.RoleMember, true)

	adminToken := app.getToken(t, admin)

	app.run(t, []httpTest{
		{name: "member forbidden", method: http.MethodDelete, path: "/v1/users/" + sari.ID, token: app.getToken(t, budi), wantCode: http.StatusForbidden},
		{name: "not self", method: http.MethodDelete, path: "/v1/users/" + admin.ID, token: adminToken, wantCode: http.StatusForbidden},
		{name: "one", method: http.MethodDelete, path: "/v1/users/" + budi.ID, token: adminToken, wantCode: http.StatusNoContent},
		{name: "gone", method: http.MethodGet, path: "/v1/users/" + budi.ID, token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "multiple not self", method: http.MethodDelete, path: "/v1/users?id=" + sari.ID + "&id=" + admin.ID,
			token: adminToken, wantCode: http.StatusForbidden,
		},
		{name: "multiple none", method: http.MethodDelete, path: "/v1/users", token: adminToken, wantCode: http.StatusNoContent},
		{
			name: "multiple", method: http.MethodDelete, path: "/v1/users?id=" + sari.ID + "&id=" + joko.ID + "&id=invalid",
			token: adminToken, wantCode: http.StatusNoContent,
		},
		{name: "remaining", path: "/v1/users", token: adminToken, wantData: marshalList(t, admin)},
	})
}
