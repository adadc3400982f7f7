package echoapi

import (
	"encoding/base64"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/user"
	"github.com/ukmiverse/ukmiverse/testutil"
)

func withAvatar(t *testing.T, app *testApp, usr user.User, ref string) user.User {
	usr.AvatarURL = core.StringPtr(ref)
	usr, err := app.usrRepo.UpdateUser(t.Context(), usr)
	require.NoError(t, err)
	return usr
}

func Test_avatarApi_userAvatar(t *testing.T) {
	app := setup(t, brokenPNG)

	budi := testutil.CreateUser(t, app.usrRepo, "Budi Santoso", "budi", "budi@ukm.test", user.RoleMember, true)
	personal := avatar.Personalized("Budi Santoso", avatar.DefaultColor)

	resolve := func(t *testing.T, query string) avatar.Resolution {
		req, rec := newRequest(http.MethodGet, "/v1/users/"+budi.ID+"/avatar"+query)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var res avatar.Resolution
		decode(t, rec, &res)
		return res
	}

	t.Run("no avatar", func(t *testing.T) {
		res := resolve(t, "")
		assert.Equal(t, avatar.StateLoaded, res.State)
		assert.Equal(t, personal[0], res.Src)
		assert.Equal(t, 0, res.Index)
		assert.Equal(t, len(personal)+2, res.Length)
	})

	t.Run("primary", func(t *testing.T) {
		budi = withAvatar(t, app, budi, okPNG)
		res := resolve(t, "")
		assert.Equal(t, okPNG, res.Src)
		assert.Len(t, res.Attempts, 1)
	})

	t.Run("broken primary", func(t *testing.T) {
		budi = withAvatar(t, app, budi, brokenPNG)
		res := resolve(t, "")
		assert.Equal(t, avatar.StateLoaded, res.State)
		assert.Equal(t, personal[0], res.Src)
		assert.Equal(t, 1, res.Index)
		assert.Equal(t, 1, res.Failures)

		// the failure is shared: the broken primary is not probed again
		calls := app.prober.count()
		resolve(t, "")
		assert.Equal(t, calls, app.prober.count())
	})

	t.Run("unknown user", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users/nope/avatar")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_avatarApi_redirect(t *testing.T) {
	app := setup(t)
	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	path := "/v1/users/" + budi.ID + "/avatar?redirect=true"

	t.Run("url", func(t *testing.T) {
		budi = withAvatar(t, app, budi, okPNG)
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, okPNG, rec.Header().Get("Location"))
	})

	t.Run("site path", func(t *testing.T) {
		budi = withAvatar(t, app, budi, "/img/budi.png")
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "https://ukm.test/img/budi.png", rec.Header().Get("Location"))
	})

	t.Run("data uri", func(t *testing.T) {
		budi = withAvatar(t, app, budi, "data:image/png;base64,"+strings.Repeat("A", 120))
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, 90, rec.Body.Len())
		assert.Equal(t, imageCSP, rec.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("svg data uri cannot run scripts", func(t *testing.T) {
		svg := `<svg xmlns="http://www.w3.org/2000/svg" width="10" height="10">` +
			`<script>fetch("/v1/profile",{credentials:"include"})</script><rect width="10" height="10"/></svg>`
		budi = withAvatar(t, app, budi, "data:image/svg+xml;base64,"+base64.StdEncoding.EncodeToString([]byte(svg)))
		req, rec := newRequest(http.MethodGet, path)
		app.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "default-src 'none'; style-src 'unsafe-inline'; sandbox", rec.Header().Get("Content-Security-Policy"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "inline", rec.Header().Get("Content-Disposition"))
	})

	t.Run("placeholder", func(t *testing.T) {
		app.prober.failAll = true
		defer func() { app.prober.failAll = false }()

		budi = withAvatar(t, app, budi, "https://cdn.test/gone.png")
		req, rec := newRequest(http.MethodGet, path+"&size=64")
		app.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, avatar.PlaceholderContentType, rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.Equal(t, imageCSP, rec.Header().Get("Content-Security-Policy"))
		assert.Contains(t, rec.Body.String(), "image unavailable")
		assert.Contains(t, rec.Body.String(), `width="64"`)
	})
}

func Test_avatarApi_retry(t *testing.T) {
	app := setup(t)

	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	sari := testutil.CreateUser(t, app.usrRepo, "Sari", "sari", "sari@ukm.test", user.RoleMember, true)
	budi = withAvatar(t, app, budi, okPNG)

	// every candidate fails while the CDN is down
	app.prober.failAll = true
	req, rec := newRequest(http.MethodGet, "/v1/users/"+budi.ID+"/avatar")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var res avatar.Resolution
	decode(t, rec, &res)
	assert.Equal(t, avatar.StateFailed, res.State)
	assert.True(t, res.Placeholder)
	assert.Equal(t, avatar.KindExhaustedFallbacks, res.LastError)
	assert.Equal(t, res.Length, res.Failures)

	// back up, but the failures stay cached until a retry
	app.prober.failAll = false
	req, rec = newRequest(http.MethodGet, "/v1/users/"+budi.ID+"/avatar")
	app.ServeHTTP(rec, req)
	decode(t, rec, &res)
	assert.Equal(t, avatar.StateFailed, res.State)

	app.run(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/users/" + budi.ID + "/avatar/retry", wantCode: http.StatusUnauthorized},
		{
			name: "other user", method: http.MethodPost, path: "/v1/users/" + budi.ID + "/avatar/retry",
			token: app.getToken(t, sari), wantCode: http.StatusNotFound,
		},
	})

	req, rec = newAuthRequest(http.MethodPost, "/v1/users/"+budi.ID+"/avatar/retry", app.getToken(t, budi))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &res)
	assert.Equal(t, avatar.StateLoaded, res.State)
	assert.Equal(t, okPNG, res.Src)
}

func Test_avatarApi_fallbacks(t *testing.T) {
	app := setup(t)

	want := FallbacksResponse{
		Initial:   "B",
		Fallbacks: append(avatar.Personalized("budi", "0066cc"), fallbackA, fallbackB),
	}
	app.run(t, []httpTest{
		{name: "personalized", path: "/v1/avatars/fallbacks?name=budi&color=%230066CC", wantData: marshalObj(t, want)},
		{
			name: "anonymous", path: "/v1/avatars/fallbacks",
			wantData: marshalObj(t, FallbacksResponse{Initial: "?", Fallbacks: []string{fallbackA, fallbackB}}),
		},
	})

	req, rec := newRequest(http.MethodGet, "/v1/avatars/placeholder?name=sari")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, avatar.PlaceholderContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), ">S</text>")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func Test_avatarApi_validate(t *testing.T) {
	app := setup(t, brokenPNG)
	budi := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)
	token := app.getToken(t, budi)

	app.run(t, []httpTest{
		{name: "Auth required", method: http.MethodPost, path: "/v1/avatars/validate", body: []byte(`{}`), wantCode: http.StatusUnauthorized},
		{
			name: "required", method: http.MethodPost, path: "/v1/avatars/validate", token: token,
			body: []byte(`{}`), wantCode: http.StatusBadRequest, wantData: []byte(`{"candidate":"this field is required"}`),
		},
		{
			name: "bad format", method: http.MethodPost, path: "/v1/avatars/validate", token: token,
			body:     []byte(`{"candidate":"data:image/png;base64,YQ=="}`),
			wantData: []byte(`{"format":{"valid":false,"reason":"too short","kind":"invalid_format"}}`),
		},
		{
			name: "format only", method: http.MethodPost, path: "/v1/avatars/validate", token: token,
			body: []byte(`{"candidate":"` + brokenPNG + `","format_only":true}`), wantData: []byte(`{"format":{"valid":true}}`),
		},
		{
			name: "loads", method: http.MethodPost, path: "/v1/avatars/validate", token: token,
			body: []byte(`{"candidate":"` + okPNG + `"}`), wantData: []byte(`{"format":{"valid":true},"load":{"valid":true}}`),
		},
		{
			name: "broken", method: http.MethodPost, path: "/v1/avatars/validate", token: token,
			body:     []byte(`{"candidate":"` + brokenPNG + `"}`),
			wantData: []byte(`{"format":{"valid":true},"load":{"valid":false,"reason":"status 404","kind":"network_failure"}}`),
		},
	})
}

func Test_avatarApi_recommend(t *testing.T) {
	app := setup(t, brokenPNG)

	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@ukm.test", user.RoleAdmin, true)
	member := testutil.CreateUser(t, app.usrRepo, "Budi", "budi", "budi@ukm.test", user.RoleMember, true)

	body := marshalObj(t, RecommendRequest{URLs: []string{brokenPNG, okPNG, "https://via.placeholder.com/150", "http://cdn.test/plain.png"}})

	app.run(t, []httpTest{
		{name: "Admin required", method: http.MethodPost, path: "/v1/avatars/recommend", token: app.getToken(t, member), body: body, wantCode: http.StatusForbidden},
		{
			name: "no urls", method: http.MethodPost, path: "/v1/avatars/recommend", token: app.getToken(t, admin),
			body: []byte(`{"urls":[]}`), wantCode: http.StatusBadRequest,
		},
	})

	req, rec := newAuthRequest(http.MethodPost, "/v1/avatars/recommend", app.getToken(t, admin), body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report avatar.Report
	decode(t, rec, &report)
	assert.Len(t, report.All, 4)
	require.Len(t, report.Valid, 3)
	require.Len(t, report.Invalid, 1)
	assert.Equal(t, brokenPNG, report.Invalid[0].URL)
	assert.Equal(t, "https://via.placeholder.com/150", report.Recommended[0].URL)
	assert.Len(t, report.Recommended, 3)
}
