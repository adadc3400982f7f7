package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukmiverse/ukmiverse/core"
	"github.com/ukmiverse/ukmiverse/core/avatar"
	"github.com/ukmiverse/ukmiverse/core/club"
	"github.com/ukmiverse/ukmiverse/core/user"
	logsvc "github.com/ukmiverse/ukmiverse/services/logger"
	uploadsvc "github.com/ukmiverse/ukmiverse/services/upload"
	inmemdb "github.com/ukmiverse/ukmiverse/storage/database/inmem"
	"github.com/ukmiverse/ukmiverse/testutil"
)

const (
	okPNG     = "https://cdn.test/ok.png"
	brokenPNG = "https://cdn.test/broken.png"
	fallbackA = "https://fallback.test/a.png"
	fallbackB = "https://fallback.test/b.png"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

// fakeProber loads every URL but the broken ones.
type fakeProber struct {
	broken  map[string]bool
	failAll bool
	calls   int64
}

func (p *fakeProber) Probe(_ context.Context, url string) error {
	atomic.AddInt64(&p.calls, 1)
	if p.failAll || p.broken[url] {
		return avatar.NewProbeError(avatar.KindNetworkFailure, "status 404", nil)
	}
	return nil
}

func (p *fakeProber) count() int {
	return int(atomic.LoadInt64(&p.calls))
}

type testApp struct {
	*Server
	conf     *core.Config
	usrRepo  user.Repository
	clubRepo club.Repository
	prober   *fakeProber
	cache    *avatar.MemoryCache
	uploads  *uploadsvc.Store
}

func setup(t *testing.T, broken ...string) *testApp {
	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "UKMiverse",
		SecretKey: "test-secret",
		Server: core.ServerConfig{
			JWTExpirationDelta: time.Hour,
			JWTAudience:        "UKMiverse",
		},
	}

	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	logger.Enable(false)

	// set up DB & repos
	db := inmemdb.Open()
	t.Cleanup(func() { _ = db.Close() })
	usrRepo := inmemdb.NewUserRepository(db)
	clubRepo := inmemdb.NewClubRepository(db)

	// set up services
	prober := &fakeProber{broken: make(map[string]bool)}
	for _, u := range broken {
		prober.broken[u] = true
	}
	uploads, err := uploadsvc.NewStore(t.TempDir(), 1024, logger)
	require.NoError(t, err)
	cache := avatar.NewMemoryCache()
	avatarSvc := avatar.NewService(
		avatar.NewValidator(
			uploads.Prober("https://ukm.test", prober),
			avatar.WithCache(cache),
			avatar.WithBaseURL("https://ukm.test"),
		),
		avatar.Config{Fallbacks: []string{fallbackA, fallbackB}},
		logger,
	)
	validate, translator := testutil.NewValidator()

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        user.NewService(usrRepo, user.WithAvatarFiles(uploads)),
		ClubSvc:        club.NewService(clubRepo),
		AvatarSvc:      avatarSvc,
		Uploads:        uploads,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return &testApp{
		Server:   srv,
		conf:     conf,
		usrRepo:  usrRepo,
		clubRepo: clubRepo,
		prober:   prober,
		cache:    cache,
		uploads:  uploads,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, app.conf), app.conf.SecretKey)
	require.NoError(t, err)
	return token
}

// run serves every test and checks the code and, when wantData is set, the JSON body.
func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func marshalList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	return marshalObj(t, objs)
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	wantCode := tt.wantCode
	if wantCode == 0 {
		wantCode = http.StatusOK
	}
	assert.Equal(t, wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to UKMiverse API!", rec.Body.String())
}

func TestServer_metrics(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/metrics")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestServer_signalShutdown(t *testing.T) {
	app := setup(t)
	app.signalShutdown()
	app.signalShutdown() // never blocks

	select {
	case <-app.ShutdownSignal():
	case <-time.After(time.Second):
		t.Fatal("no shutdown signal")
	}
}
