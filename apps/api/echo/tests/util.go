package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/dismissal/apps/api/echo"
	"github.com/trezcool/dismissal/core"
	"github.com/trezcool/dismissal/core/dismissal"
	"github.com/trezcool/dismissal/core/metrics"
	"github.com/trezcool/dismissal/core/user"
	"github.com/trezcool/dismissal/services/telemetry"
	"github.com/trezcool/dismissal/storage/database/inmem"
	"github.com/trezcool/dismissal/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}

	admin   = user.Principal{ID: "u-admin", Username: "admin", Email: "admin@school.test", Roles: []string{user.RoleAdmin}}
	staff   = user.Principal{ID: "u-staff", Username: "staff", Roles: []string{user.RoleStaff}}
	teacher = user.Principal{ID: "u-teacher", Username: "teacher", Roles: []string{user.RoleTeacher}}
	student = user.Principal{ID: "u-student", Username: "student", Roles: []string{user.RoleStudent}}
)

type testApp struct {
	Server
	conf     *core.Config
	events   dismissal.Repository
	recorder *telemetry.Recorder
	logger   *testutil.Logger
}

func setup(t *testing.T, events ...dismissal.Event) testApp {
	return setupWithStore(t, nil, events...)
}

// setupWithStore lets wrap replace the in-memory metrics store.
func setupWithStore(t *testing.T, wrap func(metrics.Store) metrics.Store, events ...dismissal.Event) testApp {
	conf := &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Dismissal",
		SecretKey: "test-secret",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Quality:   core.DefaultQualityThresholds(),
	}

	// set up DB & repos
	db := inmemdb.Open()
	eventRepo := inmemdb.NewEventRepository(db)
	var store metrics.Store = inmemdb.NewMetricsStore(db)
	if wrap != nil {
		store = wrap(store)
	}
	if len(events) > 0 {
		testutil.CreateEvents(t, eventRepo, events...)
	}

	// set up services
	logger := new(testutil.Logger)
	recorder := telemetry.NewRecorder()
	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)

	agg := metrics.NewAggregator(eventRepo, store, conf.Quality, logger, recorder)

	// set up server
	srv := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		DismissalSvc:   dismissal.NewService(eventRepo, conf.Quality, logger, recorder),
		MetricsSvc:     metrics.NewService(store, agg, conf.Quality, logger),
		Telemetry:      recorder,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})
	t.Cleanup(func() { _ = srv.Close() })

	return testApp{Server: srv, conf: conf, events: eventRepo, recorder: recorder, logger: logger}
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
	extra    interface{}
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

func (app testApp) do(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, p user.Principal) string {
	token, err := GenerateToken(NewClaims(p, conf), conf)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCode(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	checkCode(t, tt, rec)
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
