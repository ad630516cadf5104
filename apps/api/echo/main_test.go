package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/educonnectpro/educonnect/apps/api/echo"
	"github.com/educonnectpro/educonnect/core"
	"github.com/educonnectpro/educonnect/core/ai"
	"github.com/educonnectpro/educonnect/core/booking"
	"github.com/educonnectpro/educonnect/core/classroom"
	"github.com/educonnectpro/educonnect/core/fee"
	"github.com/educonnectpro/educonnect/core/payment"
	"github.com/educonnectpro/educonnect/core/reward"
	"github.com/educonnectpro/educonnect/core/support"
	"github.com/educonnectpro/educonnect/core/user"
	appfs "github.com/educonnectpro/educonnect/fs"
	emailsvc "github.com/educonnectpro/educonnect/services/email"
	metricsvc "github.com/educonnectpro/educonnect/services/metrics"
	inmemdb "github.com/educonnectpro/educonnect/storage/database/inmem"
	testutil "github.com/educonnectpro/educonnect/tests"
)

const pwd = "Pa$$w0rd!"

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fakeModel struct {
	mu     sync.Mutex
	answer string
	err    error
}

func (m *fakeModel) Generate(context.Context, ai.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.answer, m.err
}

func (m *fakeModel) set(answer string, err error) {
	m.mu.Lock()
	m.answer, m.err = answer, err
	m.mu.Unlock()
}

type env struct {
	app     *echoapi.Server
	usrRepo user.Repository
	usrSvc  *user.Service
	mail    *emailsvc.ConsoleServiceMock
	model   *fakeModel
}

func setup(t *testing.T, configure ...func(*core.Config)) *env {
	t.Helper()
	conf := core.NewTestConfig()
	conf.Debug = false
	conf.Server.AuthRateLimit = 1000
	for _, c := range configure {
		c(conf)
	}
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(appfs.FS, conf.FrontendBaseURL, true, logger)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	classroom.InitValidators(validate, translator)

	// set up DB & repos
	db := inmemdb.Open()
	e := &env{
		usrRepo: inmemdb.NewUserRepository(db),
		mail:    emailsvc.NewConsoleServiceMock(conf, logger),
		model:   new(fakeModel),
	}

	// set up services
	otp := testutil.NewOTPVerifier("123456")
	google := testutil.IdentityVerifier{
		"good":       {Subject: "g1", Email: "grace@example.com", EmailVerified: true, Name: "Grace"},
		"unverified": {Subject: "g2", Email: "bob@example.com"},
	}
	e.usrSvc = user.NewService(e.usrRepo, e.mail, otp, google, conf)
	metrics := metricsvc.NewMetrics()
	payments := payment.NewSimulator(conf, metrics)
	classSvc := classroom.NewService(inmemdb.NewClassroomRepository(db), e.usrSvc)

	// set up server
	e.app = echoapi.NewServer(&echoapi.Deps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Metrics:    metrics,
		UserSvc:    e.usrSvc,
		RewardSvc:  reward.NewService(e.usrSvc, reward.DefaultTiers),
		ClassSvc:   classSvc,
		FeeSvc:     fee.NewService(inmemdb.NewFeeRepository(db), classSvc, payments),
		BookingSvc: booking.NewService(inmemdb.NewBookingRepository(db), e.usrSvc, payments),
		SupportSvc: support.NewService(inmemdb.NewTicketRepository(db), e.mail),
		AIFlows:    ai.NewFlows(e.model, validate, metrics),
	})
	return e
}

func (e *env) createUser(t *testing.T, name, email string, role user.Role, profile ...user.Profile) user.User {
	t.Helper()
	return testutil.CreateUser(t, e.usrRepo, name, email, pwd, role, true, profile...)
}

func (e *env) token(t *testing.T, usr user.User) string {
	t.Helper()
	tokens := e.app.Tokens()
	token, err := tokens.GenerateToken(tokens.UserClaims(usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do runs a request against the app and returns the recorder.
func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func (e *env) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
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
	return assert.ObjectsAreEqual(j1, j2), nil
}

// checkCodeAndData compares the body only when tt.wantData is set.
func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
