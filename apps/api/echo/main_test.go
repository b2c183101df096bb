package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/trezcool/seatplan/core"
	"github.com/trezcool/seatplan/core/activity"
	"github.com/trezcool/seatplan/core/classroom"
	"github.com/trezcool/seatplan/core/ghost"
	"github.com/trezcool/seatplan/core/mailing"
	"github.com/trezcool/seatplan/core/transfer"
	"github.com/trezcool/seatplan/core/user"
	emailsvc "github.com/trezcool/seatplan/services/email"
	logsvc "github.com/trezcool/seatplan/services/logger"
	metricsvc "github.com/trezcool/seatplan/services/metrics"
	"github.com/trezcool/seatplan/storage/database/sqlx"
	"github.com/trezcool/seatplan/tests"
)

var errMissingTokenData = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app     Server
	conf    *core.Config
	tokens  tokenIssuer
	mailSvc *emailsvc.ConsoleServiceMock

	usrRepo   user.Repository
	classRepo classroom.Repository
	usrSvc    user.Service
	classSvc  classroom.Service
	actSvc    activity.Service
	mailing   mailing.Service
}

// setup builds a server over a fresh in-memory database; confFns tweak the config first.
func setup(t *testing.T, confFns ...func(conf *core.Config)) *testEnv {
	conf := core.NewTestConfig()
	for _, fn := range confFns {
		fn(conf)
	}
	db := testutil.PrepareDB(t)

	validate := validator.New()
	translator, _ := ut.New(en.New()).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	activity.InitValidators(validate, translator)
	mailing.InitValidators(validate, translator)
	transfer.InitValidators(validate, translator)

	logger := logsvc.NewRollbarLogger(zap.NewNop(), conf)
	logger.Enable(false)

	env := &testEnv{
		conf:      conf,
		tokens:    newTokenIssuer(conf),
		mailSvc:   emailsvc.NewConsoleServiceMock(conf, logger),
		usrRepo:   sqlxrepos.NewUserRepository(db),
		classRepo: sqlxrepos.NewClassroomRepository(db),
	}
	env.usrSvc = user.NewServiceMock(env.usrRepo, env.mailSvc, conf)
	env.classSvc = classroom.NewService(env.classRepo, conf.Canvas)
	env.actSvc = activity.NewService(sqlxrepos.NewActivityRepository(db))
	transferSvc := transfer.NewService(env.classSvc, env.actSvc, validate, logger)
	env.mailing = mailing.NewService(sqlxrepos.NewMailingRepository(db), transferSvc, env.mailSvc, logger)

	env.app = NewServer(&Options{
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		Metrics:        metricsvc.NewCollector("seatplan_test"),
		UserSvc:        env.usrSvc,
		ClassroomSvc:   env.classSvc,
		ActivitySvc:    env.actSvc,
		MailingSvc:     env.mailing,
		TransferSvc:    transferSvc,
		GhostSvc:       ghost.NewService(conf.Ghost, env.classSvc, env.actSvc, nil),
	})
	return env
}

// staff creates a teacher and returns their token.
func (env *testEnv) staff(t *testing.T) string {
	teacher := testutil.CreateUser(t, env.usrRepo, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	return getToken(t, env, teacher)
}

func (env *testEnv) serve(tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.app.ServeHTTP(rec, req)
	return rec
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

func requestCtx() context.Context {
	return context.Background()
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, env *testEnv, usr user.User) string {
	token, err := env.tokens.Token(usr)
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

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tt.wantCode, rec.Code, "code; body %s", rec.Body.String())
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
