package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/malekai-gauntlet/tsa-platform-sub001/apps/api/echo"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/edfi"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/event"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/invitation"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/notify"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/onboarding"
	"github.com/malekai-gauntlet/tsa-platform-sub001/core/user"
	emailsvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/email"
	identitysvc "github.com/malekai-gauntlet/tsa-platform-sub001/services/identity"
	inmemdb "github.com/malekai-gauntlet/tsa-platform-sub001/storage/database/inmem"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

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

type fakeCalendar struct {
	mu      sync.Mutex
	upserts int
}

func (c *fakeCalendar) UpsertEvent(_ context.Context, ev core.CalendarEvent) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.upserts++
	if ev.Title == "" {
		return "", errors.New("missing title")
	}
	return core.FirstNonEmpty(ev.ExternalID, "cal-"+ev.Title), nil
}

type fixture struct {
	app         *echoapi.Server
	conf        *core.Config
	users       user.Repository
	identity    *identitysvc.LocalProvider
	invitations *invitation.Service
	calendar    *fakeCalendar
}

func setup(t *testing.T) fixture {
	t.Helper()
	emailsvc.ResetSentMessages()

	conf := core.NewTestConfig()
	logger := core.NopLogger{}
	templates, err := notify.NewGenerator(conf)
	require.NoError(t, err)
	ids, err := edfi.NewIDGenerator(conf.SnowflakeNode)
	require.NoError(t, err)

	// set up DB & repos
	db := inmemdb.Open()
	users := inmemdb.NewUserRepository(db)

	// set up services
	identity := identitysvc.NewLocalProvider(logger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	calendar := new(fakeCalendar)
	invSvc := invitation.NewService(inmemdb.NewInvitationRepository(db), identity, mailSvc, templates, logger, conf)
	prov := edfi.NewProvisioner(users, inmemdb.NewEdfiRepository(db), ids, logger)

	app := echoapi.NewServer(echoapi.ServerDeps{
		Conf:           conf,
		Logger:         logger,
		Auth:           identity,
		UserSvc:        user.NewService(users),
		InvitationSvc:  invSvc,
		OnboardingSvc:  onboarding.NewService(inmemdb.NewProgressRepository(db), invSvc, prov, identity, mailSvc, templates, logger, conf),
		EventSvc:       event.NewService(inmemdb.NewEventRepository(db), calendar, mailSvc, templates, logger),
		DisableReqLogs: true,
	})
	return fixture{app: app, conf: conf, users: users, identity: identity, invitations: invSvc, calendar: calendar}
}

func (f fixture) createUser(t *testing.T, email string, role user.Role) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := f.users.CreateUser(context.Background(), user.User{
		Email:     email,
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	return usr
}

func (f fixture) token(t *testing.T, usr user.User, email ...string) string {
	t.Helper()
	var e string
	if len(email) > 0 {
		e = email[0]
	}
	token, err := f.app.GenerateToken(usr, e)
	require.NoError(t, err)
	return token
}

func (f fixture) serve(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	f.app.ServeHTTP(rec, req)
	return rec
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

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
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

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
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

func runHTTPTests(t *testing.T, f fixture, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, f.serve(req, rec))
		})
	}
}
