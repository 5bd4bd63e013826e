package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"meatstore/internal/config"
	"meatstore/internal/hash"
	mwauth "meatstore/internal/middleware/auth"
	"meatstore/internal/models"
	"meatstore/internal/token"
)

type sentMail struct {
	Kind string // "verification", "reset", "reset_success"
	To   string
	Code string
	URL  string
}

type fakeMailer struct {
	Sent []sentMail
}

func (f *fakeMailer) SendVerificationEmail(to, code string) error {
	f.Sent = append(f.Sent, sentMail{Kind: "verification", To: to, Code: code})
	return nil
}

func (f *fakeMailer) SendPasswordResetEmail(to, resetURL string) error {
	f.Sent = append(f.Sent, sentMail{Kind: "reset", To: to, URL: resetURL})
	return nil
}

func (f *fakeMailer) SendResetSuccessEmail(to string) error {
	f.Sent = append(f.Sent, sentMail{Kind: "reset_success", To: to})
	return nil
}

type recordedEvent struct {
	Topic string
	Key   string
	Event map[string]interface{}
}

type fakePublisher struct {
	Events []recordedEvent
}

func (f *fakePublisher) PublishEvent(_ context.Context, topic, key string, event interface{}) error {
	m, _ := event.(map[string]interface{})
	f.Events = append(f.Events, recordedEvent{Topic: topic, Key: key, Event: m})
	return nil
}

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	A      *AuthHandler
	C      *CartHandler
	Mail   *fakeMailer
	Pub    *fakePublisher
	Tokens *token.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// one connection so every session sees the same in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, config.Migrate(db))

	env := &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Mail:   &fakeMailer{},
		Pub:    &fakePublisher{},
		Tokens: token.New([]byte("test-jwt-secret")),
	}

	env.A = &AuthHandler{
		DB:        db,
		Tokens:    env.Tokens,
		Mailer:    env.Mail,
		Producer:  env.Pub,
		ClientURL: "http://localhost:4200",
	}
	env.C = &CartHandler{DB: db, Producer: env.Pub}

	t.Cleanup(func() { _ = sqlDB.Close() })

	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

// asUser stamps the context the way RequireSession would.
func asUser(c echo.Context, userID uint) {
	c.Set(mwauth.ContextKey, userID)
}

func (env *testEnv) createUser(email, password, role string, verified bool) *models.User {
	env.T.Helper()
	pwHash, err := hash.HashPassword(password)
	require.NoError(env.T, err)

	user := &models.User{
		Email:        email,
		PasswordHash: pwHash,
		Name:         "Test User",
		Phone:        "9876543210",
		Role:         role,
		IsVerified:   verified,
	}
	require.NoError(env.T, env.DB.Create(user).Error)
	return user
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
