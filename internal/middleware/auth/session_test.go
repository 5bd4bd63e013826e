package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"meatstore/internal/models"
	"meatstore/internal/token"
)

func newTestSession(t *testing.T) (*Session, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}))

	return NewSession(token.New([]byte("test-jwt-secret")), db), db
}

func run(t *testing.T, s *Session, mw func(echo.HandlerFunc) echo.HandlerFunc, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, handler(c))
	return rec, c
}

func TestRequireSession_NoCookie(t *testing.T) {
	s, _ := newTestSession(t)

	rec, _ := run(t, s, s.RequireSession)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_InvalidToken(t *testing.T) {
	s, _ := newTestSession(t)

	rec, _ := run(t, s, s.RequireSession, &http.Cookie{Name: token.CookieName, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// invalid session also clears the cookie
	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == token.CookieName && ck.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestRequireSession_Expired(t *testing.T) {
	s, _ := newTestSession(t)

	stale := &token.Service{Secret: []byte("test-jwt-secret"), TTL: -time.Hour}
	signed, _, err := stale.Issue(1)
	require.NoError(t, err)

	rec, _ := run(t, s, s.RequireSession, &http.Cookie{Name: token.CookieName, Value: signed})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireSession_SlidingReissue(t *testing.T) {
	s, _ := newTestSession(t)

	// token issued with 1 day left; the middleware must hand back a
	// fresh 7-day one so a continuously active session never lapses
	short := &token.Service{Secret: []byte("test-jwt-secret"), TTL: 24 * time.Hour}
	signed, _, err := short.Issue(5)
	require.NoError(t, err)

	rec, c := run(t, s, s.RequireSession, &http.Cookie{Name: token.CookieName, Value: signed})
	assert.Equal(t, http.StatusOK, rec.Code)

	id, err := UserID(c)
	require.NoError(t, err)
	assert.Equal(t, uint(5), id)

	var refreshed *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == token.CookieName && ck.Value != "" {
			refreshed = ck
		}
	}
	require.NotNil(t, refreshed)
	assert.NotEqual(t, signed, refreshed.Value)
	assert.WithinDuration(t, time.Now().Add(token.TTL), refreshed.Expires, time.Minute)

	reissuedID, err := s.Tokens.Validate(refreshed.Value)
	require.NoError(t, err)
	assert.Equal(t, uint(5), reissuedID)
}

func TestRequireAdmin_RoleFromStore(t *testing.T) {
	s, db := newTestSession(t)

	user := models.User{Email: "boss@example.com", PasswordHash: "x", Role: "admin"}
	require.NoError(t, db.Create(&user).Error)

	signed, _, err := s.Tokens.Issue(user.ID)
	require.NoError(t, err)
	ck := &http.Cookie{Name: token.CookieName, Value: signed}

	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		return s.RequireSession(s.RequireAdmin(next))
	}

	rec, _ := run(t, s, chain, ck)
	assert.Equal(t, http.StatusOK, rec.Code)

	// demotion is picked up on the very next request, token unchanged
	require.NoError(t, db.Model(&user).Update("role", "user").Error)
	rec, _ = run(t, s, chain, ck)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a deleted user is unauthorized, not forbidden
	require.NoError(t, db.Delete(&models.User{}, user.ID).Error)
	rec, _ = run(t, s, chain, ck)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
