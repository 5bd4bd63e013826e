package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"meatstore/internal/logging"
	"meatstore/internal/models"
	"meatstore/internal/token"
)

// ContextKey is where RequireSession leaves the resolved user id.
const ContextKey = "userID"

type Session struct {
	Tokens *token.Service
	DB     *gorm.DB
}

func NewSession(tokens *token.Service, db *gorm.DB) *Session {
	return &Session{Tokens: tokens, DB: db}
}

// RequireSession gates protected routes. The cookie is validated, the
// user id goes into the echo context, and a freshly signed token is set
// back on the response so an active session never expires (sliding
// expiration). The cookie is rewritten on every authenticated request.
func (s *Session) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(token.CookieName)
		if err != nil || ck.Value == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "unauthorized - no token provided",
			})
		}

		userID, err := s.Tokens.Validate(ck.Value)
		if err != nil {
			c.SetCookie(token.DeleteCookie())
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "unauthorized - invalid token",
			})
		}

		fresh, exp, err := s.Tokens.Issue(userID)
		if err != nil {
			l := logging.FromContext(c.Request().Context())
			l.Error("session_reissue_failed", "error", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false, "message": "server error",
			})
		}
		c.SetCookie(token.CreateCookie(fresh, exp))

		c.Set(ContextKey, userID)
		return next(c)
	}
}

// RequireAdmin must run after RequireSession. The role comes from a
// fresh store lookup, never from the token, so a demoted or deleted
// user is cut off on their next request.
func (s *Session) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := UserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{
				"success": false, "message": "unauthorized - no token provided",
			})
		}

		var user models.User
		if err := s.DB.WithContext(c.Request().Context()).
			First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "user not found",
				})
			}
			return c.JSON(http.StatusInternalServerError, echo.Map{
				"success": false, "message": "server error",
			})
		}

		if user.Role != "admin" {
			return c.JSON(http.StatusForbidden, echo.Map{
				"success": false, "message": "access denied. admin privileges required",
			})
		}

		return next(c)
	}
}

// UserID pulls the id RequireSession resolved from the trusted token.
func UserID(c echo.Context) (uint, error) {
	v, ok := c.Get(ContextKey).(uint)
	if !ok || v == 0 {
		return 0, errors.New("no session user in context")
	}
	return v, nil
}
