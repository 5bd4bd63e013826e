package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"meatstore/internal/events"
	"meatstore/internal/logging"
	mwauth "meatstore/internal/middleware/auth"
)

func fail(c echo.Context, code int, message string) error {
	return c.JSON(code, echo.Map{"success": false, "message": message})
}

func sessionUserID(c echo.Context) (uint, error) {
	return mwauth.UserID(c)
}

// newVerificationCode returns a 6-digit OTP.
func newVerificationCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		// crypto/rand only fails if the platform entropy source is broken
		return "000000"
	}
	return strconv.FormatInt(n.Int64()+100000, 10)
}

// newResetToken returns 20 random bytes hex-encoded.
func newResetToken() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return ""
	}
	return hex.EncodeToString(b)
}

// publish fires a domain event; delivery failure is logged, never
// surfaced to the client.
func publish(c echo.Context, p events.Publisher, topic, key string, event map[string]interface{}) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		logging.FromContext(c.Request().Context()).Warn("event_publish_failed", "topic", topic, "error", err)
	}
}
