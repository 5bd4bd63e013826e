package handlers

import (
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"meatstore/internal/events"
	"meatstore/internal/hash"
	"meatstore/internal/logging"
	"meatstore/internal/mailer"
	"meatstore/internal/models"
	"meatstore/internal/token"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\d{10}$`)
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
)

type AuthHandler struct {
	DB        *gorm.DB
	Tokens    *token.Service
	Mailer    mailer.Mailer
	Producer  events.Publisher
	ClientURL string
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// validate reports the first failing field, same order as the client
// shows the form.
func (r *signupRequest) validate() string {
	if len(r.Name) < 3 {
		return "name is required and must be at least 3 characters"
	}
	if !emailPattern.MatchString(r.Email) {
		return "a valid email is required"
	}
	if len(r.Password) < 6 {
		return "password must be at least 6 characters long"
	}
	if !phonePattern.MatchString(r.Phone) {
		return "a valid 10-digit phone number is required"
	}
	return ""
}

// Signup creates an account, or re-provisions an existing unverified
// one. Accounts come out verified right away; the OTP mail is a
// confirmation step the verify-email endpoint consumes separately.
func (h *AuthHandler) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		l.Warn("signup_validation_failed", "status", 400, "reason", msg)
		return fail(c, http.StatusBadRequest, msg)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	code := newVerificationCode()
	codeExp := time.Now().Add(verificationTTL).Unix()

	var user models.User
	err = h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	switch {
	case err == nil:
		if user.IsVerified {
			l.Warn("signup_error", "status", 400, "reason", "user already exists")
			return fail(c, http.StatusBadRequest, "user already exists and is verified. please login")
		}

		user.Name = req.Name
		user.Phone = req.Phone
		user.PasswordHash = pwHash
		user.IsVerified = true
		user.VerificationToken = code
		user.VerificationTokenExpiresAt = codeExp
		if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
			l.Error("signup_error", "status", 500, "error", err)
			return fail(c, http.StatusInternalServerError, "server error")
		}

		h.sendVerification(c, user.Email, code)
		l.Info("signup_updated_unverified_user", "user_id", user.ID)
		return c.JSON(http.StatusOK, echo.Map{
			"success": true,
			"message": "account details updated. OTP sent to your email",
			"user":    user,
		})

	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:                      req.Email,
			PasswordHash:               pwHash,
			Name:                       req.Name,
			Phone:                      req.Phone,
			Role:                       "user",
			IsVerified:                 true,
			VerificationToken:          code,
			VerificationTokenExpiresAt: codeExp,
		}
		if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
			l.Error("signup_error", "status", 500, "error", err)
			return fail(c, http.StatusInternalServerError, "server error")
		}

		h.sendVerification(c, user.Email, code)
		publish(c, h.Producer, events.TopicUserEvents, user.Email, map[string]interface{}{
			"type":   "user_registered",
			"userID": user.ID,
			"email":  user.Email,
		})

		l.Info("signup_successful", "user_id", user.ID)
		return c.JSON(http.StatusCreated, echo.Map{
			"success": true,
			"message": "user created successfully. OTP sent to your email",
			"user":    user,
		})

	default:
		l.Error("signup_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
}

// SendOtp is the idempotent re-send path: it upserts the user, forces
// unverified and issues a fresh code.
func (h *AuthHandler) SendOtp(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_send_otp")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" {
		return fail(c, http.StatusBadRequest, "email is required")
	}

	var pwHash string
	if req.Password != "" {
		var err error
		pwHash, err = hash.HashPassword(req.Password)
		if err != nil {
			l.Error("send_otp_error", "status", 500, "error", err)
			return fail(c, http.StatusInternalServerError, "server error")
		}
	}

	code := newVerificationCode()
	codeExp := time.Now().Add(verificationTTL).Unix()

	var user models.User
	err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			Email:                      req.Email,
			Name:                       req.Name,
			Phone:                      req.Phone,
			PasswordHash:               pwHash,
			Role:                       "user",
			IsVerified:                 false,
			VerificationToken:          code,
			VerificationTokenExpiresAt: codeExp,
		}
		if err := h.DB.WithContext(ctx).Create(&user).Error; err != nil {
			l.Error("send_otp_error", "status", 500, "error", err)
			return fail(c, http.StatusInternalServerError, "server error")
		}

	case err == nil:
		if req.Name != "" {
			user.Name = req.Name
		}
		if req.Phone != "" {
			user.Phone = req.Phone
		}
		if pwHash != "" {
			user.PasswordHash = pwHash
		}
		user.IsVerified = false
		user.VerificationToken = code
		user.VerificationTokenExpiresAt = codeExp
		if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
			l.Error("send_otp_error", "status", 500, "error", err)
			return fail(c, http.StatusInternalServerError, "server error")
		}

	default:
		l.Error("send_otp_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	h.sendVerification(c, user.Email, code)
	l.Info("otp_sent", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "OTP sent to your email",
	})
}

// VerifyEmail consumes a code. is_verified stays as-is here; signup
// controls that flag.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_verify_email")

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return fail(c, http.StatusBadRequest, "verification code is required")
	}

	var user models.User
	err := h.DB.WithContext(ctx).
		Where("verification_token = ? AND verification_token_expires_at > ?", req.Code, time.Now().Unix()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("verify_email_failed", "status", 400)
			return fail(c, http.StatusBadRequest, "invalid or expired verification code")
		}
		l.Error("verify_email_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	user.VerificationToken = ""
	user.VerificationTokenExpiresAt = 0
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("verify_email_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("email_verified", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "OTP verified successfully",
		"user":    user,
	})
}

// Login checks credentials and opens a session. The message is the same
// for an unknown email and a wrong password so accounts can't be
// enumerated.
func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401)
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		l.Error("login_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401)
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	signed, exp, err := h.Tokens.Issue(user.ID)
	if err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}
	c.SetCookie(token.CreateCookie(signed, exp))

	now := time.Now()
	user.LastLogin = &now
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("login_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	publish(c, h.Producer, events.TopicUserEvents, user.Email, map[string]interface{}{
		"type":   "user_logged_in",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("login_successful", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "logged in successfully",
		"user":    user,
	})
}

// Logout only clears the cookie; the token stays cryptographically
// valid until its natural expiry (stateless logout).
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(token.DeleteCookie())
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "logged out successfully",
	})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_forgot_password")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("forgot_password_failed", "status", 404)
			return fail(c, http.StatusNotFound, "user not found")
		}
		l.Error("forgot_password_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	resetToken := newResetToken()
	user.ResetPasswordToken = resetToken
	user.ResetPasswordExpiresAt = time.Now().Add(resetTTL).Unix()
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("forgot_password_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if h.Mailer != nil {
		resetURL := h.ClientURL + "/reset-password/" + resetToken
		if err := h.Mailer.SendPasswordResetEmail(user.Email, resetURL); err != nil {
			l.Warn("reset_mail_failed", "error", err)
		}
	}

	l.Info("reset_link_sent", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "password reset link sent to your email",
	})
}

// ResetPassword consumes a reset token; the token-clearing save makes
// it single-use.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_reset_password")

	resetToken := c.Param("token")
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	var user models.User
	err := h.DB.WithContext(ctx).
		Where("reset_password_token = ? AND reset_password_expires_at > ?", resetToken, time.Now().Unix()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("reset_password_failed", "status", 400)
			return fail(c, http.StatusBadRequest, "invalid or expired reset token")
		}
		l.Error("reset_password_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("reset_password_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	user.PasswordHash = pwHash
	user.ResetPasswordToken = ""
	user.ResetPasswordExpiresAt = 0
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("reset_password_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if h.Mailer != nil {
		if err := h.Mailer.SendResetSuccessEmail(user.Email); err != nil {
			l.Warn("reset_success_mail_failed", "error", err)
		}
	}

	l.Info("password_reset", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "password reset successful",
	})
}

// CheckAuth re-resolves the caller against the store, so a deleted
// account is detected even while its token is still valid.
func (h *AuthHandler) CheckAuth(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_check")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized - no token provided")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("check_auth_user_gone", "status", 401, "user_id", userID)
			return fail(c, http.StatusUnauthorized, "user not found - account may have been deleted")
		}
		l.Error("check_auth_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

// CheckAdminAuth is CheckAuth plus a store-truth role gate.
func (h *AuthHandler) CheckAdminAuth(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_check_admin")

	userID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized - no token provided")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusUnauthorized, "user not found")
		}
		l.Error("check_admin_auth_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if user.Role != "admin" {
		l.Warn("check_admin_auth_denied", "status", 403, "user_id", userID)
		return c.JSON(http.StatusForbidden, echo.Map{
			"success": false,
			"message": "access denied. admin privileges required",
			"isAdmin": false,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"user":    user,
		"isAdmin": true,
	})
}

func (h *AuthHandler) sendVerification(c echo.Context, email, code string) {
	if h.Mailer == nil {
		return
	}
	if err := h.Mailer.SendVerificationEmail(email, code); err != nil {
		logging.FromContext(c.Request().Context()).Warn("verification_mail_failed", "error", err)
	}
}
