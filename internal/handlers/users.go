package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"meatstore/internal/logging"
	"meatstore/internal/models"
)

// Admin user management. Routes run behind RequireSession +
// RequireAdmin, so the role is already proven by a fresh store lookup;
// the handlers only enforce the self-targeting rules.

func (h *AuthHandler) GetAllUsers(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_list")

	var users []models.User
	if err := h.DB.WithContext(ctx).Order("created_at DESC").Find(&users).Error; err != nil {
		l.Error("users_list_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}

func (h *AuthHandler) GetUserByID(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_get")

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user ID format")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		l.Error("users_get_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": user})
}

func (h *AuthHandler) UpdateUserRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_update_role")

	callerID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized - no token provided")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user ID format")
	}

	var req struct {
		Role string `json:"role"`
	}
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Role != "user" && req.Role != "admin" {
		return fail(c, http.StatusBadRequest, "invalid role. must be 'user' or 'admin'")
	}

	if uint(id) == callerID {
		return fail(c, http.StatusForbidden, "cannot change your own role")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		l.Error("users_update_role_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	user.Role = req.Role
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("users_update_role_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("user_role_updated", "user_id", user.ID, "role", user.Role, "by", callerID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "user role updated successfully",
		"user":    user,
	})
}

func (h *AuthHandler) DeleteUser(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_delete")

	callerID, err := sessionUserID(c)
	if err != nil {
		return fail(c, http.StatusUnauthorized, "unauthorized - no token provided")
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "invalid user ID format")
	}

	if uint(id) == callerID {
		return fail(c, http.StatusForbidden, "cannot delete your own account")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).First(&user, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "user not found")
		}
		l.Error("users_delete_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if err := h.DB.WithContext(ctx).Delete(&user).Error; err != nil {
		l.Error("users_delete_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("user_deleted", "user_id", user.ID, "by", callerID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "user deleted successfully",
	})
}

// AddAdminRole is an unauthenticated maintenance action for initial
// setup; keep it off any public deployment.
func (h *AuthHandler) AddAdminRole(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_add_admin_role")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return fail(c, http.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "user not found with this email")
		}
		l.Error("add_admin_role_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	user.Role = "admin"
	if err := h.DB.WithContext(ctx).Save(&user).Error; err != nil {
		l.Error("add_admin_role_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("admin_role_granted", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "user role updated to admin",
		"user":    user,
	})
}

// DeleteUserByEmail is the self-service-test cleanup path.
func (h *AuthHandler) DeleteUserByEmail(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "users_delete_by_email")

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return fail(c, http.StatusBadRequest, "email is required")
	}

	var user models.User
	if err := h.DB.WithContext(ctx).Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fail(c, http.StatusNotFound, "user not found with this email")
		}
		l.Error("delete_by_email_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	if err := h.DB.WithContext(ctx).Delete(&user).Error; err != nil {
		l.Error("delete_by_email_error", "status", 500, "error", err)
		return fail(c, http.StatusInternalServerError, "server error")
	}

	l.Info("user_deleted_by_email", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"message": "user deleted successfully",
	})
}
