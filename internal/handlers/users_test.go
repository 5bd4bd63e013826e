package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meatstore/internal/models"
)

func TestGetAllUsers(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("admin@example.com", "password", "admin", true)
	env.createUser("kate@example.com", "password", "user", true)
	env.createUser("mark@example.com", "password", "user", true)

	rec, c := env.doJSONRequest(http.MethodGet, "/auth/users", nil)
	require.NoError(t, env.A.GetAllUsers(c))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["count"])
	assert.Len(t, body["users"], 3)
}

func TestGetUserByID(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("kate@example.com", "password", "user", true)

	rec, c := env.doJSONRequest(http.MethodGet, "/auth/users/1", nil)
	c.SetParamNames("id")
	c.SetParamValues(fmt.Sprint(user.ID))
	require.NoError(t, env.A.GetUserByID(c))
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)["user"].(map[string]interface{})
	assert.Equal(t, "kate@example.com", got["email"])

	rec, c = env.doJSONRequest(http.MethodGet, "/auth/users/999", nil)
	c.SetParamNames("id")
	c.SetParamValues("999")
	require.NoError(t, env.A.GetUserByID(c))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec, c = env.doJSONRequest(http.MethodGet, "/auth/users/abc", nil)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	require.NoError(t, env.A.GetUserByID(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateUserRole(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin@example.com", "password", "admin", true)
	target := env.createUser("kate@example.com", "password", "user", true)

	do := func(targetID uint, role string) int {
		rec, c := env.doJSONRequest(http.MethodPut, "/auth/users/role", map[string]string{"role": role})
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(targetID))
		asUser(c, admin.ID)
		require.NoError(t, env.A.UpdateUserRole(c))
		return rec.Code
	}

	// promote
	require.Equal(t, http.StatusOK, do(target.ID, "admin"))
	var stored models.User
	require.NoError(t, env.DB.First(&stored, target.ID).Error)
	assert.Equal(t, "admin", stored.Role)

	// demote back
	require.Equal(t, http.StatusOK, do(target.ID, "user"))

	// unknown role rejected before any lookup
	require.Equal(t, http.StatusBadRequest, do(target.ID, "superadmin"))

	// admins cannot change their own role
	require.Equal(t, http.StatusForbidden, do(admin.ID, "user"))
	var storedAdmin models.User
	require.NoError(t, env.DB.First(&storedAdmin, admin.ID).Error)
	assert.Equal(t, "admin", storedAdmin.Role)

	// missing target
	require.Equal(t, http.StatusNotFound, do(999, "admin"))
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.createUser("admin@example.com", "password", "admin", true)
	target := env.createUser("kate@example.com", "password", "user", true)

	do := func(targetID uint) int {
		rec, c := env.doJSONRequest(http.MethodDelete, "/auth/users", nil)
		c.SetParamNames("id")
		c.SetParamValues(fmt.Sprint(targetID))
		asUser(c, admin.ID)
		require.NoError(t, env.A.DeleteUser(c))
		return rec.Code
	}

	// admins cannot delete themselves
	require.Equal(t, http.StatusForbidden, do(admin.ID))

	require.Equal(t, http.StatusOK, do(target.ID))
	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Where("id = ?", target.ID).Count(&count).Error)
	assert.Zero(t, count)

	// already gone
	require.Equal(t, http.StatusNotFound, do(target.ID))
}

func TestAddAdminRole(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("kate@example.com", "password", "user", true)

	rec, c := env.doJSONRequest(http.MethodPost, "/auth/add-admin-role", map[string]string{"email": "kate@example.com"})
	require.NoError(t, env.A.AddAdminRole(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var stored models.User
	require.NoError(t, env.DB.First(&stored, user.ID).Error)
	assert.Equal(t, "admin", stored.Role)

	rec, c = env.doJSONRequest(http.MethodPost, "/auth/add-admin-role", map[string]string{"email": "nobody@example.com"})
	require.NoError(t, env.A.AddAdminRole(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteUserByEmail(t *testing.T) {
	env := newTestEnv(t)
	env.createUser("kate@example.com", "password", "user", true)

	rec, c := env.doJSONRequest(http.MethodPost, "/auth/delete-user-by-email", map[string]string{"email": "kate@example.com"})
	require.NoError(t, env.A.DeleteUserByEmail(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.User{}).Count(&count).Error)
	assert.Zero(t, count)

	rec, c = env.doJSONRequest(http.MethodPost, "/auth/delete-user-by-email", map[string]string{"email": "kate@example.com"})
	require.NoError(t, env.A.DeleteUserByEmail(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
