package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/TrevorThebe/cdstock/internal/middleware"
	"github.com/TrevorThebe/cdstock/internal/mocks"
	"github.com/TrevorThebe/cdstock/internal/models"
	"github.com/TrevorThebe/cdstock/internal/repositories"
)

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "admin-1")
		c.Set(middleware.ContextUserRole, models.RoleAdmin)
		c.Next()
	})
	r.GET("/users", handler.List)
	r.PATCH("/users/:id/role", handler.UpdateRole)
	r.PATCH("/users/:id/block", handler.SetBlocked)
	r.DELETE("/users/:id", handler.Delete)
	return r
}

func TestListUsersExcludesCaller(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	users.On("List", mock.Anything).Return([]models.User{
		{ID: "admin-1", Name: "Me"},
		{ID: "u2", Name: "Bob"},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Users, 1)
	assert.Equal(t, "u2", resp.Users[0].ID)
	users.AssertExpectations(t)
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodPatch, "/users/u2/role", bytes.NewBufferString(`{"role":"owner"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateRoleSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	users.On("UpdateRole", mock.Anything, "u2", models.RoleAdmin).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/users/u2/role", bytes.NewBufferString(`{"role":"admin"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestUpdateRoleUnknownUser(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	users.On("UpdateRole", mock.Anything, "ghost", models.RoleNormal).
		Return(repositories.ErrUserNotFound).Once()

	req := httptest.NewRequest(http.MethodPatch, "/users/ghost/role", bytes.NewBufferString(`{"role":"normal"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	users.AssertExpectations(t)
}

func TestSetBlockedRejectsSelf(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodPatch, "/users/admin-1/block", bytes.NewBufferString(`{"blocked":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "SetBlocked", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetBlockedSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	users.On("SetBlocked", mock.Anything, "u2", true).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPatch, "/users/u2/block", bytes.NewBufferString(`{"blocked":true}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	users.AssertExpectations(t)
}

func TestDeleteUserRejectsSelf(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/users/admin-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	users.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteUserSuccess(t *testing.T) {
	users := new(mocks.UserRepositoryMock)
	handler := NewUserHandler(users, nil, nil)
	router := setupUserRouter(handler)

	users.On("Delete", mock.Anything, "u2").Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/users/u2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	users.AssertExpectations(t)
}
