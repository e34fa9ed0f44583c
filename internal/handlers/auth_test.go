package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/fleet-live/internal/auth"
	"github.com/ukydev/fleet-live/internal/middleware"
	"github.com/ukydev/fleet-live/internal/models"
	"github.com/ukydev/fleet-live/internal/service"
)

// MockSession is a mock implementation of service.Session
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Login(ctx context.Context, req models.LoginRequest) (models.LoginResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.LoginResponse), args.Error(1)
}

func (m *MockSession) Me(ctx context.Context) (models.User, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockSession) Logout(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func loginBody(t *testing.T, req models.LoginRequest) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestAuthHandler_Login(t *testing.T) {
	authService := auth.NewService("", 0)
	driver := models.User{ID: "demo-driver", Email: "driver@tracker.com", Role: models.RoleDriver}

	t.Run("successful login", func(t *testing.T) {
		session := new(MockSession)
		req := models.LoginRequest{Email: "driver@tracker.com", Password: "demo1234"}
		session.On("Login", mock.Anything, req).
			Return(models.LoginResponse{Token: "signed", User: driver}, nil)

		w := httptest.NewRecorder()
		NewAuthHandler(authService, session).Login(w,
			httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, req)))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "signed", resp.Token)
		assert.Equal(t, driver.ID, resp.User.ID)
		session.AssertExpectations(t)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		session := new(MockSession)
		req := models.LoginRequest{Email: "driver@tracker.com", Password: "wrong"}
		session.On("Login", mock.Anything, req).
			Return(models.LoginResponse{}, auth.ErrInvalidCredentials)

		w := httptest.NewRecorder()
		NewAuthHandler(authService, session).Login(w,
			httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, req)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		session.AssertExpectations(t)
	})

	t.Run("backing failure", func(t *testing.T) {
		session := new(MockSession)
		req := models.LoginRequest{Email: "driver@tracker.com", Password: "demo1234"}
		session.On("Login", mock.Anything, req).
			Return(models.LoginResponse{}, errors.New("boom"))

		w := httptest.NewRecorder()
		NewAuthHandler(authService, session).Login(w,
			httptest.NewRequest(http.MethodPost, "/api/auth/login", loginBody(t, req)))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{", http.StatusBadRequest},
		{"missing password", http.MethodPost, `{"email":"driver@tracker.com"}`, http.StatusBadRequest},
		{"missing email", http.MethodPost, `{"password":"demo1234"}`, http.StatusBadRequest},
		{"malformed email", http.MethodPost, `{"email":"driver","password":"demo1234"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := new(MockSession)
			w := httptest.NewRecorder()
			NewAuthHandler(authService, session).Login(w,
				httptest.NewRequest(tt.method, "/api/auth/login", bytes.NewBufferString(tt.body)))

			assert.Equal(t, tt.want, w.Code)
			session.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
		})
	}
}

func TestAuthHandler_GetProfile(t *testing.T) {
	authService := auth.NewService("", 0)
	owner := models.User{ID: "demo-owner", Email: "owner@tracker.com", Role: models.RoleOwner}

	t.Run("no user in context", func(t *testing.T) {
		w := httptest.NewRecorder()
		NewAuthHandler(authService, new(MockSession)).GetProfile(w,
			httptest.NewRequest(http.MethodGet, "/api/users/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns the caller", func(t *testing.T) {
		session := new(MockSession)
		session.On("Me", mock.Anything).Return(owner, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), &owner))
		w := httptest.NewRecorder()
		NewAuthHandler(authService, session).GetProfile(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var got models.User
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, owner.ID, got.ID)
	})

	t.Run("unknown caller", func(t *testing.T) {
		session := new(MockSession)
		session.On("Me", mock.Anything).Return(models.User{}, service.NotFound("user", owner.ID))

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req = req.WithContext(middleware.WithUser(req.Context(), &owner))
		w := httptest.NewRecorder()
		NewAuthHandler(authService, session).GetProfile(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestAuthHandler_Logout(t *testing.T) {
	authService := auth.NewService("", 0)
	session := new(MockSession)
	session.On("Logout", mock.Anything).Return(nil).Once()

	w := httptest.NewRecorder()
	NewAuthHandler(authService, session).Logout(w, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	session.AssertExpectations(t)

	w = httptest.NewRecorder()
	NewAuthHandler(authService, session).Logout(w, httptest.NewRequest(http.MethodGet, "/api/auth/logout", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", service.NotFound("device", "dev-9"), http.StatusNotFound},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"conflict", fmt.Errorf("device imei 866069061008445: %w", service.ErrConflict), http.StatusConflict},
		{"unauthorized", service.ErrUnauthorized, http.StatusUnauthorized},
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, httptest.NewRequest(http.MethodGet, "/api/devices", nil), tt.err)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
