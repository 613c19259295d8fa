package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindsettler/service-booking/internal/application"
	bookingDomain "github.com/mindsettler/service-booking/internal/domain/booking"
	"github.com/mindsettler/service-booking/internal/platform/auth"
	"github.com/mindsettler/service-booking/internal/platform/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	jwtManager := auth.NewJWTManager("test-secret", "mindsettler", time.Hour, 24*time.Hour)

	r := gin.New()
	root := r.Group("")
	NewBookingHandler(nil).RegisterRoutes(root)
	NewAdminBookingHandler(nil, nil).RegisterRoutes(root, jwtManager)
	NewDirectoryHandler(nil).RegisterRoutes(root, jwtManager)
	return r, jwtManager
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func bearer(t *testing.T, m *auth.JWTManager, role string) string {
	t.Helper()
	token, err := m.GenerateAccessToken(uuid.New(), "ops@mindsettler.in", role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestRespondError_Mappings(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"throttled", application.ErrThrottled, http.StatusTooManyRequests, "THROTTLED"},
		{"not found", fmt.Errorf("get booking: %w", bookingDomain.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"validation", fmt.Errorf("%w: full name is required", bookingDomain.ErrValidation), http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid slot", fmt.Errorf("approve booking: %w", bookingDomain.ErrInvalidSlot), http.StatusBadRequest, "INVALID_SLOT"},
		{"invalid transition", fmt.Errorf("reject booking: %w", bookingDomain.ErrInvalidTransition), http.StatusConflict, "INVALID_TRANSITION"},
		{"conflict", bookingDomain.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"email not verified", bookingDomain.ErrEmailNotVerified, http.StatusUnprocessableEntity, "EMAIL_NOT_VERIFIED"},
		{"window closed", bookingDomain.ErrCancellationWindowClosed, http.StatusUnprocessableEntity, "CANCELLATION_WINDOW_CLOSED"},
		{"not cancellable", bookingDomain.ErrNotCancellable, http.StatusUnprocessableEntity, "NOT_CANCELLABLE"},
		{"unknown", errors.New("pq: connection reset"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestRespondError_HidesInternalText(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, errors.New("pq: password authentication failed"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 20},
		{"page=3&limit=50", 3, 50},
		{"page=0&limit=0", 1, 20},
		{"page=-2&limit=500", 1, 100},
		{"page=abc&limit=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)

			page, limit := parsePagination(c)
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestPublicRoutes_RejectMalformedBodies(t *testing.T) {
	r, _ := setupRouter(t)

	for _, path := range []string{
		"/api/v1/bookings/draft",
		"/api/v1/bookings/chatbot",
		"/api/v1/bookings/status",
		"/api/v1/bookings/cancellation",
		"/api/v1/bookings/payments/initiate",
		"/api/v1/bookings/payments/complete",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{`))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			env := decodeEnvelope(t, w)
			require.NotNil(t, env.Error)
			assert.Equal(t, "BAD_REQUEST", env.Error.Code)
		})
	}
}

func TestPublicRoutes_RequireFields(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/payments/initiate", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "AcknowledgementID")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/bookings/chatbot", strings.NewReader(`{"email":"a@example.com"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Intent")
}

func TestPublicRoutes_WriteMiddlewareRunsFirst(t *testing.T) {
	r := gin.New()
	blocked := func(c *gin.Context) {
		response.TooManyRequests(c, "slow down")
	}
	NewBookingHandler(nil).RegisterRoutes(r.Group(""), blocked)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/draft", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestAdminRoutes_RequireAdminToken(t *testing.T) {
	r, jwtManager := setupRouter(t)
	path := "/api/v1/admin/bookings/" + uuid.NewString() + "/approve"

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong issuer", func() string {
			other := auth.NewJWTManager("test-secret", "someone-else", time.Hour, time.Hour)
			return bearer(t, other, auth.RoleAdmin)
		}(), http.StatusUnauthorized},
		{"user role", bearer(t, jwtManager, auth.RoleUser), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestAdminRoutes_InvalidBookingID(t *testing.T) {
	r, jwtManager := setupRouter(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/admin/bookings/not-a-uuid"},
		{http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/approve"},
		{http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/reject"},
		{http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/cancel"},
		{http.MethodPost, "/api/v1/admin/bookings/not-a-uuid/complete"},
		{http.MethodGet, "/api/v1/admin/bookings/not-a-uuid/notifications"},
	} {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(route.method, route.path, nil)
			req.Header.Set("Authorization", bearer(t, jwtManager, auth.RoleAdmin))
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "invalid booking ID")
		})
	}
}

func TestDirectoryRoutes_RequireAdminToken(t *testing.T) {
	r, jwtManager := setupRouter(t)

	for _, path := range []string{"/api/v1/admin/providers", "/api/v1/admin/corporates"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("Authorization", bearer(t, jwtManager, auth.RoleUser))
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusForbidden, w.Code)
		})
	}
}

func TestDirectoryRoutes_RejectBadInput(t *testing.T) {
	r, jwtManager := setupRouter(t)

	tests := []struct {
		method, path, body, want string
	}{
		{http.MethodPost, "/api/v1/admin/providers", `{}`, "FullName"},
		{http.MethodPost, "/api/v1/admin/corporates", `{"name":"Acme"}`, "ContactEmail"},
		{http.MethodPatch, "/api/v1/admin/providers/not-a-uuid", `{"is_active":false}`, "invalid provider ID"},
		{http.MethodPatch, "/api/v1/admin/corporates/not-a-uuid", `{"is_active":false}`, "invalid corporate ID"},
		{http.MethodPatch, "/api/v1/admin/providers/" + uuid.NewString(), `{}`, "IsActive"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", bearer(t, jwtManager, auth.RoleAdmin))
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
