package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	jwtService := &JWTService{}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, 123, UserIDFromContext(r.Context()))
		assert.Equal(t, RoleTrainer, RoleFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name         string
		authHeader   func() string
		expectedCode int
	}{
		{
			name: "Valid token",
			authHeader: func() string {
				token, _ := jwtService.GenerateJWT(123, RoleTrainer, time.Now().Add(time.Hour))
				return "Bearer " + token
			},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Missing header",
			authHeader:   func() string { return "" },
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "No bearer prefix",
			authHeader:   func() string { return "token" },
			expectedCode: http.StatusUnauthorized,
		},
		{
			name:         "Garbage token",
			authHeader:   func() string { return "Bearer invalid.token.string" },
			expectedCode: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
			if header := tt.authHeader(); header != "" {
				r.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()

			AuthMiddleware(next).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}

func TestRequireRole(t *testing.T) {
	jwtService := &JWTService{}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name         string
		role         string
		allowed      []string
		expectedCode int
	}{
		{
			name:         "Allowed role passes",
			role:         RoleTrainer,
			allowed:      []string{RoleTrainer},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Admin passes every gate",
			role:         RoleAdmin,
			allowed:      []string{RoleTrainer},
			expectedCode: http.StatusOK,
		},
		{
			name:         "Other roles are rejected",
			role:         RoleCustomer,
			allowed:      []string{RoleTrainer},
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwtService.GenerateJWT(123, tt.role, time.Now().Add(time.Hour))
			assert.NoError(t, err)

			r := httptest.NewRequest(http.MethodPost, "/api/bookings/1/confirm", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()

			AuthMiddleware(RequireRole(tt.allowed...)(next)).ServeHTTP(w, r)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}
