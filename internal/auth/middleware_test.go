package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/user-service/internal/apperror"
)

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, err := ts.Generate(42)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	expired, _ := ts.GenerateWithDuration(42, -time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID int64
	}{
		{"valid bearer token", "Bearer " + valid, http.StatusOK, 42},
		{"lowercase scheme", "bearer " + valid, http.StatusOK, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, 0},
		{"empty token", "Bearer ", http.StatusUnauthorized, 0},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized, 0},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID int64
			var gotErr error

			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID, _ = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})
			writeErr := func(w http.ResponseWriter, err error) {
				gotErr = err
				w.WriteHeader(apperror.From(err).Status())
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/users/42", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			RequireAuth(ts, writeErr)(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.True(t, errors.Is(gotErr, apperror.ErrUnauthorized))
			}
		})
	}
}

func TestUserIDFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	id, ok := UserIDFromContext(req.Context())
	assert.False(t, ok)
	assert.Zero(t, id)
}
