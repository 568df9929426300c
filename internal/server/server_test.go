package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/user-service/internal/config"
)

func testConfig(secret string) *config.Config {
	return &config.Config{
		Server: config.Server{Port: 0},
		DB:     config.DB{Path: ":memory:"},
		Log:    config.Log{Level: "error", Format: "text"},
		Auth:   config.Auth{JWTSecret: secret, TokenTTL: time.Minute, BcryptCost: 4},
		Users:  config.Users{TrialPeriod: 14 * 24 * time.Hour},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func serve(s *Server, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestServer_UserLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig("server-test-secret-0123456789"))

	rr := serve(s, http.MethodPost, "/api/users",
		`{"fullName":"John Doe","email":"john@example.com","password":"Password123","userType":"private tutor"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("Content-Type"))

	rr = serve(s, http.MethodPost, "/api/users/login",
		`{"email":"john@example.com","password":"Password123"}`, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))

	rr = serve(s, http.MethodDelete, "/api/users/1", "", login.Token)
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodGet, "/api/users/1", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_AuthDisabled(t *testing.T) {
	s := newTestServer(t, testConfig(""))

	rr := serve(s, http.MethodPost, "/api/users/login", `{"email":"a@b.co","password":"x"}`, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	rr = serve(s, http.MethodDelete, "/api/users/1", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// Registration and lookup still work.
	rr = serve(s, http.MethodGet, "/api/users/1", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, testConfig(""))

	rr := serve(s, http.MethodGet, "/healthz", "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestNew_CreatesDatabaseDirectory(t *testing.T) {
	cfg := testConfig("")
	cfg.DB.Path = filepath.Join(t.TempDir(), "nested", "dir", "users.db")

	s := newTestServer(t, cfg)

	rr := serve(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, testConfig(""))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	// The store was closed on the way out.
	rr := serve(s, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
