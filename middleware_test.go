package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenAuthMissingHeader(t *testing.T) {
	app := newTestApp()
	handler := app.TokenAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/auth", nil))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"No token, authorization denied"}`, rec.Body.String())
}

func TestTokenAuthInvalidToken(t *testing.T) {
	app := newTestApp()
	handler := app.TokenAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/api/auth", nil)
	req.Header.Set("x-auth-token", "bogus")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"Token is not valid"}`, rec.Body.String())
}

func TestTokenAuthExpiredToken(t *testing.T) {
	app := newTestApp()
	expired := &TokenCodec{secret: []byte("test-secret"), ttl: -time.Hour}
	token, err := expired.Issue(1)
	require.NoError(t, err)

	handler := app.TokenAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest("GET", "/api/auth", nil)
	req.Header.Set("x-auth-token", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"msg":"Token is not valid"}`, rec.Body.String())
}

func TestTokenAuthBindsUserID(t *testing.T) {
	app := newTestApp()
	token, err := app.Tokens.Issue(7)
	require.NoError(t, err)

	var got int64
	handler := app.TokenAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := userIDFrom(r.Context())
		require.True(t, ok)
		got = id
	}))

	req := httptest.NewRequest("GET", "/api/auth", nil)
	req.Header.Set("x-auth-token", token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(7), got)
}

func TestRateLimitExhausted(t *testing.T) {
	app := newTestApp()
	app.rateLimiter = NewRateLimiter(1)

	handler := app.RateLimit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/posts", nil)
	req.RemoteAddr = "203.0.113.9:4242"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}
