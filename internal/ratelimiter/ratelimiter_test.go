package ratelimiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/jobtracker/internal/auth"
	"github.com/patric-chuzhbe/jobtracker/internal/ipchecker"
)

func newLimiter(t *testing.T, burst int) *RateLimiter {
	t.Helper()

	checker, err := ipchecker.New("")
	require.NoError(t, err)

	return New(0.001, burst, checker)
}

func serve(handler http.Handler, request *http.Request) int {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request)
	return rec.Code
}

func TestHandlerLimitsPerClientIP(t *testing.T) {
	limiter := newLimiter(t, 2)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodGet, "/ping", nil)
	first.RemoteAddr = "10.0.0.1:1111"
	other := httptest.NewRequest(http.MethodGet, "/ping", nil)
	other.RemoteAddr = "10.0.0.2:2222"

	assert.Equal(t, http.StatusOK, serve(handler, first))
	assert.Equal(t, http.StatusOK, serve(handler, first))
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, first))
	assert.Equal(t, http.StatusOK, serve(handler, other))
}

func TestHandlerKeysBySubject(t *testing.T) {
	limiter := newLimiter(t, 1)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	withSubject := func(subject string) *http.Request {
		request := httptest.NewRequest(http.MethodGet, "/applications", nil)
		request.RemoteAddr = "10.0.0.1:1111"
		return request.WithContext(context.WithValue(request.Context(), auth.SubjectKey, subject))
	}

	assert.Equal(t, http.StatusOK, serve(handler, withSubject("auth0|abc")))
	assert.Equal(t, http.StatusTooManyRequests, serve(handler, withSubject("auth0|abc")))
	assert.Equal(t, http.StatusOK, serve(handler, withSubject("auth0|other")))
}

func TestCleanup(t *testing.T) {
	limiter := newLimiter(t, 1)
	current := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	limiter.getLimiter("ip:10.0.0.1")
	current = current.Add(10 * time.Minute)
	limiter.getLimiter("ip:10.0.0.2")

	limiter.Cleanup(5 * time.Minute)
	assert.Equal(t, 1, limiter.size())
}
