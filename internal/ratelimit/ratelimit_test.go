package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenThrottle(t *testing.T) {
	limiter := New(5)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow("1.1.1.1"), "request %d within burst", i)
	}
	assert.False(t, limiter.Allow("1.1.1.1"), "burst exhausted")

	// Another client has its own budget.
	assert.True(t, limiter.Allow("2.2.2.2"))
}

func TestMiddleware(t *testing.T) {
	limiter := New(2)
	handler := limiter.Middleware(http.HandlerFunc(func(res http.ResponseWriter, _ *http.Request) {
		res.WriteHeader(http.StatusOK)
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)
		return recorder.Code
	}

	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusOK, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
