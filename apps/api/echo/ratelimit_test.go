package echoapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiter_allow(t *testing.T) {
	rl := newIPRateLimiter(1, 2)

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.allow("10.0.0.2"), "limits are per IP")
	assert.Len(t, rl.visitors, 2)
}

func TestIPRateLimiter_middleware(t *testing.T) {
	e := echo.New()
	rl := newIPRateLimiter(1, 1)
	h := rl.middleware(func(ctx echo.Context) error { return ctx.NoContent(http.StatusNoContent) })

	call := func() error {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(echo.HeaderXRealIP, "192.168.1.9")
		return h(e.NewContext(req, httptest.NewRecorder()))
	}
	assert.NoError(t, call())
	assert.Equal(t, errTooManyRequests, call())
}
