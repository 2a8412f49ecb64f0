package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/config"
	"app/internal/middleware"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

// FulfillmentGuardを通したダミーのPATCHを立てる
func newGuardedEcho(token string) *echo.Echo {
	e := echo.New()
	cfg := config.Config{FulfillmentToken: token}

	e.PATCH("/orders/:id/status", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"ok": "true"})
	}, middleware.FulfillmentGuard(cfg))

	return e
}

func runGuardedRequest(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/orders/1/status", nil)
	if token != "" {
		req.Header.Set(middleware.FulfillmentTokenHeader, token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ヘッダ無し => 401（誰でもステータスを書き換えられてはいけない）
func TestMiddleware_FulfillmentGuard_MissingToken(t *testing.T) {
	e := newGuardedEcho("fulfill-secret")

	rec := runGuardedRequest(e, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
}

// トークン違い => 403
func TestMiddleware_FulfillmentGuard_WrongToken(t *testing.T) {
	e := newGuardedEcho("fulfill-secret")

	rec := runGuardedRequest(e, "not-the-secret")

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"fulfillment only"}`, rec.Body.String())
}

// 正しいトークン => 通る
func TestMiddleware_FulfillmentGuard_ValidToken(t *testing.T) {
	e := newGuardedEcho("fulfill-secret")

	rec := runGuardedRequest(e, "fulfill-secret")

	assert.Equal(t, http.StatusOK, rec.Code)
}
