package middleware

import (
	"crypto/subtle"
	"net/http"

	"app/internal/config"

	"github.com/labstack/echo/v4"
)

// フルフィルメント（出荷・配達の状態更新）が使う共有トークンのヘッダ。
const FulfillmentTokenHeader = "X-Fulfillment-Token"

//ヘッダのトークンが設定値と一致するかを確認します。
//注文ステータスの更新は店側のシステムだけが叩く。

func FulfillmentGuard(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(FulfillmentTokenHeader)
			if got == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.FulfillmentToken)) != 1 {
				return c.JSON(http.StatusForbidden, errorJSON("fulfillment only"))
			}

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
