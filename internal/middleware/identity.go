package middleware

import (
	"errors"
	"strconv"
	"strings"

	"app/internal/config"
	"app/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxIdentityKey = "identity" // model.Identity

	GuestCookieName = "guest_session"
)

// Identity は呼び出し元が誰かを解決してcontextへ入れる。
// 有効なBearerトークンがあればユーザー、無ければguest_session cookieのゲスト。
// どちらも無くても拒否しない（ゲストトークンはusecase側で採番される）。
func Identity(cfg config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var ident model.Identity

			//Bearerトークンがあれば検証してuser_idを取る
			if userID, ok := userIDFromBearer(c, cfg.JWTSecret); ok {
				ident.UserID = &userID
			} else if ck, err := c.Cookie(GuestCookieName); err == nil {
				ident.GuestToken = strings.TrimSpace(ck.Value)
			}

			c.Set(CtxIdentityKey, ident)
			return next(c)
		}
	}
}

// IdentityFrom はcontextからIdentityを取り出す。
func IdentityFrom(c echo.Context) model.Identity {
	ident, ok := c.Get(CtxIdentityKey).(model.Identity)
	if !ok {
		return model.Identity{}
	}
	return ident
}

func userIDFromBearer(c echo.Context, secret string) (int64, bool) {
	authz := c.Request().Header.Get("Authorization")
	if authz == "" {
		return 0, false
	}

	//Bearer形式か確認してtokenを抜く
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return 0, false
	}
	rawToken := strings.TrimSpace(parts[1])
	if rawToken == "" {
		return 0, false
	}

	//JWTをパースして検証する
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || token == nil || !token.Valid {
		return 0, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, false
	}

	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}

// subをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}
