package middleware

import (
	"net/http"
	"strings"

	"seifenshop/internal/config"
	"seifenshop/internal/infra/security"

	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // model.Role
	CtxTokenVersionKey = "token_version" // int
)

// AuthJWT は Authorization: Bearer を必須にする
func AuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return bearerAuth(cfg.JWTSecret, false)
}

// OptionalAuthJWT はヘッダーが無ければ匿名で通す。あるのに壊れていれば401。
func OptionalAuthJWT(cfg config.Config) echo.MiddlewareFunc {
	return bearerAuth(cfg.JWTSecret, true)
}

func bearerAuth(secret string, optional bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" && optional {
				return next(c)
			}

			raw, found := cutBearer(header)
			if !found {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			id, err := security.VerifyAccessToken(secret, raw)
			if err != nil {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			c.Set(CtxUserIDKey, id.CustomerID)
			c.Set(CtxUserRoleKey, id.Role)
			c.Set(CtxTokenVersionKey, id.TokenVersion)
			return next(c)
		}
	}
}

func cutBearer(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// handlerと同じ {success:false, message}
func deny(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{"success": false, "message": msg})
}
