package middleware

import (
	"errors"
	"net/http"

	"seifenshop/internal/domain/model"
	"seifenshop/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// JWTのtvとDBのtoken_versionが一致するか確認。
// 停止中のアカウントは403。
// DBのroleで上書きするので、降格された管理者は次のリクエストから管理APIを使えない
func TokenVersionGuard(customers repository.CustomerRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//OptionalAuthJWTでトークンが無かった場合
			if c.Get(CtxUserIDKey) == nil {
				return next(c)
			}

			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			customer, err := customers.FindByID(c.Request().Context(), userID)
			if err != nil {
				if errors.Is(err, repository.ErrUnavailable) {
					log.Ctx(c.Request().Context()).Error().Err(err).Msg("token version lookup failed")
					return deny(c, http.StatusServiceUnavailable, "database unavailable")
				}
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if customer == nil {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}

			//token_versionが一致しなければ強制ログアウト扱い（401）
			if customer.TokenVersion != tv {
				return deny(c, http.StatusUnauthorized, "unauthorized")
			}
			if !customer.IsActive {
				return deny(c, http.StatusForbidden, "account disabled")
			}

			c.Set(CtxUserRoleKey, customer.Role)
			return next(c)
		}
	}
}

// RoleOf はcontextのroleを返す。未ログインなら空
func RoleOf(c echo.Context) model.Role {
	role, _ := c.Get(CtxUserRoleKey).(model.Role)
	return role
}
