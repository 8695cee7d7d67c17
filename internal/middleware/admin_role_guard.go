package middleware

import (
	"net/http"

	"seifenshop/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// TokenVersionGuard の後に置く（roleはDBの値）
func AdminRoleGuard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch RoleOf(c) {
			case model.RoleAdmin:
				return next(c)
			case "":
				return deny(c, http.StatusUnauthorized, "unauthorized")
			default:
				return deny(c, http.StatusForbidden, "admin only")
			}
		}
	}
}

func IsAdmin(c echo.Context) bool {
	return RoleOf(c) == model.RoleAdmin
}
