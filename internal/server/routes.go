package server

import (
	"net/http"

	"seifenshop/internal/config"
	"seifenshop/internal/repository"

	"github.com/labstack/echo/v4"
)

// 各handlerのRegisterRoutes
type RouteRegistrar interface {
	RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository)
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, customers repository.CustomerRepository, handlers ...RouteRegistrar) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"success": true, "message": "ok"})
	})

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg, customers)
	}
}
