package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"seifenshop/internal/config"
	"seifenshop/internal/middleware"
	"seifenshop/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

// New はミドルウェアとエラーハンドラを設定したechoを返す
func New(cfg config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler(cfg.IsProduction())

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger())
	e.Use(echomw.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{cfg.FEURL},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, "X-Idempotency-Key"},
	}))

	return e
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ErrorHandler はhandlerで返しきれなかったエラーを {success:false, message} にする。
// 本番では5xxの詳細を出さない
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := err.Error()

		var ee *echo.HTTPError
		if he, ok := usecase.AsHTTPError(err); ok {
			status = he.Status
			msg = he.Message
			if !production && he.Err != nil {
				msg = he.Message + ": " + he.Err.Error()
			}
		} else if errors.As(err, &ee) {
			status = ee.Code
			if m, ok := ee.Message.(string); ok {
				msg = m
			} else {
				msg = strings.ToLower(http.StatusText(status))
			}
		}

		if status >= 500 {
			log.Ctx(c.Request().Context()).Error().Err(err).
				Str("path", c.Path()).
				Int("status", status).
				Msg("unhandled error")
			if production {
				msg = "internal server error"
				if status == http.StatusServiceUnavailable {
					msg = "service unavailable"
				}
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorBody{Success: false, Message: msg})
		}
		if werr != nil {
			log.Error().Err(werr).Msg("write error response")
		}
	}
}

// Run はctxが終わるまでサーバーを動かし、終わったらgraceful shutdownする
func Run(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	log.Info().Msg("http server shutting down")
	return e.Shutdown(shutdownCtx)
}
