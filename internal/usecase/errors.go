package usecase

import (
	"errors"
	"fmt"
	"net/http"

	repo "seifenshop/internal/repository"
)

// HTTPError はハンドラでそのままステータスとメッセージにする業務エラー。
// Errには原因を入れる（ログ用。レスポンスには出さない）
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

func badRequest(format string, args ...any) error {
	return NewHTTPError(http.StatusBadRequest, fmt.Sprintf(format, args...))
}

// repoのエラーをHTTPErrorにする。
// notFoundMsgが空なら "not found"
func dbError(err error, notFoundMsg string) error {
	if err == nil {
		return nil
	}
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repo.ErrNotFound):
		if notFoundMsg == "" {
			notFoundMsg = "not found"
		}
		return &HTTPError{Status: http.StatusNotFound, Message: notFoundMsg, Err: err}
	case errors.Is(err, repo.ErrConflict):
		return &HTTPError{Status: http.StatusConflict, Message: "conflict", Err: err}
	case errors.Is(err, repo.ErrUnavailable):
		return &HTTPError{Status: http.StatusServiceUnavailable, Message: "database unavailable", Err: err}
	}
	return &HTTPError{Status: http.StatusInternalServerError, Message: "db error", Err: err}
}
