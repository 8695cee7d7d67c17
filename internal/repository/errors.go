package repository

import "errors"

// インフラ層はDBごとのエラーをこの3つに寄せて返す
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("database unavailable")
)
