package repository

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"

	repo "seifenshop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres の一意制約違反
const pgUniqueViolation = "23505"

// translateError はGORM/ドライバのエラーをrepositoryのエラーに寄せる。
// 知らないエラーはそのまま返す。
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrConflict) || errors.Is(err, repo.ErrUnavailable) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return repo.ErrConflict
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return repo.ErrConflict
	}
	//sqlite
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return repo.ErrConflict
	}

	if isConnectionError(err) {
		return fmt.Errorf("%w: %v", repo.ErrUnavailable, err)
	}
	return err
}

func isConnectionError(err error) bool {
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// 0件更新は「対象がない」
func affected(res *gorm.DB) error {
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func normalizePage(page, limit, def, max int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > max {
		limit = def
	}
	return page, limit
}

// LIKE用（大文字小文字を区別しない。Postgres/SQLite共通で使える形）
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q)
	return "%" + q + "%"
}
