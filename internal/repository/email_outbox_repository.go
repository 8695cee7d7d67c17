package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
)

type EmailListFilter struct {
	Status  string
	Event   string
	OrderID *int64
	Page    int
	Limit   int
}

// 送信待ちメールの保存と、送信ワーカーの取り出し
type EmailOutboxRepository interface {
	Enqueue(ctx context.Context, m model.EmailOut) (model.EmailOut, error)

	// 送信対象をsendingにして返す。
	// 対象: pending、失敗してから lease 以上経ったもの（attempts < maxAttempts）、
	// sendingのまま lease 以上経ったもの（ワーカーが落ちた場合）
	ClaimBatch(ctx context.Context, now time.Time, lease time.Duration, maxAttempts int, limit int) ([]model.EmailOut, error)

	MarkSent(ctx context.Context, id int64, at time.Time) error
	// attemptsを+1してfailedにする
	MarkFailed(ctx context.Context, id int64, reason string, at time.Time) error

	List(ctx context.Context, f EmailListFilter) ([]model.EmailOut, int64, error)
}
