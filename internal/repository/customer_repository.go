package repository

import (
	"context"
	"time"

	"seifenshop/internal/domain/model"
)

// 管理画面の顧客一覧の条件
type CustomerListFilter struct {
	Page   int
	Limit  int
	Q      string
	Role   *model.Role
	Active *bool
}

// 保存・取得を約束
type CustomerRepository interface {
	//新規顧客作成（メール重複はErrConflict）
	Create(ctx context.Context, customer *model.Customer) error
	// IDから顧客を1件取得する。
	FindByID(ctx context.Context, customerID int64) (*model.Customer, error)
	//メールから顧客を一件取得する。
	FindByEmail(ctx context.Context, email string) (*model.Customer, error)
	// 顧客情報の更新=>プロフィール・ロール・有効/停止
	Update(ctx context.Context, customer *model.Customer) error
	//トークンのバージョンを＋１
	IncrementTokenVersion(ctx context.Context, customerID int64) error
	TouchLastLogin(ctx context.Context, customerID int64, at time.Time) error
	List(ctx context.Context, f CustomerListFilter) ([]model.Customer, int64, error)
}
