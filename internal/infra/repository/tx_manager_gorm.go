package repository

import (
	"context"

	repo "seifenshop/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	db *gorm.DB
}

func (r *txReposGorm) Customers() repo.CustomerRepository {
	return NewCustomerGormRepository(r.db)
}

func (r *txReposGorm) Orders() repo.OrderRepository {
	return NewOrderGormRepository(r.db)
}

func (r *txReposGorm) OrderItems() repo.OrderItemRepository {
	return NewOrderItemGormRepository(r.db)
}

func (r *txReposGorm) Carts() repo.CartRepository {
	return NewCartGormRepository(r.db)
}

func (r *txReposGorm) CartItems() repo.CartItemRepository {
	return NewCartItemGormRepository(r.db)
}

func (r *txReposGorm) Stock() repo.StockRepository {
	return NewStockGormRepository(r.db)
}

func (r *txReposGorm) Reservations() repo.ReservationRepository {
	return NewReservationGormRepository(r.db)
}

func (r *txReposGorm) Products() repo.ProductRepository {
	return NewProductGormRepository(r.db)
}

func (r *txReposGorm) Inquiries() repo.InquiryRepository {
	return NewInquiryGormRepository(r.db)
}

func (r *txReposGorm) Emails() repo.EmailOutboxRepository {
	return NewEmailOutboxGormRepository(r.db)
}

func (r *txReposGorm) AuditLogs() repo.AuditLogRepository {
	return NewAuditLogGormRepository(r.db)
}

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		return fn(&txReposGorm{db: tx})
	})
	//fnが返したエラーはそのまま、コミット失敗などは変換する
	return translateError(err)
}

// トランザクション外でも同じ形で使えるように
func NewRepos(db *gorm.DB) repo.TxRepos {
	return &txReposGorm{db: db}
}
