package repository

import "context"

// トランザクション内で使う約束
type TxRepos interface {
	Customers() CustomerRepository
	Orders() OrderRepository
	OrderItems() OrderItemRepository
	Carts() CartRepository
	CartItems() CartItemRepository
	Stock() StockRepository
	Reservations() ReservationRepository
	Products() ProductRepository
	Inquiries() InquiryRepository
	Emails() EmailOutboxRepository
	AuditLogs() AuditLogRepository
}

// UsecaseからTxの開始/commit/rollbackを隠す。
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(r TxRepos) error) error
}
