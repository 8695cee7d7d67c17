package db

import (
	"context"
	"fmt"
	"time"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func gormConfig() *gorm.Config {
	return &gorm.Config{
		//一意制約違反を gorm.ErrDuplicatedKey にする
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
}

// Connect はDBに接続して *gorm.DB を返す。
// Postgresは起動直後だとまだ繋がらないことがあるので、間隔を空けて何度か試す。
func Connect(ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	if cfg.DBDriver == config.DriverMemory {
		log.Warn().Msg("DB_DRIVER=memory: data is kept in memory and lost on restart")
		return OpenMemory()
	}

	attempts := cfg.DBConnectRetries
	if attempts <= 0 {
		attempts = 1
	}
	backoff := cfg.DBConnectBackoff

	var lastErr error
	for i := 1; i <= attempts; i++ {
		gdb, err := openPostgres(ctx, cfg.PostgresDSN())
		if err == nil {
			log.Info().Int("attempt", i).Msg("database connected")
			return gdb, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", i).Int("max", attempts).Msg("database connect failed")

		if i == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("connect postgres: %w", lastErr)
}

func openPostgres(ctx context.Context, dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(3 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return gdb, nil
}

// OpenMemory はSQLiteのメモリDBを開く（テストとDBなしモード用）。
// メモリDBは接続ごとに別物になるので、接続は1本に固定する。
func OpenMemory() (*gorm.DB, error) {
	gdb, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	return gdb, nil
}

// Migrate はテーブルを作成・更新する
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&model.Customer{},
		&model.Product{},
		&model.RecipeLine{},
		&model.StockItem{},
		&model.StockMovement{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderHistoryEntry{},
		&model.StockReservation{},
		&model.Inquiry{},
		&model.InquiryItem{},
		&model.EmailOut{},
		&model.AuditLog{},
	)
}

func Close(gdb *gorm.DB) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn().Err(err).Msg("close database")
	}
}
