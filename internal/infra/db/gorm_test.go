package db_test

import (
	"context"
	"testing"
	"time"

	"seifenshop/internal/config"
	"seifenshop/internal/domain/model"
	"seifenshop/internal/infra/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect_MemoryModeMigrates(t *testing.T) {
	gdb, err := db.Connect(context.Background(), config.Config{DBDriver: config.DriverMemory})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(gdb) })

	require.NoError(t, db.Migrate(gdb))
	assert.True(t, gdb.Migrator().HasTable(&model.Order{}))
	assert.True(t, gdb.Migrator().HasTable("order_history"))
	assert.True(t, gdb.Migrator().HasTable("email_out"))
	assert.True(t, gdb.Migrator().HasTable("product_materials"))
}

func TestConnect_PostgresGivesUpAfterRetries(t *testing.T) {
	cfg := config.Config{
		DBDriver:         config.DriverPostgres,
		DatabaseURL:      "host=127.0.0.1 port=1 user=x password=x dbname=x sslmode=disable connect_timeout=1",
		DBConnectRetries: 2,
		DBConnectBackoff: 10 * time.Millisecond,
	}
	_, err := db.Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect postgres")
}
