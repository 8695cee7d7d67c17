package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "memory")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.DBDriver)
	assert.Equal(t, MailTransportLog, cfg.MailTransport)
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.19")))
	assert.True(t, cfg.ShippingFlat.Equal(decimal.RequireFromString("4.90")))
	assert.Equal(t, 5*time.Second, cfg.OutboxPollInterval)
	//開発環境ではシークレットが無くても起動できる
	assert.NotEmpty(t, cfg.JWTSecret)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/shop")
	t.Setenv("TAX_RATE", "0.07")
	t.Setenv("OUTBOX_LEASE", "30s")

	cfg, err := Load("does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "postgres://u:p@db:5432/shop", cfg.PostgresDSN())
	assert.True(t, cfg.TaxRate.Equal(decimal.RequireFromString("0.07")))
	assert.Equal(t, 30*time.Second, cfg.OutboxLease)
}

func TestLoad_ProductionRequiresSecret(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("JWT_SECRET", "")

	_, err := Load("does-not-exist.env")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("driver", func(t *testing.T) {
		t.Setenv("DB_DRIVER", "mysql")
		_, err := Load("does-not-exist.env")
		assert.Error(t, err)
	})
	t.Run("tax", func(t *testing.T) {
		t.Setenv("TAX_RATE", "abc")
		_, err := Load("does-not-exist.env")
		assert.Error(t, err)
	})
	t.Run("transport", func(t *testing.T) {
		t.Setenv("MAIL_TRANSPORT", "smtp")
		_, err := Load("does-not-exist.env")
		assert.Error(t, err)
	})
}
