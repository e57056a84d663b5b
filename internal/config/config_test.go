package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"API_ADDR", "STORE_DRIVER", "KAFKA_BROKERS", "BUY_SIZE", "SELL_PERCENT", "BATCH_WORKERS"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, ":8090", cfg.APIAddr)
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "0.01", cfg.BuySize.String())
	assert.Equal(t, 100, cfg.SellPercent)
	assert.Equal(t, 3*time.Second, cfg.StoreTimeout)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "SQLite")
	t.Setenv("SQLITE_PATH", "/tmp/t.db")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("BUY_SIZE", "0.5")
	t.Setenv("SELL_PERCENT", "50")
	t.Setenv("STORE_TIMEOUT", "750ms")
	t.Setenv("DEV_MODE", "true")
	t.Setenv("BATCH_WORKERS", "not-a-number")

	cfg := Load()
	assert.Equal(t, DriverSQLite, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "0.5", cfg.BuySize.String())
	assert.Equal(t, 50, cfg.SellPercent)
	assert.Equal(t, 750*time.Millisecond, cfg.StoreTimeout)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 8, cfg.BatchWorkers)
	require.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAllErrors(t *testing.T) {
	cfg := Load()
	cfg.StoreDriver = "mongo"
	cfg.SellPercent = 0
	cfg.BatchWorkers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "STORE_DRIVER")
	assert.Contains(t, err.Error(), "SELL_PERCENT")
	assert.Contains(t, err.Error(), "BATCH_WORKERS")
}
