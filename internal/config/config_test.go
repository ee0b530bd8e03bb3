package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yanun0323/errors"

	"cryptoflow/internal/ingest/binance"
	"cryptoflow/pkg/exception"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.App.Addr)
	assert.Equal(t, 10*time.Second, cfg.Ingest.StartupTimeout)
	assert.Equal(t, 5, cfg.Ingest.MaxReconnect)
	assert.Equal(t, 30*time.Second, cfg.Ingest.PingInterval)
	assert.Equal(t, 90*time.Second, cfg.Ingest.ReadTimeout)
	assert.Equal(t, 7, cfg.Retention.Days)
	assert.Equal(t, binance.DefaultTradeSymbols, cfg.Binance.TradeSymbols)
	assert.False(t, cfg.DB.Enabled)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_ADDR", ":8080")
	t.Setenv("INGEST_STARTUP_TIMEOUT", "3s")
	t.Setenv("BINANCE_TRADE_SYMBOLS", "btcusdt, ethusdt")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.App.Addr)
	assert.Equal(t, 3*time.Second, cfg.Ingest.StartupTimeout)
	assert.Equal(t, []string{"btcusdt", "ethusdt"}, cfg.Binance.TradeSymbols)
	assert.True(t, cfg.Kafka.Enabled)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("RETENTION_DAYS=3\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("RETENTION_DAYS") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Retention.Days)
}

func TestValidate(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "0")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, errors.Is(err, exception.ErrConfigInvalid))

	t.Setenv("RETENTION_DAYS", "7")
	t.Setenv("BINANCE_DEPTH_SYMBOLS", " ")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, errors.Is(err, exception.ErrConfigInvalid))

	t.Setenv("BINANCE_DEPTH_SYMBOLS", "btcusdt")
	t.Setenv("INGEST_READ_TIMEOUT", "10s")
	t.Setenv("INGEST_PING_INTERVAL", "20s")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.True(t, errors.Is(err, exception.ErrConfigInvalid))
}
