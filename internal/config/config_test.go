package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
pair: NTRNUSDT
chain:
  lcd_url: http://localhost:1317
  chain_id: neutron-1
`

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeTemp(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "binance_duality", cfg.Strategy)
	assert.Equal(t, 5, cfg.Duality.Depth)
	assert.Equal(t, 3, cfg.Duality.MaxRetries)
	assert.Equal(t, 1.01, cfg.Duality.PriceAdjustment)
	assert.Equal(t, 1.3, cfg.Chain.GasAdjustment)
	assert.Equal(t, "untrn", cfg.Chain.GasDenom)
	assert.Equal(t, 0.195604, cfg.Trade.DualityAmountFactor)
	assert.Equal(t, 3*time.Second, cfg.PollInterval())
	assert.Equal(t, 150*time.Millisecond, cfg.DetectorTick())
}

func TestLoad_EnvSecrets(t *testing.T) {
	t.Setenv("MNEMONIC", "test test test")
	t.Setenv("BINANCE_API_KEY", "key")
	t.Setenv("BINANCE_API_SECRET", "secret")

	cfg, err := Load(writeTemp(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "test test test", cfg.Chain.Mnemonic)
	assert.Equal(t, "key", cfg.Binance.ApiKey)
	assert.Equal(t, "secret", cfg.Binance.ApiSecret)
}

func TestLoad_MissingRequired(t *testing.T) {
	_, err := Load(writeTemp(t, "pair: NTRNUSDT\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
