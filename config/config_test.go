package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 0.65, cfg.Model.StructWeight)
	assert.Equal(t, 1000, cfg.Arbitrage.MaxIterations)
	assert.Equal(t, 0.20, cfg.Risk.MaxLeverage)
	assert.Equal(t, 30*time.Second, cfg.Interval())
	assert.Equal(t, 500*time.Millisecond, cfg.CouncilTimeout())
	assert.Equal(t, "10000", cfg.Bankroll().String())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "model:\n  min_edge: 0.03\n"))
	require.NoError(t, err)

	assert.Equal(t, 0.03, cfg.Model.MinEdge)
	assert.Equal(t, 30, cfg.Pipeline.IntervalSeconds)
	assert.Equal(t, 500, cfg.Council.TimeoutMs)
	assert.Equal(t, "polyfusion.db", cfg.Storage.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "10000", cfg.Bankroll().String())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("FUSION_DB_DSN", ":memory:")
	t.Setenv("FUSION_BANKROLL", "2500.50")
	t.Setenv("FUSION_METRICS_ADDR", ":9100")
	t.Setenv("FUSION_WORKERS", "4")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\nstorage:\n  dsn: other.db\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, "2500.5", cfg.Bankroll().String())
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.Equal(t, 4, cfg.Pipeline.Workers)
}

func TestLoad_BadBankroll(t *testing.T) {
	_, err := Load(writeConfig(t, "pipeline:\n  bankroll_usd: lots\n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "model: [unclosed"))
	assert.Error(t, err)
}
