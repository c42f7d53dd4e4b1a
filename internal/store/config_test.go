package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "mode: DRY_RUN\n"))
	require.NoError(t, err)

	assert.Equal(t, "KRW-BTC", cfg.Symbol)
	assert.Equal(t, "trader.db", cfg.Database.Path)
	assert.Equal(t, 5000.0, cfg.Trading.MinTradeAmount)
	assert.Equal(t, 0.95, cfg.Trading.TradeRatio)
	assert.Equal(t, 0.0005, cfg.Trading.FeeRate)
	assert.Equal(t, 300, cfg.Schedule.AnalysisIntervalSeconds)
	assert.Equal(t, 60, cfg.Schedule.CooldownSeconds)
	assert.Equal(t, "0 0 * * *", cfg.Schedule.DailyCron)
	assert.Equal(t, "0 0 * * 1", cfg.Schedule.WeeklyCron)
	assert.Equal(t, "0 0 1 * *", cfg.Schedule.MonthlyCron)
	assert.Equal(t, 30, cfg.Timeouts.CollaboratorSeconds)
	assert.Equal(t, 10, cfg.News.MaxHeadlines)
	assert.Equal(t, 30, cfg.News.CacheMinutes)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
mode: LIVE
symbol: KRW-ETH
trading:
  min_trade_amount: 10000
schedule:
  analysis_interval_seconds: 120
`))
	require.NoError(t, err)

	assert.Equal(t, "LIVE", cfg.Mode)
	assert.Equal(t, "KRW-ETH", cfg.Symbol)
	assert.Equal(t, 10000.0, cfg.Trading.MinTradeAmount)
	assert.Equal(t, 120, cfg.Schedule.AnalysisIntervalSeconds)
	// Untouched fields still default.
	assert.Equal(t, 0.95, cfg.Trading.TradeRatio)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"unknown mode", "mode: PAPER\n"},
		{"ratio above one", "mode: DRY_RUN\ntrading:\n  trade_ratio: 1.5\n"},
		{"negative minimum", "mode: DRY_RUN\ntrading:\n  min_trade_amount: -1\n"},
		{"fee at one", "mode: DRY_RUN\ntrading:\n  fee_rate: 1\n"},
		{"negative interval", "mode: DRY_RUN\nschedule:\n  analysis_interval_seconds: -5\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
