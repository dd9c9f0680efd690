package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", c.Server.Addr)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, "data/stockbro.db", c.Store.Path)
	assert.Equal(t, "@every 15m", c.Jobs.TrendingWarmup)
	assert.Equal(t, "@hourly", c.Jobs.BudgetReport)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9090"
log:
  level: debug
  pretty: true
market:
  daily_limit: 400
  hourly_limit: 80
news:
  min_interval_ms: 5000
store:
  path: /tmp/test.db
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", c.Server.Addr)
	assert.Equal(t, "debug", c.Log.Level)
	assert.True(t, c.Log.Pretty)
	assert.Equal(t, 400, c.Market.DailyLimit)
	assert.Equal(t, 80, c.Market.HourlyLimit)
	assert.Equal(t, 5000, c.News.MinIntervalMs)
	assert.Equal(t, "/tmp/test.db", c.Store.Path)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GROWW_API_KEY", "groww-secret")
	t.Setenv("NEWSDATA_API_KEY", "news-secret")
	t.Setenv("STOCKBRO_ADDR", ":7070")
	t.Setenv("STOCKBRO_DB_PATH", "/tmp/override.db")

	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "groww-secret", c.Market.APIKey)
	assert.Equal(t, "news-secret", c.News.APIKey)
	assert.Equal(t, ":7070", c.Server.Addr)
	assert.Equal(t, "/tmp/override.db", c.Store.Path)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("does/not/exist.yaml")
	assert.Error(t, err)
}
