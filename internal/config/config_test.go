package config

import (
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "data", cfg.Catalog.Dir)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Nil(t, cfg.Rules.MoneyFloor)

	rules := cfg.Rules.EngineRules()
	assert.Equal(t, math.MinInt, rules.MoneyFloor)
	assert.Equal(t, 1500*time.Millisecond, rules.AutoPlayDelay)
	assert.Equal(t, 4, rules.MaxPlayers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TURNENGINE_HTTP_ADDR", ":9999")
	t.Setenv("TURNENGINE_DATA_DIR", "/srv/board")
	t.Setenv("TURNENGINE_CATALOG_FORMAT", "yaml")
	t.Setenv("TURNENGINE_REDIS_ADDR", "localhost:6379")
	t.Setenv("TURNENGINE_MONEY_FLOOR", "0")
	t.Setenv("TURNENGINE_AI_DELAY", "10ms")
	t.Setenv("TURNENGINE_MAX_PLAYERS", "6")
	t.Setenv("TURNENGINE_STARTING_MONEY", "2500")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "/srv/board", cfg.Catalog.Dir)
	assert.Equal(t, "yaml", cfg.Catalog.Format)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	rules := cfg.Rules.EngineRules()
	assert.Equal(t, 0, rules.MoneyFloor)
	assert.Equal(t, 10*time.Millisecond, rules.AutoPlayDelay)
	assert.Equal(t, 6, rules.MaxPlayers)
	assert.Equal(t, 2500, rules.StartingMoney)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TURNENGINE_MAX_PLAYERS", "many")
	_, err := Load()
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	_, err = LogConfig{Level: "loud"}.NewLogger()
	assert.Error(t, err)
	_, err = LogConfig{Level: "info", Format: "xml"}.NewLogger()
	assert.Error(t, err)
}
