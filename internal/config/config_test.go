package config_test

import (
	"testing"
	"time"

	"gtdsync/internal/config"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "gtdsync.changes", cfg.RabbitMQExchange)
	assert.False(t, cfg.BroadcastFilter)
	assert.Equal(t, 64, cfg.WSSendBuffer)
	assert.Empty(t, cfg.RabbitMQURL)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "postgres")
	v.Set("TOKEN_TTL", "30m")
	v.Set("BROADCAST_FILTER", true)

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.True(t, cfg.BroadcastFilter)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	v := viper.New()
	v.Set("DB_DRIVER", "mongo")

	_, err := config.Load(v)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}
