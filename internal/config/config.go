package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds everything main needs to wire the server.
type Config struct {
	AppPort          string
	DBDriver         string
	DatabaseDSN      string
	JWTSecret        string
	TokenTTL         time.Duration
	RabbitMQURL      string
	RabbitMQExchange string
	BroadcastFilter  bool
	WSSendBuffer     int
	CORSOrigins      string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DATABASE_DSN", "gtdsync.db")
	v.SetDefault("JWT_SECRET", "change_me")
	v.SetDefault("TOKEN_TTL", time.Hour)
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("RABBITMQ_EXCHANGE", "gtdsync.changes")
	v.SetDefault("BROADCAST_FILTER", false)
	v.SetDefault("WS_SEND_BUFFER", 64)
	v.SetDefault("CORS_ORIGINS", "*")
}

// Load reads configuration from the environment (and defaults) through v.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.AutomaticEnv()

	cfg := Config{
		AppPort:          v.GetString("APP_PORT"),
		DBDriver:         v.GetString("DB_DRIVER"),
		DatabaseDSN:      v.GetString("DATABASE_DSN"),
		JWTSecret:        v.GetString("JWT_SECRET"),
		TokenTTL:         v.GetDuration("TOKEN_TTL"),
		RabbitMQURL:      v.GetString("RABBITMQ_URL"),
		RabbitMQExchange: v.GetString("RABBITMQ_EXCHANGE"),
		BroadcastFilter:  v.GetBool("BROADCAST_FILTER"),
		WSSendBuffer:     v.GetInt("WS_SEND_BUFFER"),
		CORSOrigins:      v.GetString("CORS_ORIGINS"),
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("unsupported DB_DRIVER %q (want sqlite or postgres)", cfg.DBDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must not be empty")
	}
	if cfg.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.WSSendBuffer <= 0 {
		cfg.WSSendBuffer = 64
	}
	return cfg, nil
}
