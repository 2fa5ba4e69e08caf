// Package config loads server configuration via viper: defaults, an
// optional config.yaml, and APR_-prefixed environment overrides
// (APR_PORT, APR_DB_PATH, APR_REDIS_ADDR, APR_LOG_LEVEL).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     int    `mapstructure:"port"`
	DBPath   string `mapstructure:"db_path"`
	LogLevel string `mapstructure:"log_level"`

	// RedisAddr enables the quote cache when non-empty.
	RedisAddr string        `mapstructure:"redis_addr"`
	CacheTTL  time.Duration `mapstructure:"cache_ttl"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetDefault("port", 8080)
	v.SetDefault("db_path", "loans.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("redis_addr", "")
	v.SetDefault("cache_ttl", time.Hour)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	v.SetEnvPrefix("APR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return &cfg, nil
}
