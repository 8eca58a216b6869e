package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type BundlesConfig struct {
	Dir string `mapstructure:"dir"`
}

type CacheConfig struct {
	// RedisAddr enables the shared bundle cache when set; empty disables it.
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type CalendarConfig struct {
	Country string `mapstructure:"country"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Bundles  BundlesConfig  `mapstructure:"bundles"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
	Calendar CalendarConfig `mapstructure:"calendar"`
}

// Load reads the service configuration from a YAML file, filling in
// defaults for everything but the bundle directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("store.path", "mixatlas.db")
	v.SetDefault("calendar.country", "US")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Bundles.Dir == "" {
		return nil, fmt.Errorf("bundles.dir is required")
	}
	return &cfg, nil
}
