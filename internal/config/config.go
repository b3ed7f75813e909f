package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	TCPAddr    string        `mapstructure:"tcp_addr"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`
	DBPath     string        `mapstructure:"db_path"`

	StatsPeriod    time.Duration `mapstructure:"stats_period"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxBuffer      int           `mapstructure:"max_buffer"`
	OversizePolicy string        `mapstructure:"oversize_policy"`
	CacheSize      int           `mapstructure:"cache_size"`
	MediaDelayWarn time.Duration `mapstructure:"media_delay_warn"`
	FanoutWarn     time.Duration `mapstructure:"fanout_warn"`
	JobQueue       int           `mapstructure:"job_queue"`
	SlowConsumer   string        `mapstructure:"slow_consumer"`
	SendQueue      int           `mapstructure:"send_queue"`
	LoginAttempts  int           `mapstructure:"login_attempts"`
	LoginWindow    time.Duration `mapstructure:"login_window"`
}

// Load reads config/config.<CONFIG_ENV>.yaml; RELAY_* variables override it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg(".env not loaded")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("RELAY")
	v.AutomaticEnv()

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("tcp_addr", ":9000")
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 4<<20)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("secret", "change-me")
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "relay.db")
	v.SetDefault("stats_period", "10s")
	v.SetDefault("idle_timeout", "0s")
	v.SetDefault("max_buffer", 1<<20)
	v.SetDefault("oversize_policy", "reset")
	v.SetDefault("cache_size", 100)
	v.SetDefault("media_delay_warn", "100ms")
	v.SetDefault("fanout_warn", "10ms")
	v.SetDefault("job_queue", 1024)
	v.SetDefault("slow_consumer", "ignore")
	v.SetDefault("send_queue", 256)
	v.SetDefault("login_attempts", 5)
	v.SetDefault("login_window", "1m")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("tcp", cfg.TCPAddr).Msg("config ready")
	return &cfg, nil
}
