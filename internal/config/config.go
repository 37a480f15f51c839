package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode      string      `mapstructure:"mode"`
	Port      int         `mapstructure:"port"`
	DBPath    string      `mapstructure:"db_path"`
	JWTSecret string      `mapstructure:"jwt_secret"`
	CORS      CORSConfig  `mapstructure:"cors"`
	WS        WSConfig    `mapstructure:"ws"`
	Chat      ChatConfig  `mapstructure:"chat"`
	Redis     RedisConfig `mapstructure:"redis"`
	Sweep     SweepConfig `mapstructure:"sweep"`
	Log       LogConfig   `mapstructure:"log"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type WSConfig struct {
	ReadLimit         int64   `mapstructure:"read_limit"`
	SendBuffer        int     `mapstructure:"send_buffer"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	MessageBurst      int     `mapstructure:"message_burst"`
}

type ChatConfig struct {
	MinInterval  time.Duration `mapstructure:"min_interval"`
	MaxLength    int           `mapstructure:"max_length"`
	HistoryLimit int           `mapstructure:"history_limit"`
}

// RedisConfig enables the recent-chat cache when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SweepConfig struct {
	Interval  time.Duration `mapstructure:"interval"`
	IdleAfter time.Duration `mapstructure:"idle_after"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 5000)
	v.SetDefault("db_path", "./data/whiteboard.db")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("ws.read_limit", 65536)
	v.SetDefault("ws.send_buffer", 256)
	v.SetDefault("ws.messages_per_second", 100)
	v.SetDefault("ws.message_burst", 200)
	v.SetDefault("chat.min_interval", "500ms")
	v.SetDefault("chat.max_length", 2000)
	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("sweep.interval", "5m")
	v.SetDefault("sweep.idle_after", "30m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// Load reads .env (if any), then config/config.<CONFIG_ENV>.yaml (if any), then
// WHITEBOARD_* environment overrides.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Info().Str("module", "config").Msg("loaded .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	v.SetEnvPrefix("WHITEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("jwt_secret", "WHITEBOARD_JWT_SECRET", "SUPABASE_JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("bind jwt_secret: %w", err)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required (set SUPABASE_JWT_SECRET or WHITEBOARD_JWT_SECRET)")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("chat.history_limit must be positive")
	}
	if c.Chat.MaxLength <= 0 {
		return fmt.Errorf("chat.max_length must be positive")
	}
	return nil
}
