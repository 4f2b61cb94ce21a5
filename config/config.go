package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Legacy   LegacyConfig   `mapstructure:"legacy"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"` // debug, release
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"` // 为空则不启用
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LegacyConfig 遗留平台 Data API 接入配置
type LegacyConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Token       string        `mapstructure:"token"`
	Timeout     time.Duration `mapstructure:"timeout"`
	RateLimit   float64       `mapstructure:"rate_limit"`   // 每秒请求数
	RateBurst   int           `mapstructure:"rate_burst"`
}

// SyncConfig 同步引擎调优参数
type SyncConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	MaxRetries     int           `mapstructure:"max_retries"`
	BackoffBase    time.Duration `mapstructure:"backoff_base"`
	BackoffCap     time.Duration `mapstructure:"backoff_cap"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	BatchDeadline  time.Duration `mapstructure:"batch_deadline"`
	KickAfterWrite bool          `mapstructure:"kick_after_write"` // 入队后立即触发一次处理
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Endpoint string `mapstructure:"endpoint"` // OTLP HTTP endpoint，为空则不上报
}

// Load 读取 config.yaml，环境变量以 RENTHUB_ 前缀覆盖
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("RENTHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 允许无配置文件，全部走默认值/环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "renthub.db")
	v.SetDefault("legacy.timeout", 10*time.Second)
	v.SetDefault("legacy.rate_limit", 5.0)
	v.SetDefault("legacy.rate_burst", 5)
	v.SetDefault("sync.batch_size", 10)
	v.SetDefault("sync.max_retries", 5)
	v.SetDefault("sync.backoff_base", 30*time.Second)
	v.SetDefault("sync.backoff_cap", time.Hour)
	v.SetDefault("sync.tick_interval", time.Minute)
	v.SetDefault("sync.sweep_interval", 5*time.Minute)
	v.SetDefault("sync.batch_deadline", 45*time.Second)
	v.SetDefault("sync.kick_after_write", true)
	v.SetDefault("log.level", "info")
}
