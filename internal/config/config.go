// Package config loads service configuration from an optional yaml file,
// a .env file and COMPRAS_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"compras/internal/infrastructure/objectstore"
	"compras/internal/infrastructure/storage/postgres"
	"compras/pkg/logger"
)

// EnvPrefix prefixes every environment override: server.port is
// COMPRAS_SERVER_PORT.
const EnvPrefix = "COMPRAS"

type Config struct {
	Server   ServerConfig        `mapstructure:"server"`
	Database postgres.PoolConfig `mapstructure:"database"`
	Redis    RedisConfig         `mapstructure:"redis"`
	MinIO    objectstore.Config  `mapstructure:"minio"`
	JWT      JWTConfig           `mapstructure:"jwt"`
	Log      logger.Config       `mapstructure:"log"`
	Quote    QuoteConfig         `mapstructure:"quote"`
	Worker   WorkerConfig        `mapstructure:"worker"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// QuoteConfig tunes the quotation workflow.
type QuoteConfig struct {
	// FanOut bounds concurrent offer inserts on submission.
	FanOut   int           `mapstructure:"fan_out"`
	DraftTTL time.Duration `mapstructure:"draft_ttl"`
}

// WorkerConfig holds cron specs of the background jobs.
type WorkerConfig struct {
	ExpireSpec    string `mapstructure:"expire_spec"`
	ExpireBatch   int    `mapstructure:"expire_batch"`
	OutboxSpec    string `mapstructure:"outbox_spec"`
	OutboxBatch   int    `mapstructure:"outbox_batch"`
	OutboxRetries int    `mapstructure:"outbox_retries"`
	CleanupSpec   string `mapstructure:"cleanup_spec"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.idempotency_ttl", 24*time.Hour)

	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.health_check_period", time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("minio.bucket", "compras-anexos")

	v.SetDefault("jwt.issuer", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)

	v.SetDefault("quote.fan_out", 8)
	v.SetDefault("quote.draft_ttl", 7*24*time.Hour)

	v.SetDefault("worker.expire_spec", "@every 15m")
	v.SetDefault("worker.expire_batch", 100)
	v.SetDefault("worker.outbox_spec", "@every 5s")
	v.SetDefault("worker.outbox_batch", 100)
	v.SetDefault("worker.outbox_retries", 5)
	v.SetDefault("worker.cleanup_spec", "@hourly")
}

// keys without a default still need binding so Unmarshal sees their env var
var envOnly = []string{
	"database.dsn",
	"redis.password",
	"redis.db",
	"minio.endpoint",
	"minio.access_key",
	"minio.secret_key",
	"minio.use_ssl",
	"jwt.secret",
	"log.output_paths",
}

// Load reads configuration. paths are searched for config.yaml; a missing
// file is not an error.
func Load(paths ...string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(paths) == 0 {
		paths = []string{"./configs", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range envOnly {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings without which the service cannot start.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Quote.FanOut <= 0 {
		errs = append(errs, errors.New("quote.fan_out must be positive"))
	}
	return errors.Join(errs...)
}
