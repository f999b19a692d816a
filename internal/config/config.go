package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime settings for the points ledger service.
type Config struct {
	ListenAddress   string         `yaml:"listen"`
	Env             string         `yaml:"env"`
	MaxBodyBytes    int64          `yaml:"max_body_bytes"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	Log             LogConfig      `yaml:"log"`
	RateLimit       RateLimit      `yaml:"rate_limit"`
	Kafka           KafkaConfig    `yaml:"kafka"`
	Postgres        PostgresConfig `yaml:"postgres"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// RateLimit throttles the whole API. A zero rate disables it.
type RateLimit struct {
	RequestsPerSecond float64 `yaml:"rps"`
	Burst             int     `yaml:"burst"`
}

// KafkaConfig enables the Kafka event sink when brokers are listed.
type KafkaConfig struct {
	Brokers     []string `yaml:"brokers"`
	Topic       string   `yaml:"topic"`
	Compression string   `yaml:"compression"`
}

// PostgresConfig enables the Postgres event sink when a DSN is set.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

func defaults() Config {
	return Config{
		ListenAddress:   ":8000",
		Env:             "development",
		MaxBodyBytes:    1 << 20,
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Postgres: PostgresConfig{Table: "ledger_events"},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first when present, the YAML file named by LEDGER_CONFIG supplies a
// base, and environment variables override both.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return load(os.Getenv("LEDGER_CONFIG"), os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := defaults()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LISTEN_ADDR", &cfg.ListenAddress)
	str("SERVICE_ENV", &cfg.Env)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FILE", &cfg.Log.File)
	str("KAFKA_TOPIC", &cfg.Kafka.Topic)
	str("KAFKA_COMPRESSION", &cfg.Kafka.Compression)
	str("POSTGRES_DSN", &cfg.Postgres.DSN)
	str("POSTGRES_TABLE", &cfg.Postgres.Table)

	if v, ok := lookup("KAFKA_BROKERS"); ok && strings.TrimSpace(v) != "" {
		cfg.Kafka.Brokers = splitList(v)
	}

	var err error
	if v, ok := lookup("MAX_BODY_BYTES"); ok && v != "" {
		if cfg.MaxBodyBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
	}
	if v, ok := lookup("SHUTDOWN_TIMEOUT"); ok && v != "" {
		if cfg.ShutdownTimeout, err = time.ParseDuration(v); err != nil {
			return fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
	}
	if v, ok := lookup("RATE_LIMIT_RPS"); ok && v != "" {
		if cfg.RateLimit.RequestsPerSecond, err = strconv.ParseFloat(v, 64); err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
	}
	if v, ok := lookup("RATE_LIMIT_BURST"); ok && v != "" {
		if cfg.RateLimit.Burst, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
	}
	if v, ok := lookup("LOG_MAX_SIZE_MB"); ok && v != "" {
		if cfg.Log.MaxSizeMB, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("LOG_MAX_SIZE_MB: %w", err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return errors.New("listen address is required")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("max body bytes must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.New("rate limit must not be negative")
	}
	if c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst <= 0 {
		return errors.New("rate limit burst must be positive when a rate is set")
	}
	return nil
}
