package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load("", envOf(nil))
	require.NoError(t, err)
	require.Equal(t, ":8000", cfg.ListenAddress)
	require.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	require.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "ledger_events", cfg.Postgres.Table)
	require.Empty(t, cfg.Kafka.Brokers)
	require.Zero(t, cfg.RateLimit.RequestsPerSecond)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: ":9000"
env: staging
shutdown_timeout: 3s
log:
  level: debug
rate_limit:
  rps: 50
  burst: 10
kafka:
  brokers: ["k1:9092"]
  topic: ledger
`), 0o600))

	cfg, err := load(path, envOf(map[string]string{
		"LISTEN_ADDR":       ":9100",
		"KAFKA_BROKERS":     "a:9092, b:9092,",
		"KAFKA_COMPRESSION": "lz4",
		"POSTGRES_DSN":      "postgres://localhost/ledger",
	}))
	require.NoError(t, err)
	require.Equal(t, ":9100", cfg.ListenAddress)
	require.Equal(t, "staging", cfg.Env)
	require.Equal(t, 3*time.Second, cfg.ShutdownTimeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 50.0, cfg.RateLimit.RequestsPerSecond)
	require.Equal(t, 10, cfg.RateLimit.Burst)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "ledger", cfg.Kafka.Topic)
	require.Equal(t, "lz4", cfg.Kafka.Compression)
	require.Equal(t, "postgres://localhost/ledger", cfg.Postgres.DSN)
}

func TestLoadRejectsUnknownYAMLField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: \":1\"\n"), 0o600))

	_, err := load(path, envOf(nil))
	require.ErrorContains(t, err, "decode config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "missing.yaml"), envOf(nil))
	require.ErrorContains(t, err, "open config")
}

func TestLoadRejectsBadEnv(t *testing.T) {
	for key, value := range map[string]string{
		"MAX_BODY_BYTES":   "lots",
		"SHUTDOWN_TIMEOUT": "soon",
		"RATE_LIMIT_RPS":   "fast",
		"RATE_LIMIT_BURST": "1.5",
		"LOG_MAX_SIZE_MB":  "big",
	} {
		_, err := load("", envOf(map[string]string{key: value}))
		require.ErrorContains(t, err, key)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.ListenAddress = " "
	require.Error(t, bad.Validate())

	bad = cfg
	bad.MaxBodyBytes = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.RateLimit = RateLimit{RequestsPerSecond: 5}
	require.Error(t, bad.Validate())

	bad = cfg
	bad.RateLimit = RateLimit{RequestsPerSecond: -1, Burst: 1}
	require.Error(t, bad.Validate())
}
