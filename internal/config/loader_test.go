package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfigFile(t, "logging:\n  level: debug\n"))

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, TransportKafka, cfg.Bus.Transport)
	assert.Equal(t, 5, cfg.Bus.MaxDeliver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.NATS.AckWait)
	assert.Equal(t, 20*time.Second, cfg.Activity.Interval)
	assert.False(t, cfg.Activity.Enabled)
	assert.True(t, cfg.GRPC.Enabled)
	assert.Equal(t, 9090, cfg.GRPC.Port)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfigFile(t, "bus:\n  transport: nats\nserver:\n  port: 9000\n"))
	t.Setenv("AUDIT_SERVER_PORT", "9100")
	t.Setenv("AUDIT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, TransportNATS, cfg.Bus.Transport)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadConfig_InvalidTransport(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfigFile(t, "bus:\n  transport: carrier-pigeon\n"))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestValidate(t *testing.T) {
	cfg := &Config{Bus: BusConfig{Transport: TransportMemory, MaxDeliver: 1}}
	require.NoError(t, cfg.Validate())

	cfg.Bus.MaxDeliver = 0
	assert.Error(t, cfg.Validate())

	cfg.Bus.MaxDeliver = 3
	cfg.Activity.Enabled = true
	assert.Error(t, cfg.Validate())

	cfg.Activity.IdentitySourceURL = "http://accounts/api/users"
	assert.NoError(t, cfg.Validate())
}

func TestDatabaseConfig_URL(t *testing.T) {
	db := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "audit", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5432/audit?sslmode=disable", db.URL())
}
