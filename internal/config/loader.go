// File: backend/services/audit-service/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig reads config.<APP_ENV>.yaml (or the file named by CONFIG_PATH)
// and overlays AUDIT_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}
	v.SetDefault("environment", env)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/audit-service")
	}

	v.SetEnvPrefix("AUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Without a file the environment and defaults are enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Env values for lists arrive as one comma separated string.
	config.Kafka.Brokers = splitList(config.Kafka.Brokers)
	config.Server.AllowedOrigins = splitList(config.Server.AllowedOrigins)
	config.OpenSearch.Addresses = splitList(config.OpenSearch.Addresses)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 9090)
	v.SetDefault("grpc.enable_reflection", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "audit")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.migrations_path", "file://migrations")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.user_ttl", 5*time.Minute)

	v.SetDefault("bus.transport", TransportKafka)
	v.SetDefault("bus.workers", 4)
	v.SetDefault("bus.max_deliver", 5)
	v.SetDefault("bus.retry_backoff", 500*time.Millisecond)
	v.SetDefault("bus.max_backoff", 30*time.Second)
	v.SetDefault("bus.handler_timeout", 25*time.Second)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.version", "2.8.0")
	v.SetDefault("kafka.consumer.group_id", "audit-service")
	v.SetDefault("kafka.topics.auto_create", true)
	v.SetDefault("kafka.topics.partitions", 3)
	v.SetDefault("kafka.topics.replication_factor", 1)

	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.stream", "AUDIT")
	v.SetDefault("nats.durable", "audit-service")
	v.SetDefault("nats.ack_wait", 30*time.Second)
	v.SetDefault("nats.fetch_batch", 10)
	v.SetDefault("nats.max_age", 7*24*time.Hour)

	v.SetDefault("opensearch.enabled", false)
	v.SetDefault("opensearch.index", "audit-log-entries")

	v.SetDefault("activity.enabled", false)
	v.SetDefault("activity.interval", 20*time.Second)
	v.SetDefault("activity.retry_backoff", 5*time.Second)
	v.SetDefault("activity.max_backoff", 2*time.Minute)
	v.SetDefault("activity.request_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("telemetry.service_name", "audit-service")
	v.SetDefault("telemetry.tracing.enabled", false)
	v.SetDefault("telemetry.tracing.endpoint", "localhost:4317")
	v.SetDefault("telemetry.tracing.insecure", true)
	v.SetDefault("telemetry.tracing.ratio", 1.0)
}

func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
