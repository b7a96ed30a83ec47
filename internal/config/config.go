// File: backend/services/audit-service/internal/config/config.go
package config

import (
	"fmt"
	"time"
)

// Transports supported by the bus binding.
const (
	TransportKafka  = "kafka"
	TransportNATS   = "nats"
	TransportMemory = "memory"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Server      ServerConfig     `mapstructure:"server"`
	GRPC        GRPCConfig       `mapstructure:"grpc"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Redis       RedisConfig      `mapstructure:"redis"`
	Bus         BusConfig        `mapstructure:"bus"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	NATS        NATSConfig       `mapstructure:"nats"`
	OpenSearch  OpenSearchConfig `mapstructure:"opensearch"`
	Activity    ActivityConfig   `mapstructure:"activity"`
	Logging     LoggingConfig    `mapstructure:"logging"`
	Telemetry   TelemetryConfig  `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// GRPCConfig serves the standard gRPC health protocol.
type GRPCConfig struct {
	Enabled          bool `mapstructure:"enabled"`
	Port             int  `mapstructure:"port"`
	EnableReflection bool `mapstructure:"enable_reflection"`
}

type DatabaseConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	DBName         string        `mapstructure:"dbname"`
	SSLMode        string        `mapstructure:"sslmode"`
	MaxOpenConns   int           `mapstructure:"max_open_conns"`
	MaxIdleConns   int           `mapstructure:"max_idle_conns"`
	ConnMaxLife    time.Duration `mapstructure:"conn_max_life"`
	AutoMigrate    bool          `mapstructure:"auto_migrate"`
	MigrationsPath string        `mapstructure:"migrations_path"`
}

// URL returns the postgres connection URL shared by pgx and golang-migrate.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UserTTL  time.Duration `mapstructure:"user_ttl"`
}

// BusConfig holds settings common to every transport.
type BusConfig struct {
	Transport      string        `mapstructure:"transport"`
	Workers        int           `mapstructure:"workers"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

type KafkaConsumerConfig struct {
	GroupID string `mapstructure:"group_id"`
}

type KafkaTopicsConfig struct {
	AutoCreate        bool `mapstructure:"auto_create"`
	Partitions        int  `mapstructure:"partitions"`
	ReplicationFactor int  `mapstructure:"replication_factor"`
}

type KafkaConfig struct {
	Brokers  []string            `mapstructure:"brokers"`
	Version  string              `mapstructure:"version"`
	Consumer KafkaConsumerConfig `mapstructure:"consumer"`
	Topics   KafkaTopicsConfig   `mapstructure:"topics"`
}

type NATSConfig struct {
	URL        string        `mapstructure:"url"`
	Stream     string        `mapstructure:"stream"`
	Durable    string        `mapstructure:"durable"`
	AckWait    time.Duration `mapstructure:"ack_wait"`
	FetchBatch int           `mapstructure:"fetch_batch"`
	MaxAge     time.Duration `mapstructure:"max_age"`
}

type OpenSearchConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// ActivityConfig drives the synthetic activity generator.
type ActivityConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Interval          time.Duration `mapstructure:"interval"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
	MaxBackoff        time.Duration `mapstructure:"max_backoff"`
	IdentitySourceURL string        `mapstructure:"identity_source_url"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	Endpoint string  `mapstructure:"endpoint"`
	Insecure bool    `mapstructure:"insecure"`
	Ratio    float64 `mapstructure:"ratio"`
}

type TelemetryConfig struct {
	ServiceName string        `mapstructure:"service_name"`
	Tracing     TracingConfig `mapstructure:"tracing"`
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	switch c.Bus.Transport {
	case TransportKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers must not be empty for the kafka transport")
		}
	case TransportNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url must be set for the nats transport")
		}
	case TransportMemory:
	default:
		return fmt.Errorf("unknown bus.transport %q", c.Bus.Transport)
	}
	if c.Bus.MaxDeliver < 1 {
		return fmt.Errorf("bus.max_deliver must be at least 1")
	}
	if c.OpenSearch.Enabled && len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("opensearch.addresses must not be empty when opensearch is enabled")
	}
	if c.Activity.Enabled && c.Activity.IdentitySourceURL == "" {
		return fmt.Errorf("activity.identity_source_url must be set when the activity generator is enabled")
	}
	return nil
}
