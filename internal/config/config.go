// Package config provides configuration loading for the sqlsentry CLI and
// the auditingest service.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Database configuration (metadata store)
	Database DatabaseConfig `mapstructure:"database"`

	// Validator configures the checker catalogue and active strategy.
	Validator ValidatorConfig `mapstructure:"validator"`

	// Interceptor configures the inner-interceptor chain.
	Interceptor InterceptorConfig `mapstructure:"interceptor"`

	// Dedup configures the per-statement dedup filter.
	Dedup DedupConfig `mapstructure:"dedup"`

	// AuditWriter configures the audit event sink.
	AuditWriter AuditWriterConfig `mapstructure:"auditWriter"`

	// Consumer configures the Kafka ingestion pipeline.
	Consumer ConsumerConfig `mapstructure:"consumer"`

	// Storage configures the metadata and log stores.
	Storage StorageConfig `mapstructure:"storage"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Server configuration (metrics/health endpoints)
	Server ServerConfig `mapstructure:"server"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Token string `mapstructure:"token"`
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// ValidatorConfig mirrors spec §6's Validator configuration surface.
type ValidatorConfig struct {
	ActiveStrategy string              `mapstructure:"activeStrategy"` // LOG, WARN, BLOCK
	Enabled        map[string]bool     `mapstructure:"enabled"`        // per-checker
	DeepPaginationOffsetThreshold int   `mapstructure:"deepPaginationOffsetThreshold"`
	LargePageSizeLimit            int   `mapstructure:"largePageSizeLimit"`
	BlacklistFields               []string `mapstructure:"blacklistFields"`
	WhitelistFields               map[string][]string `mapstructure:"whitelistFields"`
	DeniedTables                  []string `mapstructure:"deniedTables"`
	ReadOnlyTables                []string `mapstructure:"readOnlyTables"`
	DangerousFunctions            []string `mapstructure:"dangerousFunctions"`
	EnforceForAllQueries          bool     `mapstructure:"enforceForAllQueries"`
	UniqueKeyColumns              []string `mapstructure:"uniqueKeyColumns"`
	TableWhitelist                []string `mapstructure:"tableWhitelist"`
	MapperIDWhitelistPatterns     []string `mapstructure:"mapperIdWhitelistPatterns"`
}

// InterceptorConfig configures the inner-interceptor chain.
type InterceptorConfig struct {
	Enabled               map[string]bool `mapstructure:"enabled"`
	Priority              map[string]int  `mapstructure:"priority"`
	SelectLimitFallbackCap int            `mapstructure:"selectLimitFallbackCap"`
}

// DedupConfig configures the per-statement dedup filter.
type DedupConfig struct {
	Capacity  int `mapstructure:"capacity"`
	TTLMillis int `mapstructure:"ttlMillis"`
}

// AuditWriterConfig configures the audit event sink.
type AuditWriterConfig struct {
	Sink           string   `mapstructure:"sink"` // local, kafka
	LocalCapacity  int      `mapstructure:"localCapacity"`
	KafkaBootstrap []string `mapstructure:"kafkaBootstrap"`
	KafkaTopic     string   `mapstructure:"kafkaTopic"`
	KafkaAcks      string   `mapstructure:"kafkaAcks"`
	KafkaRetries   int      `mapstructure:"kafkaRetries"`
}

// ConsumerConfig mirrors spec §6's Consumer configuration surface.
type ConsumerConfig struct {
	Bootstrap     []string `mapstructure:"bootstrap"`
	Topic         string   `mapstructure:"topic"`
	GroupID       string   `mapstructure:"groupId"`
	Concurrency   int      `mapstructure:"concurrency"`
	QueueCapacity int      `mapstructure:"queueCapacity"`
	HighWatermark int      `mapstructure:"highWatermark"`
	LowWatermark  int      `mapstructure:"lowWatermark"`
	PollTimeoutMs int      `mapstructure:"pollTimeoutMs"`
	CommitMode    string   `mapstructure:"commitMode"` // always "manual"
	Retry         RetryConfig `mapstructure:"retry"`
}

// RetryConfig configures the consumer's backoff schedule.
type RetryConfig struct {
	MaxAttempts int     `mapstructure:"maxAttempts"`
	BaseMs      int     `mapstructure:"baseMs"`
	Factor      float64 `mapstructure:"factor"`
	Jitter      float64 `mapstructure:"jitter"`
}

// StorageConfig configures the metadata and log stores.
type StorageConfig struct {
	MetadataBackend string `mapstructure:"metadataBackend"` // postgres
	LogBackend      string `mapstructure:"logBackend"`      // clickhouse, relational
	ClickHouse      ClickHouseDialConfig `mapstructure:"clickhouse"`
	RetentionDays   int    `mapstructure:"retentionDays"`
}

// ClickHouseDialConfig holds ClickHouse connection settings.
type ClickHouseDialConfig struct {
	Addr     []string `mapstructure:"addr"`
	Database string   `mapstructure:"database"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	Table    string   `mapstructure:"table"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig holds HTTP server configuration (metrics endpoint).
type ServerConfig struct {
	MetricsAddr  string `mapstructure:"metricsAddr"`
	ReadTimeout  string `mapstructure:"readTimeout"`
	WriteTimeout string `mapstructure:"writeTimeout"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Auth: AuthConfig{Token: ""},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "sqlsentry",
			Password: "sqlsentry_dev",
			Name:     "sqlsentry",
			SSLMode:  "disable",
		},
		Validator: ValidatorConfig{
			ActiveStrategy:                "BLOCK",
			DeepPaginationOffsetThreshold: 10000,
			LargePageSizeLimit:            1000,
		},
		Interceptor: InterceptorConfig{
			SelectLimitFallbackCap: 1000,
		},
		Dedup: DedupConfig{
			Capacity:  10000,
			TTLMillis: 60000,
		},
		AuditWriter: AuditWriterConfig{
			Sink:          "local",
			LocalCapacity: 10000,
			KafkaTopic:    "sql-audit-events",
			KafkaAcks:     "one",
			KafkaRetries:  3,
		},
		Consumer: ConsumerConfig{
			Topic:         "sql-audit-events",
			GroupID:       "sqlsentry-auditingest",
			Concurrency:   8,
			QueueCapacity: 256,
			HighWatermark: 200,
			LowWatermark:  50,
			PollTimeoutMs: 500,
			CommitMode:    "manual",
			Retry: RetryConfig{
				MaxAttempts: 5,
				BaseMs:      200,
				Factor:      2,
				Jitter:      0.2,
			},
		},
		Storage: StorageConfig{
			MetadataBackend: "postgres",
			LogBackend:      "relational",
			RetentionDays:   90,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Server: ServerConfig{
			MetricsAddr:  ":9090",
			ReadTimeout:  "30s",
			WriteTimeout: "30s",
		},
	}
}

// Load loads configuration from file and environment.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".sqlsentry"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("SQLSENTRY")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("database.host", d.Database.Host)
	v.SetDefault("database.port", d.Database.Port)
	v.SetDefault("database.user", d.Database.User)
	v.SetDefault("database.password", d.Database.Password)
	v.SetDefault("database.name", d.Database.Name)
	v.SetDefault("database.sslmode", d.Database.SSLMode)

	v.SetDefault("validator.activeStrategy", d.Validator.ActiveStrategy)
	v.SetDefault("validator.deepPaginationOffsetThreshold", d.Validator.DeepPaginationOffsetThreshold)
	v.SetDefault("validator.largePageSizeLimit", d.Validator.LargePageSizeLimit)

	v.SetDefault("interceptor.selectLimitFallbackCap", d.Interceptor.SelectLimitFallbackCap)

	v.SetDefault("dedup.capacity", d.Dedup.Capacity)
	v.SetDefault("dedup.ttlMillis", d.Dedup.TTLMillis)

	v.SetDefault("auditWriter.sink", d.AuditWriter.Sink)
	v.SetDefault("auditWriter.localCapacity", d.AuditWriter.LocalCapacity)
	v.SetDefault("auditWriter.kafkaTopic", d.AuditWriter.KafkaTopic)
	v.SetDefault("auditWriter.kafkaAcks", d.AuditWriter.KafkaAcks)
	v.SetDefault("auditWriter.kafkaRetries", d.AuditWriter.KafkaRetries)

	v.SetDefault("consumer.topic", d.Consumer.Topic)
	v.SetDefault("consumer.groupId", d.Consumer.GroupID)
	v.SetDefault("consumer.concurrency", d.Consumer.Concurrency)
	v.SetDefault("consumer.queueCapacity", d.Consumer.QueueCapacity)
	v.SetDefault("consumer.highWatermark", d.Consumer.HighWatermark)
	v.SetDefault("consumer.lowWatermark", d.Consumer.LowWatermark)
	v.SetDefault("consumer.pollTimeoutMs", d.Consumer.PollTimeoutMs)
	v.SetDefault("consumer.commitMode", d.Consumer.CommitMode)
	v.SetDefault("consumer.retry.maxAttempts", d.Consumer.Retry.MaxAttempts)
	v.SetDefault("consumer.retry.baseMs", d.Consumer.Retry.BaseMs)
	v.SetDefault("consumer.retry.factor", d.Consumer.Retry.Factor)
	v.SetDefault("consumer.retry.jitter", d.Consumer.Retry.Jitter)

	v.SetDefault("storage.metadataBackend", d.Storage.MetadataBackend)
	v.SetDefault("storage.logBackend", d.Storage.LogBackend)
	v.SetDefault("storage.retentionDays", d.Storage.RetentionDays)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("server.metricsAddr", d.Server.MetricsAddr)
	v.SetDefault("server.readTimeout", d.Server.ReadTimeout)
	v.SetDefault("server.writeTimeout", d.Server.WriteTimeout)
}
