// Package config reads termsearch settings from an optional YAML file,
// lets TS_* environment variables override them, and validates the result
// with struct tags.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is shared by every binary; each one reads the sections it needs.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Indexer   IndexerConfig   `yaml:"indexer"`
	Search    SearchConfig    `yaml:"search"`
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// CorpusConfig names the document collection. Location is either a local
// directory or an s3://bucket/prefix URL. An empty location makes the CLI
// prompt for one.
type CorpusConfig struct {
	Location string   `yaml:"location"`
	S3       S3Config `yaml:"s3"`
}

// S3Config holds the AWS settings used when the corpus lives in a bucket.
type S3Config struct {
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"forcePathStyle"`
}

// IndexerConfig controls the index build.
type IndexerConfig struct {
	Workers int `yaml:"workers" validate:"min=1"`
}

// SearchConfig controls query execution.
type SearchConfig struct {
	Workers int `yaml:"workers" validate:"min=1"`
}

// ServerConfig is the searcher's HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of API requests one client address may make
	// per minute. Zero disables limiting.
	RateLimit       int           `yaml:"rateLimit" validate:"min=0"`
}

// RedisConfig points the query cache at Redis. CacheTTL bounds how long a
// ranked result may be served after the index is rebuilt elsewhere.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr" validate:"required_if=Enabled true"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"min=0"`
	PoolSize int           `yaml:"poolSize" validate:"min=0"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings. ConsumerGroup is used
// by the standalone analytics service reading the search-events topic.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers" validate:"required_if=Enabled true"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics names the topics search events flow through.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// PostgresConfig locates the search-history database.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host" validate:"required_if=Enabled true"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN renders the settings as a postgres:// URL, which lib/pq accepts and
// which escapes credentials containing spaces or quotes.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": {p.SSLMode}}.Encode(),
	}
	return u.String()
}

// AnalyticsConfig controls how search events are buffered before they reach
// the Kafka and Postgres sinks.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize" validate:"min=1"`
	BatchSize        int           `yaml:"batchSize" validate:"min=1"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// MetricsConfig enables the standalone /metrics listener.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port" validate:"min=1,max=65535"`
}

// Load layers the YAML file at path (skipped when path is empty) and then
// the environment over the defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config %s: invalid yaml: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}


// Validate checks the struct tags on every section.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// Default is the configuration used when no file or environment overrides
// apply: local services on their usual ports, every backend disabled.
func Default() *Config {
	workers := runtime.NumCPU()
	return &Config{
		Indexer: IndexerConfig{Workers: workers},
		Search:  SearchConfig{Workers: workers},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "termsearch-analytics",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "termsearch",
			User:            "termsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides lets TS_* environment variables replace file values.
// Unparseable numbers and durations are ignored.
func applyEnvOverrides(cfg *Config) {
	envString("TS_CORPUS_LOCATION", &cfg.Corpus.Location)
	envString("TS_CORPUS_S3_REGION", &cfg.Corpus.S3.Region)
	envString("TS_CORPUS_S3_ENDPOINT", &cfg.Corpus.S3.Endpoint)
	envInt("TS_INDEXER_WORKERS", &cfg.Indexer.Workers)
	envInt("TS_SEARCH_WORKERS", &cfg.Search.Workers)

	envInt("TS_SERVER_PORT", &cfg.Server.Port)
	envInt("TS_SERVER_RATE_LIMIT", &cfg.Server.RateLimit)

	envBool("TS_REDIS_ENABLED", &cfg.Redis.Enabled)
	envString("TS_REDIS_ADDR", &cfg.Redis.Addr)
	envString("TS_REDIS_PASSWORD", &cfg.Redis.Password)

	envBool("TS_KAFKA_ENABLED", &cfg.Kafka.Enabled)
	if brokers := os.Getenv("TS_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	envString("TS_KAFKA_CONSUMER_GROUP", &cfg.Kafka.ConsumerGroup)

	envBool("TS_POSTGRES_ENABLED", &cfg.Postgres.Enabled)
	envString("TS_POSTGRES_HOST", &cfg.Postgres.Host)
	envInt("TS_POSTGRES_PORT", &cfg.Postgres.Port)
	envString("TS_POSTGRES_DATABASE", &cfg.Postgres.Database)
	envString("TS_POSTGRES_USER", &cfg.Postgres.User)
	envString("TS_POSTGRES_PASSWORD", &cfg.Postgres.Password)

	envInt("TS_ANALYTICS_BATCH_SIZE", &cfg.Analytics.BatchSize)
	envDuration("TS_ANALYTICS_FLUSH_INTERVAL", &cfg.Analytics.FlushInterval)

	envString("TS_LOGGING_LEVEL", &cfg.Logging.Level)
	envString("TS_LOGGING_FORMAT", &cfg.Logging.Format)
	envBool("TS_METRICS_ENABLED", &cfg.Metrics.Enabled)
	envInt("TS_METRICS_PORT", &cfg.Metrics.Port)
}

func envString(key string, dst *string) {
	if s, ok := os.LookupEnv(key); ok && s != "" {
		*dst = s
	}
}

func envInt(key string, dst *int) {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = n
	}
}

// envBool treats any set value other than a true boolean as false.
func envBool(key string, dst *bool) {
	if s, ok := os.LookupEnv(key); ok && s != "" {
		b, err := strconv.ParseBool(s)
		*dst = err == nil && b
	}
}

func envDuration(key string, dst *time.Duration) {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		*dst = d
	}
}
