// Package config loads and validates application configuration from YAML or
// TOML files with environment-variable overrides. It provides typed structs
// for every subsystem (Server, Index, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" toml:"server"`
	RPC       RPCConfig       `yaml:"rpc" toml:"rpc"`
	Index     IndexConfig     `yaml:"index" toml:"index"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres" toml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka" toml:"kafka"`
	Redis     RedisConfig     `yaml:"redis" toml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics" toml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit" toml:"rateLimit"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LoggingConfig   `yaml:"logging" toml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing" toml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port" toml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout" toml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" toml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" toml:"shutdownTimeout"`
	// CORSOrigins lists the sites whose browsers may call the API. An
	// entry "*.example.org" matches any subdomain. Empty allows all.
	CORSOrigins []string `yaml:"corsOrigins" toml:"corsOrigins"`
}

// RPCConfig controls the JSON-over-TCP RPC listener. Port 0 disables it.
type RPCConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// IndexConfig lists the searchindex files served by this process.
type IndexConfig struct {
	DataDir     string             `yaml:"dataDir" toml:"dataDir"`
	Collections []CollectionConfig `yaml:"collections" toml:"collections"`
	Watch       bool               `yaml:"watch" toml:"watch"`
	LoadTimeout time.Duration      `yaml:"loadTimeout" toml:"loadTimeout"`
}

// CollectionConfig names one index file. A relative Path is resolved
// against IndexConfig.DataDir.
type CollectionConfig struct {
	Name string `yaml:"name" toml:"name"`
	Path string `yaml:"path" toml:"path"`
}

// ResolvedPath returns the collection's index path joined with dataDir when
// the configured path is relative.
func (c CollectionConfig) ResolvedPath(dataDir string) string {
	if filepath.IsAbs(c.Path) || dataDir == "" {
		return c.Path
	}
	return filepath.Join(dataDir, c.Path)
}

// SearchConfig controls query normalisation, ranking weights and limits.
type SearchConfig struct {
	MaxResults     int           `yaml:"maxResults" toml:"maxResults"`
	DefaultLimit   int           `yaml:"defaultLimit" toml:"defaultLimit"`
	MinTokenLength int           `yaml:"minTokenLength" toml:"minTokenLength"`
	PartialMatch   bool          `yaml:"partialMatch" toml:"partialMatch"`
	Weights        WeightsConfig `yaml:"weights" toml:"weights"`
}

// WeightsConfig holds the per-field weights used to order documents that
// matched the same number of query tokens.
type WeightsConfig struct {
	Term         float64 `yaml:"term" toml:"term"`
	PartialTerm  float64 `yaml:"partialTerm" toml:"partialTerm"`
	Title        float64 `yaml:"title" toml:"title"`
	PartialTitle float64 `yaml:"partialTitle" toml:"partialTitle"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled" toml:"enabled"`
	Host            string        `yaml:"host" toml:"host"`
	Port            int           `yaml:"port" toml:"port"`
	Database        string        `yaml:"database" toml:"database"`
	User            string        `yaml:"user" toml:"user"`
	Password        string        `yaml:"password" toml:"password"`
	SSLMode         string        `yaml:"sslMode" toml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns" toml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns" toml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime" toml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled" toml:"enabled"`
	Brokers       []string    `yaml:"brokers" toml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup" toml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics" toml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexPublished  string `yaml:"indexPublished" toml:"indexPublished"`
	AnalyticsEvents string `yaml:"analyticsEvents" toml:"analyticsEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled" toml:"enabled"`
	Addr     string        `yaml:"addr" toml:"addr"`
	Password string        `yaml:"password" toml:"password"`
	DB       int           `yaml:"db" toml:"db"`
	PoolSize int           `yaml:"poolSize" toml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL" toml:"cacheTTL"`
}

// AnalyticsConfig controls search-event collection and snapshotting. A
// BatchSize above 1 publishes events to Kafka in batches instead of one by
// one.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize" toml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize" toml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval" toml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval" toml:"snapshotInterval"`
}

// RateLimitConfig controls the per-client HTTP rate limiter.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" toml:"enabled"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond" toml:"requestsPerSecond"`
	Burst             int     `yaml:"burst" toml:"burst"`
}

// AuthConfig guards the write routes (publish, reload, cache invalidation)
// with API keys. Keys listed here are unscoped; scoped keys live in
// Postgres.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled" toml:"enabled"`
	Keys    []string `yaml:"keys" toml:"keys"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// TracingConfig controls span logging for search requests.
type TracingConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	Port    int  `yaml:"port" toml:"port"`
}

// Load reads a YAML or TOML config file (if provided), applies
// environment-variable overrides and validates the result. Files ending in
// .toml are decoded as TOML, everything else as YAML.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := decode(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks cross-field constraints that defaults cannot guarantee.
func (c *Config) Validate() error {
	seen := make(map[string]struct{}, len(c.Index.Collections))
	for i, col := range c.Index.Collections {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("index.collections[%d]: name is required", i)
		}
		if strings.TrimSpace(col.Path) == "" {
			return fmt.Errorf("index.collections[%d] (%s): path is required", i, col.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("index.collections[%d]: duplicate collection name %q", i, col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	if c.Search.MinTokenLength < 1 {
		return fmt.Errorf("search.minTokenLength must be at least 1, got %d", c.Search.MinTokenLength)
	}
	if c.Search.DefaultLimit < 0 || c.Search.MaxResults < 0 {
		return fmt.Errorf("search limits must not be negative")
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development against the bundled tutorial index.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Index: IndexConfig{
			DataDir:     "data",
			LoadTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			MaxResults:     100,
			DefaultLimit:   10,
			MinTokenLength: 3,
			Weights: WeightsConfig{
				Term:         5,
				PartialTerm:  2,
				Title:        15,
				PartialTitle: 7,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "docsearch",
			Topics: KafkaTopics{
				IndexPublished:  "index-published",
				AnalyticsEvents: "search-analytics",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: time.Minute,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads DS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DS_RPC_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.RPC.Port = port
		}
	}
	if v := os.Getenv("DS_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	// DS_INDEX_COLLECTIONS=name=path,name=path replaces the configured list.
	if v := os.Getenv("DS_INDEX_COLLECTIONS"); v != "" {
		var cols []CollectionConfig
		for _, pair := range strings.Split(v, ",") {
			name, path, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok {
				continue
			}
			cols = append(cols, CollectionConfig{Name: name, Path: path})
		}
		cfg.Index.Collections = cols
	}
	if v := os.Getenv("DS_INDEX_WATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Index.Watch = b
		}
	}
	if v := os.Getenv("DS_SEARCH_PARTIAL_MATCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Search.PartialMatch = b
		}
	}
	if v := os.Getenv("DS_POSTGRES_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = b
		}
	}
	if v := os.Getenv("DS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("DS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("DS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("DS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("DS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("DS_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("DS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("DS_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("DS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("DS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("DS_AUTH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = b
		}
	}
	// DS_AUTH_KEYS=key1,key2 replaces the configured keys.
	if v := os.Getenv("DS_AUTH_KEYS"); v != "" {
		var keys []string
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
		cfg.Auth.Keys = keys
	}
	if v := os.Getenv("DS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
