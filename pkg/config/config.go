// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Index, Search, Redis, Kafka, Postgres, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CorpusConfig points at the outputs of the lemmatization step and at the
// raw pages used for title lookup.
type CorpusConfig struct {
	TokensDir string `yaml:"tokensDir"`
	LemmasDir string `yaml:"lemmasDir"`
	PagesDir  string `yaml:"pagesDir"`
}

// IndexConfig locates the build artifacts written by cmd/indexer and read by
// the serving side.
type IndexConfig struct {
	SnapshotPath    string `yaml:"snapshotPath"`
	TokenVectorsDir string `yaml:"tokenVectorsDir"`
	LemmaVectorsDir string `yaml:"lemmaVectorsDir"`
}

// SearchConfig controls query execution.
type SearchConfig struct {
	DefaultLimit     int           `yaml:"defaultLimit"`
	MaxResults       int           `yaml:"maxResults"`
	VectorSource     string        `yaml:"vectorSource"`
	Lemmatizer       string        `yaml:"lemmatizer"`
	UntitledTitle    string        `yaml:"untitledTitle"`
	LoadWorkers      int           `yaml:"loadWorkers"`
	LoadTimeout      time.Duration `yaml:"loadTimeout"`
	CacheEnabled     bool          `yaml:"cacheEnabled"`
	SnowballLanguage string        `yaml:"snowballLanguage"`
}

// VectorsDir returns the vector directory selected by VectorSource.
func (s SearchConfig) VectorsDir(idx IndexConfig) string {
	if s.VectorSource == "tokens" {
		return idx.TokenVectorsDir
	}
	return idx.LemmaVectorsDir
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete   string `yaml:"indexComplete"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// PostgresConfig holds PostgreSQL connection parameters for the analytics
// snapshot store.
type PostgresConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// AnalyticsConfig controls search-event collection.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
	SnapshotKeep     int           `yaml:"snapshotKeep"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
}

// RateLimitConfig controls the per-client token bucket on search endpoints.
// X-Forwarded-For is honoured only for requests arriving from one of
// TrustedProxies (IP addresses or CIDR prefixes).
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled"`
	RequestsPerSecond float64  `yaml:"requestsPerSecond"`
	Burst             int      `yaml:"burst"`
	TrustedProxies    []string `yaml:"trustedProxies"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	switch c.Search.VectorSource {
	case "tokens", "lemmas":
	default:
		return fmt.Errorf("search.vectorSource must be tokens or lemmas, got %q", c.Search.VectorSource)
	}
	switch c.Search.Lemmatizer {
	case "dictionary", "snowball", "lower":
	default:
		return fmt.Errorf("search.lemmatizer must be dictionary, snowball or lower, got %q", c.Search.Lemmatizer)
	}
	if c.Search.DefaultLimit < 1 {
		return fmt.Errorf("search.defaultLimit must be positive, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxResults < c.Search.DefaultLimit {
		return fmt.Errorf("search.maxResults (%d) must be >= search.defaultLimit (%d)", c.Search.MaxResults, c.Search.DefaultLimit)
	}
	return nil
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			TokensDir: "data/tokens",
			LemmasDir: "data/lemmas",
			PagesDir:  "data/saved_pages",
		},
		Index: IndexConfig{
			SnapshotPath:    "data/index/inverted_index.csv",
			TokenVectorsDir: "data/tfidf/tokens",
			LemmaVectorsDir: "data/tfidf/lemmas",
		},
		Search: SearchConfig{
			DefaultLimit:     10,
			MaxResults:       100,
			VectorSource:     "lemmas",
			Lemmatizer:       "dictionary",
			UntitledTitle:    "Untitled",
			LoadWorkers:      8,
			LoadTimeout:      2 * time.Minute,
			CacheEnabled:     true,
			SnowballLanguage: "auto",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "lexisearch-group",
			Topics: KafkaTopics{
				IndexComplete:   "index.complete",
				AnalyticsEvents: "analytics-events",
			},
		},
		Postgres: PostgresConfig{
			Enabled:         false,
			Host:            "localhost",
			Port:            5432,
			Database:        "lexisearch",
			User:            "lexisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Analytics: AnalyticsConfig{
			BufferSize:       10000,
			SnapshotInterval: time.Minute,
			SnapshotKeep:     1440,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
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

// applyEnvOverrides reads LS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LS_CORPUS_TOKENS_DIR"); v != "" {
		cfg.Corpus.TokensDir = v
	}
	if v := os.Getenv("LS_CORPUS_LEMMAS_DIR"); v != "" {
		cfg.Corpus.LemmasDir = v
	}
	if v := os.Getenv("LS_CORPUS_PAGES_DIR"); v != "" {
		cfg.Corpus.PagesDir = v
	}
	if v := os.Getenv("LS_INDEX_SNAPSHOT_PATH"); v != "" {
		cfg.Index.SnapshotPath = v
	}
	if v := os.Getenv("LS_INDEX_TOKEN_VECTORS_DIR"); v != "" {
		cfg.Index.TokenVectorsDir = v
	}
	if v := os.Getenv("LS_INDEX_LEMMA_VECTORS_DIR"); v != "" {
		cfg.Index.LemmaVectorsDir = v
	}
	if v := os.Getenv("LS_SEARCH_VECTOR_SOURCE"); v != "" {
		cfg.Search.VectorSource = v
	}
	if v := os.Getenv("LS_SEARCH_LEMMATIZER"); v != "" {
		cfg.Search.Lemmatizer = v
	}
	if v := os.Getenv("LS_SEARCH_CACHE_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Search.CacheEnabled = enabled
		}
	}
	if v := os.Getenv("LS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("LS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("LS_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("LS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_RATE_LIMIT_TRUSTED_PROXIES"); v != "" {
		cfg.RateLimit.TrustedProxies = strings.Split(v, ",")
	}
	if v := os.Getenv("LS_POSTGRES_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Postgres.Enabled = enabled
		}
	}
	if v := os.Getenv("LS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("LS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("LS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
