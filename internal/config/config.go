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
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Worker holds configuration for the Kafka -> Elasticsearch indexer.
type Worker struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	// CommitInterval batches offset commits; 0 commits each message synchronously.
	CommitInterval time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr     string
	DefaultPage  int
	MaxPage      int
	ReportsDir   string
	DeepDivesDir string
	DBPath       string
	WatchReports bool
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
	// Raw collector snapshots under ReportsDir older than RawMaxAge are pruned.
	ReportsDir string
	RawMaxAge  time.Duration
}

// Collector configures the headlines CLI.
type Collector struct {
	ReportsDir      string
	DBPath          string
	SourcesFile     string
	HTTPTimeout     time.Duration
	RequestInterval time.Duration
	// KafkaBrokers is empty when publishing is disabled.
	KafkaBrokers []string
	KafkaTopic   string
	Sources      Sources
}

func common() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "articles"),
	}
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Worker{
		Common:           common(),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "articles_raw"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "article-indexer"),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 4),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
		CommitInterval:   getDuration("WORKER_COMMIT_INTERVAL", "2s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}
	if c.CommitInterval < 0 {
		return nil, fmt.Errorf("WORKER_COMMIT_INTERVAL cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &API{
		Common:       common(),
		BindAddr:     getEnv("API_BIND_ADDR", "0.0.0.0:3001"),
		DefaultPage:  getInt("API_PAGE_SIZE", 20),
		MaxPage:      getInt("API_MAX_PAGE_SIZE", 100),
		ReportsDir:   getEnv("HEADLINES_DIR", "Headlines"),
		DeepDivesDir: getEnv("DEEPDIVES_DIR", "DeepDives"),
		DBPath:       getEnv("HUB_DB_PATH", "knowledge-hub.db"),
		WatchReports: getBool("API_WATCH_REPORTS", false),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Retention{
		Common:     common(),
		Interval:   getDuration("RETENTION_CRON", "24h"),
		MaxAge:     getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize:  getInt("RETENTION_BATCH_SIZE", 500),
		ReportsDir: getEnv("HEADLINES_DIR", "Headlines"),
		RawMaxAge:  getDuration("RETENTION_RAW_MAX_AGE", "168h"),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}
	if c.RawMaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_RAW_MAX_AGE must be positive")
	}

	return c, nil
}

// LoadCollector builds the CLI config from environment variables and the
// optional sources file named by SOURCES_CONFIG.
func LoadCollector() (*Collector, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}
	c := &Collector{
		ReportsDir:      getEnv("HEADLINES_DIR", "Headlines"),
		DBPath:          getEnv("HUB_DB_PATH", "knowledge-hub.db"),
		SourcesFile:     getEnv("SOURCES_CONFIG", ""),
		HTTPTimeout:     getDuration("SOURCE_HTTP_TIMEOUT", "15s"),
		RequestInterval: getDuration("SOURCE_REQUEST_INTERVAL", "1s"),
		KafkaBrokers:    splitAndTrim(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:      getEnv("KAFKA_TOPIC", "articles_raw"),
		Sources:         DefaultSources(),
	}

	if c.SourcesFile != "" {
		src, err := LoadSourcesFile(c.SourcesFile)
		if err != nil {
			return nil, err
		}
		c.Sources = src
	}

	if c.HTTPTimeout <= 0 {
		return nil, fmt.Errorf("SOURCE_HTTP_TIMEOUT must be positive")
	}
	if c.RequestInterval < 0 {
		return nil, fmt.Errorf("SOURCE_REQUEST_INTERVAL cannot be negative")
	}
	if err := c.Sources.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// loadDotEnv reads ENV_FILE (default .env) into the environment without
// overriding variables that are already set. A missing file is fine.
func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	raw := getEnv(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
