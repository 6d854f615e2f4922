package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendMemory   = "memory"
	BackendNeo4j    = "neo4j"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendBadger   = "badger"
)

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Log     LogConfig     `mapstructure:"log"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Store   StoreConfig   `mapstructure:"store"`
	Neo4j   Neo4jConfig   `mapstructure:"neo4j"`
	SQL     SQLConfig     `mapstructure:"sql"`
	Badger  BadgerConfig  `mapstructure:"badger"`
	Redis   RedisConfig   `mapstructure:"redis"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Notion  NotionConfig  `mapstructure:"notion"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type LogConfig struct {
	Mode       string `mapstructure:"mode"`
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type HTTPConfig struct {
	Addr        string   `mapstructure:"addr"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type StoreConfig struct {
	Backend          string        `mapstructure:"backend"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	OpTimeout        time.Duration `mapstructure:"op_timeout"`
	RetryEvery       time.Duration `mapstructure:"retry_every"`
	DefaultLimit     int           `mapstructure:"default_limit"`
	MaxLimit         int           `mapstructure:"max_limit"`
	AbortOnMalformed bool          `mapstructure:"abort_on_malformed"`
	Breaker          BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Disabled         bool          `mapstructure:"disabled"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Interval         time.Duration `mapstructure:"interval"`
	FailureThreshold float64       `mapstructure:"failure_threshold"`
	MinRequests      uint32        `mapstructure:"min_requests"`
}

type Neo4jConfig struct {
	URI         string `mapstructure:"uri"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	Database    string `mapstructure:"database"`
	MaxPoolSize int    `mapstructure:"max_pool_size"`
}

type SQLConfig struct {
	PostgresDSN string `mapstructure:"postgres_dsn"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

type BadgerConfig struct {
	Path       string `mapstructure:"path"`
	InMemory   bool   `mapstructure:"in_memory"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type GitHubConfig struct {
	Token             string  `mapstructure:"token"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	MaxPages          int     `mapstructure:"max_pages"`
}

type NotionConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	BaseURL           string  `mapstructure:"base_url"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Addr serves /metrics on a separate listener; empty mounts it on the API router.
	Addr string `mapstructure:"addr"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "skillgraph")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.version", "dev")

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.cors_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.connect_timeout", "10s")
	v.SetDefault("store.op_timeout", "15s")
	v.SetDefault("store.retry_every", "5s")
	v.SetDefault("store.default_limit", 200)
	v.SetDefault("store.max_limit", 5000)
	v.SetDefault("store.abort_on_malformed", false)
	v.SetDefault("store.breaker.disabled", false)
	v.SetDefault("store.breaker.timeout", "15s")
	v.SetDefault("store.breaker.interval", "30s")
	v.SetDefault("store.breaker.failure_threshold", 0.6)
	v.SetDefault("store.breaker.min_requests", 3)

	v.SetDefault("neo4j.uri", "bolt://localhost:7687")
	v.SetDefault("neo4j.user", "neo4j")
	v.SetDefault("neo4j.password", "")
	v.SetDefault("neo4j.database", "")
	v.SetDefault("neo4j.max_pool_size", 50)

	v.SetDefault("sql.postgres_dsn", "")
	v.SetDefault("sql.sqlite_path", "skillgraph.db")

	v.SetDefault("badger.path", "data/badger")
	v.SetDefault("badger.in_memory", false)
	v.SetDefault("badger.sync_writes", false)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "skillgraph")
	v.SetDefault("redis.ttl", "5m")

	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "")
	v.SetDefault("github.requests_per_second", 5.0)
	v.SetDefault("github.max_pages", 10)

	v.SetDefault("notion.api_key", "")
	v.SetDefault("notion.base_url", "")
	v.SetDefault("notion.requests_per_second", 3.0)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "")
}

// bindAliases maps conventional variable names that do not follow the
// section_key pattern.
func bindAliases(v *viper.Viper) {
	_ = v.BindEnv("sql.postgres_dsn", "SQL_POSTGRES_DSN", "POSTGRES_DSN", "DATABASE_URL")
	_ = v.BindEnv("github.token", "GITHUB_TOKEN", "GITHUB_ACCESS_TOKEN")
	_ = v.BindEnv("notion.api_key", "NOTION_API_KEY")
}

// NewViper prepares a viper instance with defaults, an optional config file
// and environment overrides (NEO4J_URI overrides neo4j.uri).
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindAliases(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return v, nil
}

func ConfigFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func LoadConfig(configFile string) (Config, error) {
	v, err := NewViper(configFile)
	if err != nil {
		return Config{}, err
	}
	return ConfigFromViper(v)
}

func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendNeo4j, BackendPostgres, BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("store.backend %q is not one of memory, neo4j, postgres, sqlite, badger", c.Store.Backend)
	}
	if c.Store.Backend == BackendPostgres && strings.TrimSpace(c.SQL.PostgresDSN) == "" {
		return errors.New("sql.postgres_dsn is required for the postgres backend")
	}
	if c.Store.Backend == BackendNeo4j && strings.TrimSpace(c.Neo4j.URI) == "" {
		return errors.New("neo4j.uri is required for the neo4j backend")
	}
	if c.Store.MaxLimit <= 0 {
		return errors.New("store.max_limit must be positive")
	}
	if c.Store.DefaultLimit <= 0 || c.Store.DefaultLimit > c.Store.MaxLimit {
		return fmt.Errorf("store.default_limit must be in 1..%d", c.Store.MaxLimit)
	}
	return nil
}
