package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	OAuth      OAuthConfig
	RateLimit  RateLimitConfig
	Cache      CacheConfig
	Checkout   CheckoutConfig
	Queue      QueueConfig
	Worker     WorkerConfig
	Kafka      KafkaConfig
	Pagination PaginationConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	Database      string
	Schema        string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrationsDir string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port for the redis client.
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

type OAuthConfig struct {
	AccessTokenExpiry int // in seconds
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type CacheConfig struct {
	ListTTL     time.Duration
	RetrieveTTL time.Duration
}

type CheckoutConfig struct {
	Timeout time.Duration
}

type QueueConfig struct {
	Name string
}

type WorkerConfig struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	DequeueTimeout time.Duration
	MetricsPort    string
	PurgeInterval  time.Duration
}

type KafkaConfig struct {
	Brokers       string
	SaleTopic     string
	RelayInterval time.Duration
	BatchSize     int
}

type PaginationConfig struct {
	PageSize    int
	MaxPageSize int
}

func Load() *Config {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: no .env file loaded: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "")
	viper.SetDefault("REQUEST_TIMEOUT", "15s")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 10)
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("OAUTH_ACCESS_TOKEN_EXPIRY", 36000)
	viper.SetDefault("RATE_LIMIT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")
	viper.SetDefault("CACHE_LIST_TTL", "60s")
	viper.SetDefault("CACHE_RETRIEVE_TTL", "30s")
	viper.SetDefault("CHECKOUT_TIMEOUT", "5s")
	viper.SetDefault("QUEUE_NAME", "bookstore:tasks")
	viper.SetDefault("WORKER_MAX_ATTEMPTS", 3)
	viper.SetDefault("WORKER_BASE_BACKOFF", "500ms")
	viper.SetDefault("WORKER_DEQUEUE_TIMEOUT", "5s")
	viper.SetDefault("WORKER_METRICS_PORT", "9091")
	viper.SetDefault("TOKEN_PURGE_INTERVAL", "1h")
	viper.SetDefault("KAFKA_BROKERS", "")
	viper.SetDefault("KAFKA_SALE_TOPIC", "bookstore.sales")
	viper.SetDefault("OUTBOX_RELAY_INTERVAL", "1s")
	viper.SetDefault("OUTBOX_BATCH_SIZE", 50)
	viper.SetDefault("PAGE_SIZE", 10)
	viper.SetDefault("MAX_PAGE_SIZE", 100)

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitCSV(viper.GetString("CORS_ALLOWED_ORIGINS")),
			RequestTimeout: viper.GetDuration("REQUEST_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Host:          viper.GetString("DB_HOST"),
			Port:          viper.GetString("DB_PORT"),
			User:          viper.GetString("DB_USER"),
			Password:      viper.GetString("DB_PASSWORD"),
			Database:      viper.GetString("DB_DATABASE"),
			Schema:        viper.GetString("DB_SCHEMA"),
			MaxOpenConns:  viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:  viper.GetInt("DB_MAX_IDLE_CONNS"),
			MigrationsDir: viper.GetString("DB_MIGRATIONS_DIR"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		OAuth: OAuthConfig{
			AccessTokenExpiry: viper.GetInt("OAUTH_ACCESS_TOKEN_EXPIRY"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
		Cache: CacheConfig{
			ListTTL:     viper.GetDuration("CACHE_LIST_TTL"),
			RetrieveTTL: viper.GetDuration("CACHE_RETRIEVE_TTL"),
		},
		Checkout: CheckoutConfig{
			Timeout: viper.GetDuration("CHECKOUT_TIMEOUT"),
		},
		Queue: QueueConfig{
			Name: viper.GetString("QUEUE_NAME"),
		},
		Worker: WorkerConfig{
			MaxAttempts:    viper.GetInt("WORKER_MAX_ATTEMPTS"),
			BaseBackoff:    viper.GetDuration("WORKER_BASE_BACKOFF"),
			DequeueTimeout: viper.GetDuration("WORKER_DEQUEUE_TIMEOUT"),
			MetricsPort:    viper.GetString("WORKER_METRICS_PORT"),
			PurgeInterval:  viper.GetDuration("TOKEN_PURGE_INTERVAL"),
		},
		Kafka: KafkaConfig{
			Brokers:       viper.GetString("KAFKA_BROKERS"),
			SaleTopic:     viper.GetString("KAFKA_SALE_TOPIC"),
			RelayInterval: viper.GetDuration("OUTBOX_RELAY_INTERVAL"),
			BatchSize:     viper.GetInt("OUTBOX_BATCH_SIZE"),
		},
		Pagination: PaginationConfig{
			PageSize:    viper.GetInt("PAGE_SIZE"),
			MaxPageSize: viper.GetInt("MAX_PAGE_SIZE"),
		},
	}
}

// IsDevelopment reports whether the server runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
