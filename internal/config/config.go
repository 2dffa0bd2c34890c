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

// ErrMissingPaymentKey is returned when the payment provider token is not configured.
var ErrMissingPaymentKey = errors.New("MONOBANK_API_KEY is required")

// Config captures runtime configuration for the API service.
type Config struct {
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Kafka     KafkaConfig
	Telemetry TelemetryConfig
	Service   ServiceConfig
	Payment   PaymentConfig
}

type HTTPConfig struct {
	Port          int
	MetricsPath   string
	ShutdownGrace int

	// IdempotencyTTL bounds how long a create-order response is replayed. Zero keeps it forever.
	IdempotencyTTL time.Duration
}

type DatabaseConfig struct {
	Driver         string
	URL            string
	AutoMigrate    bool
	MigrationsPath string
}

type KafkaConfig struct {
	Brokers     []string
	TopicPrefix string
}

type TelemetryConfig struct {
	LogLevel      string
	OTelEndpoint  string
	EnableTracing bool
	EnableMetrics bool
	SampleRate    float64
}

type ServiceConfig struct {
	Name        string
	Version     string
	Environment string
}

// PaymentConfig describes how the service talks to the payment provider.
type PaymentConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	// KeyTTL controls signing key caching. Zero fetches the key on every callback.
	KeyTTL     time.Duration
	WebhookURL string
	// TrustForwardedProto lets X-Forwarded-Proto pick the scheme of a derived
	// webhook URL. Enable it only behind a proxy that sets the header.
	TrustForwardedProto bool
}

const (
	defaultHTTPPort         = 8080
	defaultMetricsPath      = "/metrics"
	defaultShutdownGrace    = 15
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultStorageDriver    = "postgres"
	defaultMigrationsPath   = "migrations"
	defaultAutoMigrate      = true
	defaultServiceName      = "bookstore-api"
	defaultServiceVersion   = "0.1.0"
	defaultEnvironment      = "development"
	defaultLogLevel         = "info"
	defaultOTelSampleRate   = 1.0
	defaultPaymentBaseURL   = "https://api.monobank.ua"
	defaultPaymentTimeout   = 10 * time.Second
	defaultPaymentRetries   = 2
	defaultPaymentKeyTTL    = 0
	defaultKafkaTopicPrefix = "bookstore."
)

// Load reads configuration from environment variables, applying defaults when needed.
// Variables from a .env file in the working directory fill in anything not
// already set in the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	httpCfg, err := loadHTTPConfig()
	if err != nil {
		return nil, fmt.Errorf("loading HTTP config: %w", err)
	}

	dbCfg, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("loading database config: %w", err)
	}

	kafkaCfg := loadKafkaConfig()
	telCfg, err := loadTelemetryConfig()
	if err != nil {
		return nil, fmt.Errorf("loading telemetry config: %w", err)
	}

	paymentCfg, err := loadPaymentConfig()
	if err != nil {
		return nil, fmt.Errorf("loading payment config: %w", err)
	}

	serviceCfg := loadServiceConfig()

	return &Config{
		HTTP:      httpCfg,
		Database:  dbCfg,
		Kafka:     kafkaCfg,
		Telemetry: telCfg,
		Service:   serviceCfg,
		Payment:   paymentCfg,
	}, nil
}

func loadHTTPConfig() (HTTPConfig, error) {
	port, err := getIntEnv("API_HTTP_PORT", defaultHTTPPort)
	if err != nil {
		return HTTPConfig{}, err
	}

	shutdownGrace, err := getIntEnv("API_SHUTDOWN_GRACE_SECONDS", defaultShutdownGrace)
	if err != nil {
		return HTTPConfig{}, err
	}

	idempotencyTTL, err := getDurationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL)
	if err != nil {
		return HTTPConfig{}, err
	}

	return HTTPConfig{
		Port:           port,
		MetricsPath:    getEnvOrDefault("API_METRICS_PATH", defaultMetricsPath),
		ShutdownGrace:  shutdownGrace,
		IdempotencyTTL: idempotencyTTL,
	}, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	driver := getEnvOrDefault("STORAGE_DRIVER", defaultStorageDriver)
	if driver != "postgres" && driver != "memory" {
		return DatabaseConfig{}, fmt.Errorf("invalid STORAGE_DRIVER %q: expected postgres or memory", driver)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = buildDatabaseURL()
	}

	return DatabaseConfig{
		Driver:         driver,
		URL:            databaseURL,
		AutoMigrate:    getBoolEnv("AUTO_MIGRATE", defaultAutoMigrate),
		MigrationsPath: getEnvOrDefault("MIGRATIONS_PATH", defaultMigrationsPath),
	}, nil
}

func loadKafkaConfig() KafkaConfig {
	var brokers []string
	if value, ok := os.LookupEnv("KAFKA_BROKERS"); ok && value != "" {
		for _, broker := range strings.Split(value, ",") {
			if broker = strings.TrimSpace(broker); broker != "" {
				brokers = append(brokers, broker)
			}
		}
	}

	return KafkaConfig{
		Brokers:     brokers,
		TopicPrefix: getEnvOrDefault("KAFKA_TOPIC_PREFIX", defaultKafkaTopicPrefix),
	}
}

func loadTelemetryConfig() (TelemetryConfig, error) {
	sampleRate := defaultOTelSampleRate
	if value, ok := os.LookupEnv("OTEL_SAMPLE_RATE"); ok {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return TelemetryConfig{}, fmt.Errorf("invalid OTEL_SAMPLE_RATE: %w", err)
		}
		sampleRate = parsed
	}

	return TelemetryConfig{
		LogLevel:      getEnvOrDefault("LOG_LEVEL", defaultLogLevel),
		OTelEndpoint:  getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		EnableTracing: getBoolEnv("OTEL_ENABLE_TRACING", true),
		EnableMetrics: getBoolEnv("OTEL_ENABLE_METRICS", true),
		SampleRate:    sampleRate,
	}, nil
}

func loadPaymentConfig() (PaymentConfig, error) {
	apiKey := os.Getenv("MONOBANK_API_KEY")
	if apiKey == "" {
		return PaymentConfig{}, ErrMissingPaymentKey
	}

	timeout, err := getDurationEnv("PAYMENT_TIMEOUT", defaultPaymentTimeout)
	if err != nil {
		return PaymentConfig{}, err
	}
	if timeout <= 0 {
		return PaymentConfig{}, errors.New("invalid PAYMENT_TIMEOUT: must be positive")
	}

	keyTTL, err := getDurationEnv("PAYMENT_KEY_TTL", defaultPaymentKeyTTL)
	if err != nil {
		return PaymentConfig{}, err
	}

	maxRetries, err := getIntEnv("PAYMENT_MAX_RETRIES", defaultPaymentRetries)
	if err != nil {
		return PaymentConfig{}, err
	}
	if maxRetries < 0 {
		return PaymentConfig{}, errors.New("invalid PAYMENT_MAX_RETRIES: must not be negative")
	}

	return PaymentConfig{
		APIKey:     apiKey,
		BaseURL:    strings.TrimSuffix(getEnvOrDefault("MONOBANK_BASE_URL", defaultPaymentBaseURL), "/"),
		Timeout:    timeout,
		MaxRetries: maxRetries,
		KeyTTL:     keyTTL,
		WebhookURL: os.Getenv("PAYMENT_WEBHOOK_URL"),

		TrustForwardedProto: getBoolEnv("PAYMENT_TRUST_FORWARDED_PROTO", false),
	}, nil
}

func loadServiceConfig() ServiceConfig {
	return ServiceConfig{
		Name:        getEnvOrDefault("API_SERVICE_NAME", defaultServiceName),
		Version:     getEnvOrDefault("SERVICE_VERSION", defaultServiceVersion),
		Environment: getEnvOrDefault("ENVIRONMENT", defaultEnvironment),
	}
}

func buildDatabaseURL() string {
	host := getEnvOrDefault("DB_HOST", "localhost")
	port := getEnvOrDefault("DB_PORT", "5432")
	user := getEnvOrDefault("DB_USER", "postgres")
	password := getEnvOrDefault("DB_PASSWORD", "postgres")
	dbName := getEnvOrDefault("DB_NAME", "bookstore")
	sslMode := getEnvOrDefault("DB_SSLMODE", "disable")

	maxConns := getEnvOrDefault("DB_MAX_CONNS", "25")
	minConns := getEnvOrDefault("DB_MIN_CONNS", "5")
	maxLifetime := getEnvOrDefault("DB_MAX_CONN_LIFETIME", "5m")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&pool_max_conns=%s&pool_min_conns=%s&pool_max_conn_lifetime=%s",
		user, password, host, port, dbName, sslMode, maxConns, minConns, maxLifetime,
	)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		return value == "true"
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
