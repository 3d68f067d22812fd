package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Драйверы хранилища.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

const (
	defaultMetricsAddr        = ":9090"
	defaultOutboxPollInterval = time.Second
	defaultOutboxBatchSize    = 100
)

// Config описывает настройки запуска приложения. Значения читаются из
// окружения; .env-файл подхватывается для локальной разработки.
type Config struct {
	MetricsAddr string

	// StorageDriver выбирает между in-memory хранилищем и PostgreSQL.
	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	// KafkaBrokers — список брокеров через запятую; пусто отключает Kafka.
	KafkaBrokers string

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// DefaultConfig возвращает конфигурацию для локальной разработки:
// in-memory хранилище, без Kafka.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:         defaultMetricsAddr,
		StorageDriver:       StorageMemory,
		PostgresAutoMigrate: true,
		OutboxPollInterval:  defaultOutboxPollInterval,
		OutboxBatchSize:     defaultOutboxBatchSize,
	}
}

// LoadConfig собирает конфигурацию из переменных окружения.
// Отсутствующий .env не является ошибкой.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	cfg.MetricsAddr = envOrDefault("AGRICONNECT_METRICS_ADDR", cfg.MetricsAddr)
	cfg.StorageDriver = strings.ToLower(envOrDefault("AGRICONNECT_STORAGE", cfg.StorageDriver))
	cfg.PostgresDSN = strings.TrimSpace(os.Getenv("AGRICONNECT_POSTGRES_DSN"))
	cfg.KafkaBrokers = strings.TrimSpace(os.Getenv("AGRICONNECT_KAFKA_BROKERS"))

	var err error
	if cfg.PostgresAutoMigrate, err = envBool("AGRICONNECT_POSTGRES_AUTO_MIGRATE", cfg.PostgresAutoMigrate); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = envDuration("AGRICONNECT_OUTBOX_POLL_INTERVAL", cfg.OutboxPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.OutboxBatchSize, err = envInt("AGRICONNECT_OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность конфигурации.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("AGRICONNECT_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.StorageDriver)
	}

	if c.OutboxPollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive, got %s", c.OutboxPollInterval)
	}
	if c.OutboxBatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive, got %d", c.OutboxBatchSize)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return value, nil
}
