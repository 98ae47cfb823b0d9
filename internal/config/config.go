package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageFile     = "file"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Checkout push policies
const (
	PushBestEffort   = "best_effort"
	PushAllOrNothing = "all_or_nothing"
)

// Checkout push modes. PushAdd adds every line; PushReconcile sets the
// quantity of lines the remote cart already holds and adds the rest.
const (
	PushAdd       = "add"
	PushReconcile = "reconcile"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	API         APIConfig
	Storage     StorageConfig
	Checkout    CheckoutConfig
	Console     ConsoleConfig
}

type APIConfig struct {
	BaseURL string
	// Timeout of zero leaves the transport default in place.
	Timeout time.Duration
}

type StorageConfig struct {
	Driver    string
	Path      string
	Namespace string
	Redis     RedisConfig
	Database  DatabaseConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds a lib/pq connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type CheckoutConfig struct {
	PushPolicy string
	PushMode   string
	TaxRate    decimal.Decimal
}

type ConsoleConfig struct {
	KeyHash string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("NEXCART_API_URL", "http://localhost:8000/api")
	viper.SetDefault("PORT", "8090")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STORAGE_DRIVER", StorageFile)
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CHECKOUT_PUSH_POLICY", PushBestEffort)
	viper.SetDefault("CHECKOUT_PUSH_MODE", PushAdd)

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	timeout, err := time.ParseDuration(getEnvOrViper("HTTP_TIMEOUT", "0s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrViper("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	taxRate, err := decimal.NewFromString(getEnvOrViper("CHECKOUT_TAX_RATE", "0.18"))
	if err != nil {
		return nil, fmt.Errorf("invalid CHECKOUT_TAX_RATE: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8090"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		API: APIConfig{
			BaseURL: strings.TrimSuffix(getEnvOrViper("NEXCART_API_URL", "http://localhost:8000/api"), "/"),
			Timeout: timeout,
		},
		Storage: StorageConfig{
			Driver:    getEnvOrViper("STORAGE_DRIVER", StorageFile),
			Path:      getEnvOrViper("STORAGE_PATH", defaultStoragePath()),
			Namespace: getEnvOrViper("STORAGE_NAMESPACE", "nexcart"),
			Redis: RedisConfig{
				Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
				Password: getEnvOrViper("REDIS_PASSWORD", ""),
				DB:       redisDB,
			},
			Database: DatabaseConfig{
				Host:     getEnvOrViper("DB_HOST", "localhost"),
				Port:     getEnvOrViper("DB_PORT", "5432"),
				User:     getEnvOrViper("DB_USER", "postgres"),
				Password: getEnvOrViper("DB_PASSWORD", "postgres"),
				DBName:   getEnvOrViper("DB_NAME", "nexcart"),
				SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
			},
		},
		Checkout: CheckoutConfig{
			PushPolicy: getEnvOrViper("CHECKOUT_PUSH_POLICY", PushBestEffort),
			PushMode:   getEnvOrViper("CHECKOUT_PUSH_MODE", PushAdd),
			TaxRate:    taxRate,
		},
		Console: ConsoleConfig{
			KeyHash: getEnvOrViper("CONSOLE_KEY_HASH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks values Load cannot default its way out of
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("NEXCART_API_URL is required")
	}
	switch c.Storage.Driver {
	case StorageFile, StorageRedis, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Checkout.PushPolicy {
	case PushBestEffort, PushAllOrNothing:
	default:
		return fmt.Errorf("unknown CHECKOUT_PUSH_POLICY %q", c.Checkout.PushPolicy)
	}
	switch c.Checkout.PushMode {
	case PushAdd, PushReconcile:
	default:
		return fmt.Errorf("unknown CHECKOUT_PUSH_MODE %q", c.Checkout.PushMode)
	}
	if c.Checkout.TaxRate.IsNegative() {
		return fmt.Errorf("CHECKOUT_TAX_RATE must not be negative")
	}
	return nil
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".nexcart", "storage.json")
	}
	return filepath.Join(home, ".nexcart", "storage.json")
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
