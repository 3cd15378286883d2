// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported warehouse drivers
const (
	DriverSnowflake = "snowflake"
	DriverPostgres  = "postgres"
	DriverSQLite    = "sqlite"
)

// Config represents the application configuration
type Config struct {
	Source    *SourceConfig
	Warehouse *WarehouseConfig

	// EmptyStringAsNull makes the transformer default blank strings too
	EmptyStringAsNull bool

	// Logging
	LogLevel  string
	LogFormat string
}

// SourceConfig describes the product search endpoint
type SourceConfig struct {
	BaseURL   string
	Timeout   time.Duration
	PageSize  int
	UserAgent string
}

// WarehouseConfig names the destination and the backend that hosts it
type WarehouseConfig struct {
	Driver  string
	Dataset string
	Table   string

	// Load settings
	InsertBatchSize    int
	StrictVerification bool
	OperationTimeout   time.Duration
	MaxVarcharLength   int

	// Backend connection settings; only the one matching Driver is set
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig
	SQLite    *SQLiteConfig
}

// StagingTable returns the scratch table name for the configured destination
func (w *WarehouseConfig) StagingTable() string {
	return w.Table + "_staging"
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Source:            LoadSourceConfig(),
		EmptyStringAsNull: getEnvAsBool("EMPTY_STRING_AS_NULL", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	whConfig, err := LoadWarehouseConfig()
	if err != nil {
		return nil, errors.New("failed to load warehouse configuration: " + err.Error())
	}
	cfg.Warehouse = whConfig

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadSourceConfig loads the product source settings, all of which have defaults
func LoadSourceConfig() *SourceConfig {
	return &SourceConfig{
		BaseURL:   getEnv("SOURCE_BASE_URL", "https://world.openfoodfacts.org/cgi/search.pl"),
		Timeout:   time.Duration(getEnvAsInt("SOURCE_TIMEOUT_SECONDS", 30)) * time.Second,
		PageSize:  getEnvAsInt("SOURCE_PAGE_SIZE", 100),
		UserAgent: getEnv("SOURCE_USER_AGENT", "catalog-ingress/1.0"),
	}
}

// LoadWarehouseConfig loads the destination identifiers and the selected backend
func LoadWarehouseConfig() (*WarehouseConfig, error) {
	dataset := os.Getenv("WAREHOUSE_DATASET")
	if dataset == "" {
		return nil, errors.New("WAREHOUSE_DATASET environment variable is required")
	}

	table := os.Getenv("WAREHOUSE_TABLE")
	if table == "" {
		return nil, errors.New("WAREHOUSE_TABLE environment variable is required")
	}

	cfg := &WarehouseConfig{
		Driver:             strings.ToLower(getEnv("WAREHOUSE_DRIVER", DriverSnowflake)),
		Dataset:            dataset,
		Table:              table,
		InsertBatchSize:    getEnvAsInt("INSERT_BATCH_SIZE", 500),
		StrictVerification: getEnvAsBool("STRICT_VERIFICATION", false),
		OperationTimeout:   time.Duration(getEnvAsInt("WAREHOUSE_OPERATION_TIMEOUT_SECONDS", 300)) * time.Second,
		MaxVarcharLength:   getEnvAsInt("SNOWFLAKE_MAX_VARCHAR_LENGTH", 0),
	}

	var err error
	switch cfg.Driver {
	case DriverSnowflake:
		cfg.Snowflake, err = LoadSnowflakeConfig()
	case DriverPostgres:
		cfg.Postgres, err = LoadPostgresConfig()
	case DriverSQLite:
		cfg.SQLite = LoadSQLiteConfig()
	default:
		return nil, errors.New("unsupported WAREHOUSE_DRIVER: " + cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Source == nil {
		return errors.New("source configuration is required")
	}

	if c.Source.BaseURL == "" {
		return errors.New("source base URL is required")
	}

	if c.Source.Timeout <= 0 {
		return errors.New("source timeout must be positive")
	}

	if c.Source.PageSize <= 0 {
		return errors.New("page size must be positive")
	}

	if c.Warehouse == nil {
		return errors.New("warehouse configuration is required")
	}

	if c.Warehouse.InsertBatchSize <= 0 {
		return errors.New("insert batch size must be positive")
	}

	if c.Warehouse.OperationTimeout <= 0 {
		return errors.New("warehouse operation timeout must be positive")
	}

	if c.Warehouse.MaxVarcharLength < 0 {
		return errors.New("max varchar length cannot be negative")
	}

	if c.Warehouse.Snowflake == nil && c.Warehouse.Postgres == nil && c.Warehouse.SQLite == nil {
		return errors.New("warehouse connection configuration is required")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
