// pkg/config/database.go
package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User           string
	Password       string
	Account        string
	Warehouse      string
	Database       string
	Role           string
	Authenticator  gosnowflake.AuthType
	PrivateKeyPath string // Credential location for key-pair (jwt) auth

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Query timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// Statement timeout
	StatementTimeout time.Duration
}

// SQLiteConfig holds the path of a local SQLite warehouse file
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	user := os.Getenv("SNOWFLAKE_USER")
	if user == "" {
		return nil, errors.New("SNOWFLAKE_USER environment variable is required")
	}

	account := os.Getenv("SNOWFLAKE_ACCOUNT")
	if account == "" {
		return nil, errors.New("SNOWFLAKE_ACCOUNT environment variable is required")
	}

	warehouse := os.Getenv("SNOWFLAKE_WAREHOUSE")
	if warehouse == "" {
		return nil, errors.New("SNOWFLAKE_WAREHOUSE environment variable is required")
	}

	database := os.Getenv("SNOWFLAKE_DATABASE")
	if database == "" {
		return nil, errors.New("SNOWFLAKE_DATABASE environment variable is required")
	}

	authenticator := parseAuthenticator(getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake"))

	cfg := &SnowflakeConfig{
		User:           user,
		Password:       os.Getenv("SNOWFLAKE_PASSWORD"),
		Account:        account,
		Warehouse:      warehouse,
		Database:       database,
		Role:           getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator:  authenticator,
		PrivateKeyPath: os.Getenv("SNOWFLAKE_PRIVATE_KEY_PATH"),

		MaxOpenConns:    getEnvAsInt("SNOWFLAKE_MAX_OPEN_CONNS", 4),
		MaxIdleConns:    getEnvAsInt("SNOWFLAKE_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_LIFETIME_SECONDS", 600)) * time.Second,
		ConnMaxIdleTime: time.Duration(getEnvAsInt("SNOWFLAKE_CONN_MAX_IDLE_TIME_SECONDS", 300)) * time.Second,
		QueryTimeout:    time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	switch cfg.Authenticator {
	case gosnowflake.AuthTypeJwt:
		if cfg.PrivateKeyPath == "" {
			return nil, errors.New("SNOWFLAKE_PRIVATE_KEY_PATH is required for jwt authentication")
		}
	case gosnowflake.AuthTypeSnowflake, gosnowflake.AuthTypeUsernamePasswordMFA:
		if cfg.Password == "" {
			return nil, errors.New("SNOWFLAKE_PASSWORD environment variable is required")
		}
	}

	return cfg, nil
}

func parseAuthenticator(authString string) gosnowflake.AuthType {
	switch strings.ToLower(authString) {
	case "oauth":
		return gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		return gosnowflake.AuthTypeExternalBrowser
	case "username_password_mfa":
		return gosnowflake.AuthTypeUsernamePasswordMFA
	case "jwt":
		return gosnowflake.AuthTypeJwt
	case "token":
		return gosnowflake.AuthTypeTokenAccessor
	case "okta":
		return gosnowflake.AuthTypeOkta
	default:
		return gosnowflake.AuthTypeSnowflake
	}
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return nil, errors.New("POSTGRES_USER environment variable is required")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return nil, errors.New("POSTGRES_PASSWORD environment variable is required")
	}

	database := os.Getenv("POSTGRES_DB")
	if database == "" {
		return nil, errors.New("POSTGRES_DB environment variable is required")
	}

	cfg := &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     user,
		Password: password,
		Database: database,
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxOpenConns:     getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 4),
		MaxIdleConns:     getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnMaxIdleTime:  time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_TIME_SECONDS", 600)) * time.Second,
		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}

	return cfg, nil
}

// LoadSQLiteConfig loads the local warehouse settings
func LoadSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:        getEnv("SQLITE_PATH", "catalog.db"),
		BusyTimeout: time.Duration(getEnvAsInt("SQLITE_BUSY_TIMEOUT_MS", 10000)) * time.Millisecond,
	}
}

// DriverConfig builds the gosnowflake configuration, reading the private
// key from disk when key-pair authentication is selected
func (c *SnowflakeConfig) DriverConfig() (*gosnowflake.Config, error) {
	sfConfig := &gosnowflake.Config{
		Account:       c.Account,
		User:          c.User,
		Password:      c.Password,
		Database:      c.Database,
		Warehouse:     c.Warehouse,
		Role:          c.Role,
		Authenticator: c.Authenticator,
	}

	if c.Authenticator == gosnowflake.AuthTypeJwt {
		key, err := readPrivateKey(c.PrivateKeyPath)
		if err != nil {
			return nil, err
		}
		sfConfig.PrivateKey = key
	}

	return sfConfig, nil
}

func readPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in %s", path)
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}

	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key %s is not an RSA key", path)
	}
	return key, nil
}

// ConnectionString returns a formatted PostgreSQL connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

// ConnectionString returns the SQLite DSN with a busy timeout pragma
func (c *SQLiteConfig) ConnectionString() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", c.Path, c.BusyTimeout.Milliseconds())
}
