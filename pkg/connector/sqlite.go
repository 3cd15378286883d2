// pkg/connector/sqlite.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/David-Botos/catalog-ingress/pkg/config"
)

// SQLiteConnector implements the DatabaseConnector interface for a local
// SQLite file, used for development runs and tests
type SQLiteConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.SQLiteConfig
}

// NewSQLiteConnector opens the SQLite file, creating it if needed
func NewSQLiteConnector(ctx context.Context, cfg *config.SQLiteConfig) (*SQLiteConnector, error) {
	logger := zap.L().Named("sqlite-connector")
	logger.Info("Opening SQLite warehouse", zap.String("path", cfg.Path))

	db, err := sql.Open("sqlite", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite connection: %w", err)
	}

	// A single connection serializes writers and keeps transactions simple
	ApplyConnectionSettings(db, 1, 1, 0, 0)

	if err := PingWithTimeout(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	connector := &SQLiteConnector{
		db:     db,
		logger: logger,
		cfg:    cfg,
	}

	LogConnectionStats(logger, cfg.Path, db)
	return connector, nil
}

// DB returns the underlying database connection
func (c *SQLiteConnector) DB() *sql.DB {
	return c.db
}

// DriverName returns the modernc driver name
func (c *SQLiteConnector) DriverName() string {
	return "sqlite"
}

// Dialect returns the SQLite dialect
func (c *SQLiteConnector) Dialect() Dialect {
	return SQLiteDialect{}
}

// Validate checks the file is a writable SQLite database
func (c *SQLiteConnector) Validate() error {
	var version string
	if err := c.db.QueryRow("SELECT sqlite_version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query SQLite version: %w", err)
	}

	var readOnly int
	if err := c.db.QueryRow("PRAGMA query_only").Scan(&readOnly); err != nil {
		return fmt.Errorf("failed to query SQLite mode: %w", err)
	}
	if readOnly != 0 {
		return fmt.Errorf("SQLite database %s is read-only", c.cfg.Path)
	}

	c.logger.Info("SQLite warehouse validated",
		zap.String("path", c.cfg.Path),
		zap.String("version", version))
	return nil
}

// Close closes the database connection
func (c *SQLiteConnector) Close() error {
	c.logger.Info("Closing SQLite connection")
	LogConnectionStats(c.logger, c.cfg.Path, c.db)
	return c.db.Close()
}

// ExecWithTimeout executes a statement with a timeout
func (c *SQLiteConnector) ExecWithTimeout(
	ctx context.Context,
	query string,
	timeout time.Duration,
	args ...interface{},
) (sql.Result, error) {
	return execWithTimeout(ctx, c.db, query, timeout, args...)
}
