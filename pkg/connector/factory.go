// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/converter"
)

// ConnectorFactory creates warehouse connectors
type ConnectorFactory struct {
	cfg    *config.WarehouseConfig
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.WarehouseConfig, logger *zap.Logger) *ConnectorFactory {
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateConnector opens the backend selected by the configured driver
func (f *ConnectorFactory) CreateConnector(ctx context.Context) (DatabaseConnector, error) {
	f.logger.Info("Creating warehouse connector", zap.String("driver", f.cfg.Driver))

	var (
		conn DatabaseConnector
		err  error
	)
	switch f.cfg.Driver {
	case config.DriverSnowflake:
		conn, err = NewSnowflakeConnector(ctx, f.cfg.Snowflake)
	case config.DriverPostgres:
		conn, err = NewPostgresConnector(ctx, f.cfg.Postgres)
	case config.DriverSQLite:
		conn, err = NewSQLiteConnector(ctx, f.cfg.SQLite)
	default:
		return nil, fmt.Errorf("unsupported warehouse driver %q", f.cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s connector: %w", f.cfg.Driver, err)
	}

	if err := conn.Validate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("warehouse validation failed: %w", err)
	}

	return conn, nil
}

// CreateWarehouse opens the configured backend and wraps it in a Warehouse
func (f *ConnectorFactory) CreateWarehouse(ctx context.Context) (*Warehouse, error) {
	conn, err := f.CreateConnector(ctx)
	if err != nil {
		return nil, err
	}

	tcConfig := converter.DefaultConfig()
	tcConfig.MaxVarcharLength = f.cfg.MaxVarcharLength
	tc := converter.NewTypeConverterWithConfig(f.logger, tcConfig)

	wh := NewWarehouse(conn, tc, f.cfg.InsertBatchSize, f.logger)
	wh.SetOperationTimeout(f.cfg.OperationTimeout)
	return wh, nil
}
