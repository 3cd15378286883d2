package config

import (
	"testing"
	"time"

	"github.com/snowflakedb/gosnowflake"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigSQLite(t *testing.T) {
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("WAREHOUSE_DATASET", "catalog")
	t.Setenv("WAREHOUSE_TABLE", "products")
	t.Setenv("SQLITE_PATH", "/tmp/wh.db")
	t.Setenv("SOURCE_TIMEOUT_SECONDS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, DriverSQLite, cfg.Warehouse.Driver)
	require.Equal(t, "products_staging", cfg.Warehouse.StagingTable())
	require.Equal(t, 5*time.Second, cfg.Source.Timeout)
	require.Equal(t, 100, cfg.Source.PageSize)
	require.False(t, cfg.Warehouse.StrictVerification)
	require.Equal(t, 5*time.Minute, cfg.Warehouse.OperationTimeout)
	require.False(t, cfg.EmptyStringAsNull)
	require.Zero(t, cfg.Warehouse.MaxVarcharLength)
	require.NotNil(t, cfg.Warehouse.SQLite)
	require.Nil(t, cfg.Warehouse.Snowflake)
	require.Contains(t, cfg.Warehouse.SQLite.ConnectionString(), "file:/tmp/wh.db")
}

func TestLoadConfigWarehouseLimits(t *testing.T) {
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("WAREHOUSE_DATASET", "catalog")
	t.Setenv("WAREHOUSE_TABLE", "products")
	t.Setenv("WAREHOUSE_OPERATION_TIMEOUT_SECONDS", "45")
	t.Setenv("SNOWFLAKE_MAX_VARCHAR_LENGTH", "1024")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, cfg.Warehouse.OperationTimeout)
	require.Equal(t, 1024, cfg.Warehouse.MaxVarcharLength)

	t.Setenv("SNOWFLAKE_MAX_VARCHAR_LENGTH", "-1")
	_, err = LoadConfig()
	require.ErrorContains(t, err, "max varchar length")
}

func TestLoadConfigRequiresDestination(t *testing.T) {
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("WAREHOUSE_DATASET", "")
	t.Setenv("WAREHOUSE_TABLE", "products")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "WAREHOUSE_DATASET")
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("WAREHOUSE_DRIVER", "bigtable")
	t.Setenv("WAREHOUSE_DATASET", "catalog")
	t.Setenv("WAREHOUSE_TABLE", "products")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "unsupported WAREHOUSE_DRIVER")
}

func TestLoadSnowflakeConfigJwtNeedsKeyPath(t *testing.T) {
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy123")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "LOAD_WH")
	t.Setenv("SNOWFLAKE_DATABASE", "CATALOG")
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "jwt")
	t.Setenv("SNOWFLAKE_PRIVATE_KEY_PATH", "")

	_, err := LoadSnowflakeConfig()
	require.ErrorContains(t, err, "SNOWFLAKE_PRIVATE_KEY_PATH")

	t.Setenv("SNOWFLAKE_PRIVATE_KEY_PATH", "/secrets/rsa_key.p8")
	cfg, err := LoadSnowflakeConfig()
	require.NoError(t, err)
	require.Equal(t, gosnowflake.AuthTypeJwt, cfg.Authenticator)
}

func TestLoadSnowflakeConfigPasswordAuth(t *testing.T) {
	t.Setenv("SNOWFLAKE_USER", "loader")
	t.Setenv("SNOWFLAKE_ACCOUNT", "acme-xy123")
	t.Setenv("SNOWFLAKE_WAREHOUSE", "LOAD_WH")
	t.Setenv("SNOWFLAKE_DATABASE", "CATALOG")
	t.Setenv("SNOWFLAKE_AUTHENTICATOR", "")
	t.Setenv("SNOWFLAKE_PASSWORD", "")

	_, err := LoadSnowflakeConfig()
	require.ErrorContains(t, err, "SNOWFLAKE_PASSWORD")

	t.Setenv("SNOWFLAKE_PASSWORD", "secret")
	cfg, err := LoadSnowflakeConfig()
	require.NoError(t, err)

	sfConfig, err := cfg.DriverConfig()
	require.NoError(t, err)
	require.Equal(t, "CATALOG", sfConfig.Database)
	require.Equal(t, gosnowflake.AuthTypeSnowflake, sfConfig.Authenticator)
}

func TestGetEnvAsBoolFallsBack(t *testing.T) {
	t.Setenv("STRICT_VERIFICATION", "not-a-bool")
	require.True(t, getEnvAsBool("STRICT_VERIFICATION", true))

	t.Setenv("STRICT_VERIFICATION", "true")
	require.True(t, getEnvAsBool("STRICT_VERIFICATION", false))
}
