// pkg/converter/mapping.go
package converter

import (
	"fmt"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

var postgresTypes = map[string]string{
	model.TypeString:    "TEXT",
	model.TypeInteger:   "BIGINT",
	model.TypeFloat:     "DOUBLE PRECISION",
	model.TypeBoolean:   "BOOLEAN",
	model.TypeTimestamp: "TIMESTAMP",
}

var sqliteTypes = map[string]string{
	model.TypeString:    "TEXT",
	model.TypeInteger:   "INTEGER",
	model.TypeFloat:     "REAL",
	model.TypeBoolean:   "BOOLEAN",
	model.TypeTimestamp: "TIMESTAMP",
}

// MapLogicalType converts a logical column type to the backend's column type
func (c *TypeConverter) MapLogicalType(logical, driver string) (string, error) {
	switch driver {
	case config.DriverSnowflake:
		return c.snowflakeType(logical)
	case config.DriverPostgres:
		return lookupType(postgresTypes, logical, driver)
	case config.DriverSQLite:
		return lookupType(sqliteTypes, logical, driver)
	default:
		return "", fmt.Errorf("unknown warehouse driver: %s", driver)
	}
}

func (c *TypeConverter) snowflakeType(logical string) (string, error) {
	switch logical {
	case model.TypeString:
		if c.config.MaxVarcharLength > 0 {
			return fmt.Sprintf("VARCHAR(%d)", c.config.MaxVarcharLength), nil
		}
		return "VARCHAR", nil
	case model.TypeInteger:
		return "NUMBER(38,0)", nil
	case model.TypeFloat:
		return "FLOAT", nil
	case model.TypeBoolean:
		return "BOOLEAN", nil
	case model.TypeTimestamp:
		return "TIMESTAMP_NTZ", nil
	default:
		return "", fmt.Errorf("unknown logical type %s for snowflake", logical)
	}
}

func lookupType(types map[string]string, logical, driver string) (string, error) {
	t, ok := types[logical]
	if !ok {
		return "", fmt.Errorf("unknown logical type %s for %s", logical, driver)
	}
	return t, nil
}
