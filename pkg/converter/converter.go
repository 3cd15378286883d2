// pkg/converter/converter.go
package converter

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

var timeType = reflect.TypeOf(time.Time{})

// TypeConverter infers warehouse schemas from record structs and maps
// them onto the column types of each supported backend
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Timezone applied to timestamp values before they are written
	DefaultTimezone *time.Location
	// Maximum VARCHAR length used for Snowflake string columns (0 = driver default)
	MaxVarcharLength int
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		DefaultTimezone:  time.UTC,
		MaxVarcharLength: 0,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if config.DefaultTimezone == nil {
		config.DefaultTimezone = time.UTC
	}
	return &TypeConverter{
		logger: logger,
		config: config,
	}
}

// InferMetadata derives a table schema from the db-tagged fields of a
// record struct. Pointer fields become nullable columns.
func (c *TypeConverter) InferMetadata(dataset, table string, sample interface{}) (*model.TableMetadata, error) {
	t := reflect.TypeOf(sample)
	if t == nil {
		return nil, errors.New("cannot infer schema from nil sample")
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot infer schema from %s, expected a struct", t.Kind())
	}

	metadata := &model.TableMetadata{Dataset: dataset, Table: table}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		name := strings.Split(field.Tag.Get("db"), ",")[0]
		if name == "" || name == "-" {
			continue
		}

		fieldType := field.Type
		nullable := false
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
			nullable = true
		}

		dataType, err := logicalType(fieldType)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}

		metadata.Columns = append(metadata.Columns, model.Column{
			Name:     name,
			DataType: dataType,
			Nullable: nullable,
			Field:    field.Index,
		})
	}

	if len(metadata.Columns) == 0 {
		return nil, fmt.Errorf("%s has no db-tagged fields", t.Name())
	}

	c.logger.Debug("Inferred table schema",
		zap.String("dataset", dataset),
		zap.String("table", table),
		zap.Strings("columns", metadata.ColumnNames()))

	return metadata, nil
}

func logicalType(t reflect.Type) (string, error) {
	if t == timeType {
		return model.TypeTimestamp, nil
	}

	switch t.Kind() {
	case reflect.String:
		return model.TypeString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return model.TypeInteger, nil
	case reflect.Float32, reflect.Float64:
		return model.TypeFloat, nil
	case reflect.Bool:
		return model.TypeBoolean, nil
	default:
		return "", fmt.Errorf("unsupported field type %s", t)
	}
}

// GenerateColumnDefinitions creates column definitions for the given backend
func (c *TypeConverter) GenerateColumnDefinitions(metadata *model.TableMetadata, driver string) ([]string, error) {
	definitions := make([]string, 0, len(metadata.Columns))

	for _, col := range metadata.Columns {
		colType, err := c.MapLogicalType(col.DataType, driver)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}

		nullability := "NULL"
		if !col.Nullable {
			nullability = "NOT NULL"
		}

		def := fmt.Sprintf("%s %s %s",
			QuoteIdentifier(col.Name),
			colType,
			nullability)

		definitions = append(definitions, def)
	}

	return definitions, nil
}

// QuoteIdentifier properly quotes and escapes an identifier. Snowflake,
// PostgreSQL and SQLite all accept double-quoted identifiers.
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}
