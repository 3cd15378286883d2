// pkg/converter/values.go
package converter

import (
	"fmt"
	"reflect"
	"time"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// RowValues extracts one value row per record, ordered like metadata.Columns
func RowValues[T any](c *TypeConverter, metadata *model.TableMetadata, records []T) ([][]interface{}, error) {
	rows := make([][]interface{}, 0, len(records))

	for i := range records {
		v := reflect.ValueOf(records[i])
		for v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return nil, fmt.Errorf("record %d is nil", i)
			}
			v = v.Elem()
		}
		if v.Kind() != reflect.Struct {
			return nil, fmt.Errorf("record %d: expected struct, got %s", i, v.Kind())
		}

		row := make([]interface{}, len(metadata.Columns))
		for j, col := range metadata.Columns {
			field, err := v.FieldByIndexErr(col.Field)
			if err != nil {
				return nil, fmt.Errorf("record %d, column %s: %w", i, col.Name, err)
			}
			row[j] = c.ConvertValue(field)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// ConvertValue unwraps a struct field into a plain driver value. Nil
// pointers become NULL, named string types become string and timestamps
// are moved to the configured timezone.
func (c *TypeConverter) ConvertValue(field reflect.Value) interface{} {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return nil
		}
		field = field.Elem()
	}

	if field.Type() == timeType {
		return field.Interface().(time.Time).In(c.config.DefaultTimezone)
	}

	switch field.Kind() {
	case reflect.String:
		return field.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int()
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return int64(field.Uint())
	case reflect.Float32, reflect.Float64:
		return field.Float()
	case reflect.Bool:
		return field.Bool()
	default:
		return field.Interface()
	}
}
