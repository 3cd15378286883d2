// pkg/model/metadata.go
package model

import "strings"

// Logical column types produced by schema inference
const (
	TypeString    = "STRING"
	TypeInteger   = "INTEGER"
	TypeFloat     = "FLOAT"
	TypeBoolean   = "BOOLEAN"
	TypeTimestamp = "TIMESTAMP"
)

// TableMetadata contains the structure information for a warehouse table
type TableMetadata struct {
	Dataset string   // Dataset (schema) name
	Table   string   // Table name
	Columns []Column // Column definitions, in insert order
}

// Column represents metadata about a warehouse column
type Column struct {
	Name     string // Column name
	DataType string // Logical type (STRING, INTEGER, TIMESTAMP, ...)
	Nullable bool   // Whether column allows NULL values
	Field    []int  // Struct field index the value is read from
}

// GetColumnByName returns a column by name (case-insensitive)
// Returns nil if column not found
func (tm *TableMetadata) GetColumnByName(name string) *Column {
	for i, col := range tm.Columns {
		if strings.EqualFold(col.Name, name) {
			return &tm.Columns[i]
		}
	}
	return nil
}

// ColumnNames returns column names in declaration order
func (tm *TableMetadata) ColumnNames() []string {
	names := make([]string, len(tm.Columns))
	for i, col := range tm.Columns {
		names[i] = col.Name
	}
	return names
}
