// pkg/connector/dialect.go
package connector

import (
	"fmt"
	"strings"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/converter"
)

// TableRef names a table inside a dataset
type TableRef struct {
	Dataset string
	Table   string
}

// String returns dataset.table for logging
func (r TableRef) String() string {
	return r.Dataset + "." + r.Table
}

// Dialect renders the statements the warehouse operations need
type Dialect interface {
	// Driver returns the config driver name used for type mapping
	Driver() string

	// QualifiedName returns the quoted, fully qualified table name
	QualifiedName(ref TableRef) string

	// CreateDatasetSQL returns an idempotent dataset creation statement,
	// or "" when the backend has no dataset concept
	CreateDatasetSQL(dataset string) string

	// RecreateTableSQL drops and recreates a table with the given columns
	RecreateTableSQL(ref TableRef, columnDefs []string) []string

	// CreateTableIfNotExistsSQL creates a table only when it is missing
	CreateTableIfNotExistsSQL(ref TableRef, columnDefs []string) string

	// CopyReplaceSQL replaces dst with a copy of src's definition and contents
	CopyReplaceSQL(src, dst TableRef) []string

	// TableExistsSQL returns a query counting tables that match ref
	TableExistsSQL(ref TableRef) (string, []interface{})

	// TransactionalDDL reports whether DDL participates in transactions
	TransactionalDDL() bool
}

// SnowflakeDialect targets a Snowflake database; datasets are schemas
type SnowflakeDialect struct{}

func (SnowflakeDialect) Driver() string { return config.DriverSnowflake }

func (SnowflakeDialect) QualifiedName(ref TableRef) string {
	return converter.QuoteIdentifier(ref.Dataset) + "." + converter.QuoteIdentifier(ref.Table)
}

func (SnowflakeDialect) CreateDatasetSQL(dataset string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + converter.QuoteIdentifier(dataset)
}

func (d SnowflakeDialect) RecreateTableSQL(ref TableRef, columnDefs []string) []string {
	return []string{
		fmt.Sprintf("CREATE OR REPLACE TABLE %s (\n\t%s\n)", d.QualifiedName(ref), strings.Join(columnDefs, ",\n\t")),
	}
}

func (d SnowflakeDialect) CreateTableIfNotExistsSQL(ref TableRef, columnDefs []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", d.QualifiedName(ref), strings.Join(columnDefs, ",\n\t"))
}

// A single CREATE OR REPLACE ... AS SELECT is atomic in Snowflake
func (d SnowflakeDialect) CopyReplaceSQL(src, dst TableRef) []string {
	return []string{
		fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM %s", d.QualifiedName(dst), d.QualifiedName(src)),
	}
}

func (SnowflakeDialect) TableExistsSQL(ref TableRef) (string, []interface{}) {
	return informationSchemaLookup(ref)
}

func (SnowflakeDialect) TransactionalDDL() bool { return false }

// PostgresDialect targets PostgreSQL; datasets are schemas and DDL is transactional
type PostgresDialect struct{}

func (PostgresDialect) Driver() string { return config.DriverPostgres }

func (PostgresDialect) QualifiedName(ref TableRef) string {
	return converter.QuoteIdentifier(ref.Dataset) + "." + converter.QuoteIdentifier(ref.Table)
}

func (PostgresDialect) CreateDatasetSQL(dataset string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + converter.QuoteIdentifier(dataset)
}

func (d PostgresDialect) RecreateTableSQL(ref TableRef, columnDefs []string) []string {
	return dropAndCreate(d.QualifiedName(ref), columnDefs)
}

func (d PostgresDialect) CreateTableIfNotExistsSQL(ref TableRef, columnDefs []string) string {
	return createIfNotExists(d.QualifiedName(ref), columnDefs)
}

func (d PostgresDialect) CopyReplaceSQL(src, dst TableRef) []string {
	return dropAndCopy(d.QualifiedName(src), d.QualifiedName(dst))
}

func (PostgresDialect) TableExistsSQL(ref TableRef) (string, []interface{}) {
	return informationSchemaLookup(ref)
}

func (PostgresDialect) TransactionalDDL() bool { return true }

// SQLiteDialect targets a single SQLite file. SQLite has no schemas, so the
// dataset becomes a table name prefix.
type SQLiteDialect struct{}

func (SQLiteDialect) Driver() string { return config.DriverSQLite }

func (SQLiteDialect) QualifiedName(ref TableRef) string {
	return converter.QuoteIdentifier(ref.Dataset + "_" + ref.Table)
}

func (SQLiteDialect) CreateDatasetSQL(string) string { return "" }

func (d SQLiteDialect) RecreateTableSQL(ref TableRef, columnDefs []string) []string {
	return dropAndCreate(d.QualifiedName(ref), columnDefs)
}

func (d SQLiteDialect) CreateTableIfNotExistsSQL(ref TableRef, columnDefs []string) string {
	return createIfNotExists(d.QualifiedName(ref), columnDefs)
}

func (d SQLiteDialect) CopyReplaceSQL(src, dst TableRef) []string {
	return dropAndCopy(d.QualifiedName(src), d.QualifiedName(dst))
}

func (SQLiteDialect) TableExistsSQL(ref TableRef) (string, []interface{}) {
	return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
		[]interface{}{ref.Dataset + "_" + ref.Table}
}

func (SQLiteDialect) TransactionalDDL() bool { return true }

func dropAndCreate(name string, columnDefs []string) []string {
	return []string{
		"DROP TABLE IF EXISTS " + name,
		fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", name, strings.Join(columnDefs, ",\n\t")),
	}
}

func createIfNotExists(name string, columnDefs []string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", name, strings.Join(columnDefs, ",\n\t"))
}

func dropAndCopy(src, dst string) []string {
	return []string{
		"DROP TABLE IF EXISTS " + dst,
		fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", dst, src),
	}
}

func informationSchemaLookup(ref TableRef) (string, []interface{}) {
	return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?",
		[]interface{}{ref.Dataset, ref.Table}
}
