// pkg/connector/warehouse.go
package connector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/converter"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

func init() {
	// sqlx does not know these drivers; both use ? placeholders
	sqlx.BindDriver("snowflake", sqlx.QUESTION)
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// DefaultOperationTimeout bounds each warehouse statement
const DefaultOperationTimeout = 5 * time.Minute

// Warehouse runs table-level operations against a connected backend
type Warehouse struct {
	conn      DatabaseConnector
	db        *sqlx.DB
	dialect   Dialect
	converter *converter.TypeConverter
	logger    *zap.Logger

	batchSize int
	timeout   time.Duration
}

// NewWarehouse wraps a connector. batchSize caps the rows per INSERT statement.
func NewWarehouse(conn DatabaseConnector, tc *converter.TypeConverter, batchSize int, logger *zap.Logger) *Warehouse {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Warehouse{
		conn:      conn,
		db:        sqlx.NewDb(conn.DB(), conn.DriverName()),
		dialect:   conn.Dialect(),
		converter: tc,
		logger:    logger.Named("warehouse"),
		batchSize: batchSize,
		timeout:   DefaultOperationTimeout,
	}
}

// SetOperationTimeout overrides the per-statement timeout
func (w *Warehouse) SetOperationTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.timeout = timeout
	}
}

// Dialect returns the backend dialect
func (w *Warehouse) Dialect() Dialect {
	return w.dialect
}

// DB returns the sqlx handle for ad hoc queries
func (w *Warehouse) DB() *sqlx.DB {
	return w.db
}

// Converter returns the type converter used for column mapping
func (w *Warehouse) Converter() *converter.TypeConverter {
	return w.converter
}

// Close releases the underlying connection
func (w *Warehouse) Close() error {
	return w.conn.Close()
}

// EnsureDataset creates the dataset if it does not exist
func (w *Warehouse) EnsureDataset(ctx context.Context, dataset string) error {
	stmt := w.dialect.CreateDatasetSQL(dataset)
	if stmt == "" {
		return nil
	}

	if _, err := w.conn.ExecWithTimeout(ctx, stmt, w.timeout); err != nil {
		// Concurrent creators can race past IF NOT EXISTS on PostgreSQL
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create dataset %s: %w", dataset, err)
	}

	w.logger.Debug("Dataset ready", zap.String("dataset", dataset))
	return nil
}

// EnsureTable creates the table described by metadata when it is missing
func (w *Warehouse) EnsureTable(ctx context.Context, metadata *model.TableMetadata) error {
	defs, err := w.converter.GenerateColumnDefinitions(metadata, w.dialect.Driver())
	if err != nil {
		return err
	}

	ref := refOf(metadata)
	if _, err := w.conn.ExecWithTimeout(ctx, w.dialect.CreateTableIfNotExistsSQL(ref, defs), w.timeout); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "already exists") {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", ref, err)
	}
	return nil
}

// ReplaceTable recreates the table described by metadata and inserts rows,
// whose values are ordered like metadata.Columns. On backends with
// transactional DDL the whole replacement commits or rolls back together.
func (w *Warehouse) ReplaceTable(ctx context.Context, metadata *model.TableMetadata, rows [][]interface{}) error {
	defs, err := w.converter.GenerateColumnDefinitions(metadata, w.dialect.Driver())
	if err != nil {
		return err
	}

	ref := refOf(metadata)
	stmts := w.dialect.RecreateTableSQL(ref, defs)
	inserts := w.insertStatements(metadata, rows)

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := time.Now()
	if w.dialect.TransactionalDDL() {
		err = w.inTx(opCtx, func(tx *sqlx.Tx) error {
			return execAll(opCtx, tx, stmts, inserts)
		})
	} else {
		err = execAll(opCtx, w.db, stmts, inserts)
	}
	if err != nil {
		return fmt.Errorf("failed to replace table %s: %w", ref, err)
	}

	w.logger.Info("Table replaced",
		zap.String("table", ref.String()),
		zap.Int("rows", len(rows)),
		zap.Int("insert_statements", len(inserts)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// CopyReplace replaces dst with the definition and contents of src
func (w *Warehouse) CopyReplace(ctx context.Context, src, dst TableRef) error {
	stmts := w.dialect.CopyReplaceSQL(src, dst)

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var err error
	if len(stmts) > 1 {
		err = w.inTx(opCtx, func(tx *sqlx.Tx) error {
			return execAll(opCtx, tx, stmts, nil)
		})
	} else {
		err = execAll(opCtx, w.db, stmts, nil)
	}
	if err != nil {
		return fmt.Errorf("failed to copy %s into %s: %w", src, dst, err)
	}

	w.logger.Info("Table swapped", zap.String("source", src.String()), zap.String("destination", dst.String()))
	return nil
}

// TableExists reports whether ref names an existing table
func (w *Warehouse) TableExists(ctx context.Context, ref TableRef) (bool, error) {
	query, args := w.dialect.TableExistsSQL(ref)

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var count int64
	if err := w.db.GetContext(opCtx, &count, w.db.Rebind(query), args...); err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", ref, err)
	}
	return count > 0, nil
}

// CountRows returns the number of rows in ref
func (w *Warehouse) CountRows(ctx context.Context, ref TableRef) (int64, error) {
	return w.count(ctx, ref, "SELECT COUNT(*) FROM "+w.dialect.QualifiedName(ref))
}

// CountDistinct returns the number of distinct non-null values of column in ref
func (w *Warehouse) CountDistinct(ctx context.Context, ref TableRef, column string) (int64, error) {
	query := fmt.Sprintf("SELECT COUNT(DISTINCT %s) FROM %s",
		converter.QuoteIdentifier(column), w.dialect.QualifiedName(ref))
	return w.count(ctx, ref, query)
}

func (w *Warehouse) count(ctx context.Context, ref TableRef, query string) (int64, error) {
	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var count int64
	if err := w.db.GetContext(opCtx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", ref, err)
	}
	return count, nil
}

// AppendNamed inserts rows into an existing table through named parameters
func (w *Warehouse) AppendNamed(ctx context.Context, metadata *model.TableMetadata, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}

	names := metadata.ColumnNames()
	quoted := make([]string, len(names))
	params := make([]string, len(names))
	for i, name := range names {
		quoted[i] = converter.QuoteIdentifier(name)
		params[i] = ":" + name
	}

	ref := refOf(metadata)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		w.dialect.QualifiedName(ref), strings.Join(quoted, ", "), strings.Join(params, ", "))

	args := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		arg := make(map[string]interface{}, len(names))
		for j, name := range names {
			arg[name] = row[j]
		}
		args[i] = arg
	}

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	for _, arg := range args {
		if _, err := w.db.NamedExecContext(opCtx, query, arg); err != nil {
			return fmt.Errorf("failed to append to %s: %w", ref, err)
		}
	}
	return nil
}

// SelectLatest reads up to limit rows of the table described by metadata
// into dest, newest first by orderBy
func (w *Warehouse) SelectLatest(ctx context.Context, dest interface{}, metadata *model.TableMetadata, orderBy string, limit int) error {
	names := metadata.ColumnNames()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = converter.QuoteIdentifier(name)
	}

	ref := refOf(metadata)
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s DESC LIMIT %d",
		strings.Join(quoted, ", "), w.dialect.QualifiedName(ref), converter.QuoteIdentifier(orderBy), limit)

	opCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.db.SelectContext(opCtx, dest, query); err != nil {
		return fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return nil
}

type statement struct {
	query string
	args  []interface{}
}

// insertStatements splits rows into multi-row INSERT statements of at most batchSize rows
func (w *Warehouse) insertStatements(metadata *model.TableMetadata, rows [][]interface{}) []statement {
	if len(rows) == 0 {
		return nil
	}

	names := metadata.ColumnNames()
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = converter.QuoteIdentifier(name)
	}
	head := fmt.Sprintf("INSERT INTO %s (%s) VALUES ",
		w.dialect.QualifiedName(refOf(metadata)), strings.Join(quoted, ", "))
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ") + ")"

	stmts := make([]statement, 0, (len(rows)+w.batchSize-1)/w.batchSize)
	for start := 0; start < len(rows); start += w.batchSize {
		end := start + w.batchSize
		if end > len(rows) {
			end = len(rows)
		}

		tuples := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*len(names))
		for _, row := range rows[start:end] {
			tuples = append(tuples, tuple)
			args = append(args, row...)
		}

		stmts = append(stmts, statement{
			query: w.db.Rebind(head + strings.Join(tuples, ", ")),
			args:  args,
		})
	}
	return stmts
}

func (w *Warehouse) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			w.logger.Warn("Rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func execAll(ctx context.Context, ex sqlx.ExecerContext, ddl []string, inserts []statement) error {
	for _, stmt := range ddl {
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	for _, stmt := range inserts {
		if _, err := ex.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			return err
		}
	}
	return nil
}

func refOf(metadata *model.TableMetadata) TableRef {
	return TableRef{Dataset: metadata.Dataset, Table: metadata.Table}
}
