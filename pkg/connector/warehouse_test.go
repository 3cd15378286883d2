package connector

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/converter"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

func openTestWarehouse(t *testing.T, batchSize int) *Warehouse {
	t.Helper()

	conn, err := NewSQLiteConnector(context.Background(), &config.SQLiteConfig{
		Path:        filepath.Join(t.TempDir(), "warehouse.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	require.NoError(t, conn.Validate())

	logger := zaptest.NewLogger(t)
	wh := NewWarehouse(conn, converter.NewTypeConverter(logger), batchSize, logger)
	t.Cleanup(func() { wh.Close() })
	return wh
}

func productRows(t *testing.T, wh *Warehouse, metadata *model.TableMetadata, codes ...string) [][]interface{} {
	t.Helper()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := make([]model.CleanRecord, len(codes))
	for i, code := range codes {
		records[i] = model.CleanRecord{
			Code:            code,
			ProductName:     "Product " + code,
			Categories:      "beverages",
			Quantity:        "unknown",
			Stores:          "unknown",
			Countries:       "unknown",
			NutriscoreGrade: "a",
			ExtractedAt:     now,
			PipelineVersion: model.PipelineVersion,
			QualityFlag:     model.QualityOK,
		}
	}

	rows, err := converter.RowValues(wh.Converter(), metadata, records)
	require.NoError(t, err)
	return rows
}

func TestSQLiteDialectNames(t *testing.T) {
	d := SQLiteDialect{}
	ref := TableRef{Dataset: "catalog", Table: "products"}

	require.Equal(t, `"catalog_products"`, d.QualifiedName(ref))
	require.Empty(t, d.CreateDatasetSQL("catalog"))
	require.Equal(t, []string{
		`DROP TABLE IF EXISTS "catalog_products"`,
		`CREATE TABLE "catalog_products" AS SELECT * FROM "catalog_staging"`,
	}, d.CopyReplaceSQL(TableRef{Dataset: "catalog", Table: "staging"}, ref))
}

func TestSnowflakeDialectSwapIsSingleStatement(t *testing.T) {
	d := SnowflakeDialect{}
	stmts := d.CopyReplaceSQL(
		TableRef{Dataset: "catalog", Table: "products_staging"},
		TableRef{Dataset: "catalog", Table: "products"},
	)

	require.Equal(t, []string{
		`CREATE OR REPLACE TABLE "catalog"."products" AS SELECT * FROM "catalog"."products_staging"`,
	}, stmts)
	require.False(t, d.TransactionalDDL())
}

func TestReplaceTableAndSwap(t *testing.T) {
	ctx := context.Background()
	wh := openTestWarehouse(t, 2)

	metadata, err := wh.Converter().InferMetadata("catalog", "products_staging", model.CleanRecord{})
	require.NoError(t, err)
	require.NoError(t, wh.EnsureDataset(ctx, "catalog"))

	staging := TableRef{Dataset: "catalog", Table: "products_staging"}
	production := TableRef{Dataset: "catalog", Table: "products"}

	// Five rows with a batch size of two spans three insert statements
	rows := productRows(t, wh, metadata, "A1", "A2", "A3", "A4", "A5")
	require.NoError(t, wh.ReplaceTable(ctx, metadata, rows))

	count, err := wh.CountRows(ctx, staging)
	require.NoError(t, err)
	require.EqualValues(t, 5, count)

	exists, err := wh.TableExists(ctx, production)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, wh.CopyReplace(ctx, staging, production))

	count, err = wh.CountRows(ctx, production)
	require.NoError(t, err)
	require.EqualValues(t, 5, count)

	distinct, err := wh.CountDistinct(ctx, production, "code")
	require.NoError(t, err)
	require.EqualValues(t, 5, distinct)

	// A second load replaces rather than appends
	require.NoError(t, wh.ReplaceTable(ctx, metadata, productRows(t, wh, metadata, "B1")))
	require.NoError(t, wh.CopyReplace(ctx, staging, production))

	var codes []string
	require.NoError(t, wh.db.SelectContext(ctx, &codes, `SELECT code FROM "catalog_products"`))
	require.Equal(t, []string{"B1"}, codes)
}

func TestReplaceTableWithNoRowsCreatesEmptyTable(t *testing.T) {
	ctx := context.Background()
	wh := openTestWarehouse(t, 10)

	metadata, err := wh.Converter().InferMetadata("catalog", "empty", model.CleanRecord{})
	require.NoError(t, err)
	require.NoError(t, wh.ReplaceTable(ctx, metadata, nil))

	count, err := wh.CountRows(ctx, TableRef{Dataset: "catalog", Table: "empty"})
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCountRowsMissingTable(t *testing.T) {
	wh := openTestWarehouse(t, 10)

	_, err := wh.CountRows(context.Background(), TableRef{Dataset: "catalog", Table: "missing"})
	require.Error(t, err)
}

func TestAppendNamedAndSelectLatest(t *testing.T) {
	ctx := context.Background()
	wh := openTestWarehouse(t, 10)

	metadata, err := wh.Converter().InferMetadata("catalog", model.AuditTable, model.AuditEntry{})
	require.NoError(t, err)
	require.NoError(t, wh.EnsureTable(ctx, metadata))
	require.NoError(t, wh.EnsureTable(ctx, metadata))

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	entries := []model.AuditEntry{
		model.NewAuditEntry(base, model.RunSuccess, 5, nil),
		model.NewAuditEntry(base.Add(time.Hour), model.RunFailed, 0, model.ErrSourceUnavailable),
	}
	rows, err := converter.RowValues(wh.Converter(), metadata, entries)
	require.NoError(t, err)
	require.NoError(t, wh.AppendNamed(ctx, metadata, rows))

	var latest []model.AuditEntry
	require.NoError(t, wh.SelectLatest(ctx, &latest, metadata, "run_timestamp", 10))
	require.Len(t, latest, 2)

	require.Equal(t, model.RunFailed, latest[0].Status)
	require.Zero(t, latest[0].RowsLoaded)
	require.NotNil(t, latest[0].ErrorMessage)
	require.NotEmpty(t, *latest[0].ErrorMessage)

	require.Equal(t, model.RunSuccess, latest[1].Status)
	require.EqualValues(t, 5, latest[1].RowsLoaded)
	require.Nil(t, latest[1].ErrorMessage)
	require.Equal(t, model.PipelineVersion, latest[1].PipelineVersion)
}

func TestFactoryAppliesWarehouseSettings(t *testing.T) {
	factory := NewConnectorFactory(&config.WarehouseConfig{
		Driver:           config.DriverSQLite,
		Dataset:          "catalog",
		Table:            "products",
		InsertBatchSize:  50,
		OperationTimeout: 30 * time.Second,
		MaxVarcharLength: 256,
		SQLite: &config.SQLiteConfig{
			Path:        filepath.Join(t.TempDir(), "warehouse.db"),
			BusyTimeout: time.Second,
		},
	}, zaptest.NewLogger(t))

	wh, err := factory.CreateWarehouse(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { wh.Close() })

	require.Equal(t, 30*time.Second, wh.timeout)
	require.Equal(t, 50, wh.batchSize)

	colType, err := wh.Converter().MapLogicalType(model.TypeString, config.DriverSnowflake)
	require.NoError(t, err)
	require.Equal(t, "VARCHAR(256)", colType)
}
