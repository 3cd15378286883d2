// pkg/loader/loader.go
package loader

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/connector"
	"github.com/David-Botos/catalog-ingress/pkg/converter"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// Warehouse is the set of table operations the loader and audit logger need.
// *connector.Warehouse implements it.
type Warehouse interface {
	Converter() *converter.TypeConverter
	EnsureDataset(ctx context.Context, dataset string) error
	EnsureTable(ctx context.Context, metadata *model.TableMetadata) error
	ReplaceTable(ctx context.Context, metadata *model.TableMetadata, rows [][]interface{}) error
	CopyReplace(ctx context.Context, src, dst connector.TableRef) error
	CountRows(ctx context.Context, ref connector.TableRef) (int64, error)
	CountDistinct(ctx context.Context, ref connector.TableRef, column string) (int64, error)
	AppendNamed(ctx context.Context, metadata *model.TableMetadata, rows [][]interface{}) error
	SelectLatest(ctx context.Context, dest interface{}, metadata *model.TableMetadata, orderBy string, limit int) error
}

// LoadResult describes a completed load
type LoadResult struct {
	RowsLoaded    int64
	VerifiedCount int64
	Verification  *VerificationReport
	Duration      time.Duration
}

// Loader replaces the production table with a batch through a staging table
type Loader struct {
	wh       Warehouse
	verifier *Verifier
	logger   *zap.Logger

	dataset string
	table   string
	staging string
	strict  bool
}

// NewLoader creates a loader for the destination named in cfg
func NewLoader(wh Warehouse, cfg *config.WarehouseConfig, logger *zap.Logger) *Loader {
	logger = logger.Named("loader")
	return &Loader{
		wh:       wh,
		verifier: NewVerifier(wh, logger),
		logger:   logger,
		dataset:  cfg.Dataset,
		table:    cfg.Table,
		staging:  cfg.StagingTable(),
		strict:   cfg.StrictVerification,
	}
}

// Production returns the reference of the table readers query
func (l *Loader) Production() connector.TableRef {
	return connector.TableRef{Dataset: l.dataset, Table: l.table}
}

// Load writes batch to staging, swaps it into production in one statement
// and verifies the result. An empty batch leaves the warehouse untouched.
// Production is never modified unless staging was fully written.
func (l *Loader) Load(ctx context.Context, batch []model.CleanRecord) (*LoadResult, error) {
	start := time.Now()
	result := &LoadResult{}

	if len(batch) == 0 {
		l.logger.Warn("Empty batch, nothing to load")
		return result, nil
	}

	production := l.Production()
	staging := connector.TableRef{Dataset: l.dataset, Table: l.staging}
	logger := l.logger.With(zap.String("table", production.String()), zap.Int("rows", len(batch)))

	logger.Info("Starting load")

	stepStart := time.Now()
	if err := l.wh.EnsureDataset(ctx, l.dataset); err != nil {
		return nil, model.LoadFailed("ensure dataset "+l.dataset, err)
	}
	logger.Debug("Dataset ensured", zap.Duration("duration", time.Since(stepStart)))

	metadata, err := l.wh.Converter().InferMetadata(l.dataset, l.staging, model.CleanRecord{})
	if err != nil {
		return nil, model.LoadFailed("infer staging schema", err)
	}

	rows, err := converter.RowValues(l.wh.Converter(), metadata, batch)
	if err != nil {
		return nil, model.LoadFailed("convert batch", err)
	}

	stepStart = time.Now()
	if err := l.wh.ReplaceTable(ctx, metadata, rows); err != nil {
		return nil, model.LoadFailed("write staging table "+staging.String(), err)
	}
	logger.Info("Staging table written",
		zap.String("staging", staging.String()),
		zap.Duration("duration", time.Since(stepStart)))

	stepStart = time.Now()
	if err := l.wh.CopyReplace(ctx, staging, production); err != nil {
		return nil, model.LoadFailed("swap staging into production", err)
	}
	logger.Info("Production table replaced", zap.Duration("duration", time.Since(stepStart)))

	result.RowsLoaded = int64(len(batch))

	report, err := l.verifier.GenerateVerificationReport(ctx, production, result.RowsLoaded)
	result.Duration = time.Since(start)
	if err != nil {
		logger.Warn("Verification could not run", zap.Error(err))
		if l.strict {
			return result, model.NewError(model.KindVerificationMismatch, "verify", "verification query failed", err)
		}
		return result, nil
	}

	result.Verification = report
	result.VerifiedCount = report.ProductionRows

	if verr := report.Err(); verr != nil {
		logger.Warn("Production table does not match batch",
			zap.Int64("expected", report.ExpectedRows),
			zap.Int64("actual", report.ProductionRows),
			zap.Bool("codes_unique", report.CodesUnique))
		if l.strict {
			return result, verr
		}
	}

	logger.Info("Load complete",
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Int64("verified_count", result.VerifiedCount),
		zap.Duration("duration", result.Duration))

	return result, nil
}
