// pkg/pipeline/pipeline.go
package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/loader"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// DefaultCategory is extracted when no category is given
const DefaultCategory = "beverages"

// Extractor fetches raw products for a category
type Extractor interface {
	Extract(ctx context.Context, category string, pageSize int) ([]model.RawRecord, error)
}

// Transformer cleans raw products
type Transformer interface {
	Transform(raw []model.RawRecord) ([]model.CleanRecord, []model.CleaningOperation, error)
}

// Loader writes clean records to the warehouse
type Loader interface {
	Load(ctx context.Context, batch []model.CleanRecord) (*loader.LoadResult, error)
}

// RunLogger records the outcome of each run. It must not fail the run.
type RunLogger interface {
	LogRun(ctx context.Context, status model.RunStatus, rowsLoaded int64, runErr error)
}

// Runner executes extract, transform and load in sequence and audits the outcome
type Runner struct {
	extractor   Extractor
	transformer Transformer
	loader      Loader
	audit       RunLogger
	logger      *zap.Logger
	pageSize    int
}

// NewRunner creates a new pipeline runner
func NewRunner(
	extractor Extractor,
	transformer Transformer,
	loader Loader,
	audit RunLogger,
	pageSize int,
	logger *zap.Logger,
) *Runner {
	return &Runner{
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
		audit:       audit,
		logger:      logger.Named("pipeline"),
		pageSize:    pageSize,
	}
}

// Run executes one pipeline run for category. Every run, successful or not,
// produces exactly one audit entry. A failed stage aborts the run and its
// error is returned classified by kind.
func (r *Runner) Run(ctx context.Context, category string) (*RunResult, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		category = DefaultCategory
	}

	result := NewRunResult(uuid.NewString(), category)
	logger := r.logger.With(zap.String("run_id", result.RunID), zap.String("category", category))
	metrics := NewRunMetrics(result, logger)

	logger.Info("Pipeline run started", zap.Int("page_size", r.pageSize))

	// Extract
	metrics.StartStage(StageExtract, 0)
	raw, err := r.extractor.Extract(ctx, category, r.pageSize)
	metrics.EndStage(StageExtract, int64(len(raw)), err)
	if err != nil {
		return r.fail(ctx, logger, metrics, classify(err, model.SourceUnavailable, "extraction failed"))
	}
	result.Extracted = len(raw)

	// Transform
	metrics.StartStage(StageTransform, int64(len(raw)))
	records, ops, err := r.transformer.Transform(raw)
	metrics.EndStage(StageTransform, int64(len(records)), err)
	if err != nil {
		return r.fail(ctx, logger, metrics, classify(err, model.MalformedInput, "transformation failed"))
	}
	result.Transformed = len(records)
	result.CleaningOperations = len(ops)
	for _, rec := range records {
		result.QualityFlags[rec.QualityFlag]++
	}

	// Load
	metrics.StartStage(StageLoad, int64(len(records)))
	loaded, err := r.loader.Load(ctx, records)
	if loaded != nil {
		result.RowsLoaded = loaded.RowsLoaded
		result.VerifiedCount = loaded.VerifiedCount
	}
	metrics.EndStage(StageLoad, result.RowsLoaded, err)
	if err != nil {
		return r.fail(ctx, logger, metrics, classify(err, model.LoadFailed, "load failed"))
	}

	result.Complete(model.RunSuccess, nil)
	metrics.Complete()
	r.audit.LogRun(context.WithoutCancel(ctx), model.RunSuccess, result.RowsLoaded, nil)

	logger.Info("Pipeline run succeeded",
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Duration("duration", result.Duration()))
	logger.Debug("Run report", zap.String("report", metrics.GenerateMetricsReport()))

	return result, nil
}

// fail audits a failed run and returns its error
func (r *Runner) fail(ctx context.Context, logger *zap.Logger, metrics *RunMetrics, err error) (*RunResult, error) {
	result := metrics.Result
	result.Complete(model.RunFailed, err)
	metrics.Complete()

	// The audit entry is written even when the run was cancelled
	r.audit.LogRun(context.WithoutCancel(ctx), model.RunFailed, result.RowsLoaded, err)

	logger.Error("Pipeline run failed",
		zap.String("kind", model.KindOf(err).String()),
		zap.String("cause", model.CauseOf(err).String()),
		zap.Bool("retryable", model.IsRetryable(err)),
		zap.Int64("rows_loaded", result.RowsLoaded),
		zap.Error(err))
	logger.Debug("Run report", zap.String("report", metrics.GenerateMetricsReport()))

	return result, err
}

// classify leaves classified errors alone and wraps anything else with the stage's kind
func classify(err error, wrap func(msg string, err error) *model.Error, msg string) error {
	if model.KindOf(err) != model.KindUnknown {
		return err
	}
	return wrap(msg, err)
}
