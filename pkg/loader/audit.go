// pkg/loader/audit.go
package loader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/converter"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// AuditLogger appends one row per pipeline run to the audit table
type AuditLogger struct {
	wh       Warehouse
	metadata *model.TableMetadata
	logger   *zap.Logger
	clock    func() time.Time
}

// NewAuditLogger creates an audit logger writing to dataset.pipeline_audit_log
func NewAuditLogger(wh Warehouse, dataset string, logger *zap.Logger) (*AuditLogger, error) {
	metadata, err := wh.Converter().InferMetadata(dataset, model.AuditTable, model.AuditEntry{})
	if err != nil {
		return nil, fmt.Errorf("failed to infer audit schema: %w", err)
	}

	return &AuditLogger{
		wh:       wh,
		metadata: metadata,
		logger:   logger.Named("audit"),
		clock:    time.Now,
	}, nil
}

// LogRun records the outcome of a run. Audit failures never reach the
// caller; they are logged and dropped.
func (a *AuditLogger) LogRun(ctx context.Context, status model.RunStatus, rowsLoaded int64, runErr error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("Audit logging panicked", zap.Any("panic", r))
		}
	}()

	entry := model.NewAuditEntry(a.clock(), status, rowsLoaded, runErr)
	if err := a.Record(ctx, entry); err != nil {
		a.logger.Warn("Failed to write audit entry",
			zap.String("status", string(status)),
			zap.Int64("rows_loaded", rowsLoaded),
			zap.Error(err))
		return
	}

	a.logger.Info("Run audited",
		zap.String("status", string(status)),
		zap.Int64("rows_loaded", rowsLoaded))
}

// Record appends entry, creating the dataset and table on first use
func (a *AuditLogger) Record(ctx context.Context, entry model.AuditEntry) error {
	if err := a.ensure(ctx); err != nil {
		return err
	}

	rows, err := converter.RowValues(a.wh.Converter(), a.metadata, []model.AuditEntry{entry})
	if err != nil {
		return fmt.Errorf("failed to convert audit entry: %w", err)
	}

	return a.wh.AppendNamed(ctx, a.metadata, rows)
}

// Recent returns up to limit entries, newest first
func (a *AuditLogger) Recent(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if err := a.ensure(ctx); err != nil {
		return nil, err
	}

	var entries []model.AuditEntry
	if err := a.wh.SelectLatest(ctx, &entries, a.metadata, "run_timestamp", limit); err != nil {
		return nil, err
	}
	return entries, nil
}

func (a *AuditLogger) ensure(ctx context.Context) error {
	if err := a.wh.EnsureDataset(ctx, a.metadata.Dataset); err != nil {
		return err
	}
	return a.wh.EnsureTable(ctx, a.metadata)
}
