// pkg/loader/verifier.go
package loader

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/connector"
	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// rowCounter is the part of the warehouse the verifier reads
type rowCounter interface {
	CountRows(ctx context.Context, ref connector.TableRef) (int64, error)
	CountDistinct(ctx context.Context, ref connector.TableRef, column string) (int64, error)
}

// VerificationReport contains the results of a post-load check
type VerificationReport struct {
	Dataset          string
	Table            string
	VerificationTime time.Time
	ExpectedRows     int64
	ProductionRows   int64
	DistinctCodes    int64
	RowCountMatches  bool
	CodesUnique      bool
	Duration         time.Duration
}

// Err returns a VerificationMismatch when the row count is off
func (r *VerificationReport) Err() error {
	if r.RowCountMatches {
		return nil
	}
	return model.VerificationMismatch(r.ExpectedRows, r.ProductionRows)
}

// Verifier checks the production table against the batch that was loaded
type Verifier struct {
	wh     rowCounter
	logger *zap.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(wh rowCounter, logger *zap.Logger) *Verifier {
	return &Verifier{
		wh:     wh,
		logger: logger,
	}
}

// VerifyRowCount compares the table's row count with the expected count
func (v *Verifier) VerifyRowCount(
	ctx context.Context,
	ref connector.TableRef,
	expected int64,
) (bool, int64, error) {
	v.logger.Debug("Verifying row count", zap.String("table", ref.String()))

	actual, err := v.wh.CountRows(ctx, ref)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count production rows: %w", err)
	}

	matches := actual == expected
	if matches {
		v.logger.Info("Row count verification successful",
			zap.String("table", ref.String()),
			zap.Int64("count", actual))
	} else {
		v.logger.Warn("Row count mismatch",
			zap.String("table", ref.String()),
			zap.Int64("expectedCount", expected),
			zap.Int64("actualCount", actual),
			zap.Int64("difference", expected-actual))
	}

	return matches, actual, nil
}

// GenerateVerificationReport checks the row count and that every code is unique
func (v *Verifier) GenerateVerificationReport(
	ctx context.Context,
	ref connector.TableRef,
	expected int64,
) (*VerificationReport, error) {
	startTime := time.Now()
	report := &VerificationReport{
		Dataset:          ref.Dataset,
		Table:            ref.Table,
		VerificationTime: startTime,
		ExpectedRows:     expected,
	}

	matches, actual, err := v.VerifyRowCount(ctx, ref, expected)
	if err != nil {
		return nil, err
	}
	report.RowCountMatches = matches
	report.ProductionRows = actual

	distinct, err := v.wh.CountDistinct(ctx, ref, model.FieldCode)
	if err != nil {
		return nil, fmt.Errorf("failed to count distinct codes: %w", err)
	}
	report.DistinctCodes = distinct
	report.CodesUnique = distinct == actual
	if !report.CodesUnique {
		v.logger.Warn("Duplicate codes in production",
			zap.String("table", ref.String()),
			zap.Int64("rows", actual),
			zap.Int64("distinctCodes", distinct))
	}

	report.Duration = time.Since(startTime)
	return report, nil
}
