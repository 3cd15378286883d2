// pkg/pipeline/result.go
package pipeline

import (
	"time"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// RunResult contains the outcome of a single pipeline run
type RunResult struct {
	RunID     string
	Category  string
	Status    model.RunStatus
	StartTime time.Time
	EndTime   time.Time

	Extracted          int
	Transformed        int
	CleaningOperations int
	QualityFlags       map[model.QualityFlag]int
	RowsLoaded         int64
	VerifiedCount      int64

	Err error
}

// NewRunResult creates a result for a run that is starting now
func NewRunResult(runID, category string) *RunResult {
	return &RunResult{
		RunID:        runID,
		Category:     category,
		StartTime:    time.Now(),
		QualityFlags: make(map[model.QualityFlag]int),
	}
}

// Complete marks the run finished with status
func (r *RunResult) Complete(status model.RunStatus, err error) {
	r.Status = status
	r.Err = err
	r.EndTime = time.Now()
}

// Duration returns how long the run took, or has taken so far
func (r *RunResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Succeeded reports whether the run completed without error
func (r *RunResult) Succeeded() bool {
	return r.Status == model.RunSuccess
}
