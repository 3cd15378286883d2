// pkg/pipeline/metrics.go
package pipeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/model"
)

// Pipeline stages, in execution order
const (
	StageExtract   = "extract"
	StageTransform = "transform"
	StageLoad      = "load"
)

var stageOrder = []string{StageExtract, StageTransform, StageLoad}

// StageMetrics tracks timing and volume for one stage
type StageMetrics struct {
	Name      string
	StartTime time.Time
	EndTime   time.Time
	RowsIn    int64
	RowsOut   int64
	Failed    bool
}

// Duration returns the stage duration
func (sm *StageMetrics) Duration() time.Duration {
	if sm.EndTime.IsZero() {
		return time.Since(sm.StartTime)
	}
	return sm.EndTime.Sub(sm.StartTime)
}

// RunMetrics tracks metrics for a pipeline run
type RunMetrics struct {
	mu        sync.Mutex
	logger    *zap.Logger
	StartTime time.Time
	EndTime   time.Time
	Stages    map[string]*StageMetrics
	Result    *RunResult
}

// NewRunMetrics creates a new RunMetrics instance
func NewRunMetrics(result *RunResult, logger *zap.Logger) *RunMetrics {
	return &RunMetrics{
		StartTime: time.Now(),
		Stages:    make(map[string]*StageMetrics),
		Result:    result,
		logger:    logger,
	}
}

// StartStage begins tracking a stage
func (rm *RunMetrics) StartStage(stage string, rowsIn int64) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.Stages[stage] = &StageMetrics{
		Name:      stage,
		StartTime: time.Now(),
		RowsIn:    rowsIn,
	}

	if rm.logger != nil {
		rm.logger.Debug("Stage started", zap.String("stage", stage), zap.Int64("rows_in", rowsIn))
	}
}

// EndStage completes tracking a stage
func (rm *RunMetrics) EndStage(stage string, rowsOut int64, err error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	sm, ok := rm.Stages[stage]
	if !ok {
		return
	}
	sm.EndTime = time.Now()
	sm.RowsOut = rowsOut
	sm.Failed = err != nil

	if rm.logger != nil {
		rm.logger.Info("Stage finished",
			zap.String("stage", stage),
			zap.Duration("duration", sm.Duration()),
			zap.Int64("rows_in", sm.RowsIn),
			zap.Int64("rows_out", rowsOut),
			zap.Bool("failed", sm.Failed))
	}
}

// Complete marks the end of the run
func (rm *RunMetrics) Complete() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.EndTime = time.Now()
}

// Duration returns the total duration of the run
func (rm *RunMetrics) Duration() time.Duration {
	if rm.EndTime.IsZero() {
		return time.Since(rm.StartTime)
	}
	return rm.EndTime.Sub(rm.StartTime)
}

// formatDuration formats a duration to a human-readable string
func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	} else if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

// GenerateMetricsReport creates a human-readable run report
func (rm *RunMetrics) GenerateMetricsReport() string {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r := rm.Result
	var sb strings.Builder

	fmt.Fprintf(&sb, `
Pipeline Run Report
===================
Run ID:                  %s
Category:                %s
Status:                  %s
Duration:                %s
Start Time:              %s

Data Summary
------------
Products Extracted:      %d
Records Transformed:     %d
Cleaning Operations:     %d
Rows Loaded:             %d
Rows Verified:           %d
`,
		r.RunID,
		r.Category,
		r.Status,
		formatDuration(rm.Duration()),
		rm.StartTime.Format(time.RFC3339),
		r.Extracted,
		r.Transformed,
		r.CleaningOperations,
		r.RowsLoaded,
		r.VerifiedCount,
	)

	sb.WriteString("\nStage Timings\n-------------\n")
	for _, name := range stageOrder {
		sm, ok := rm.Stages[name]
		if !ok {
			fmt.Fprintf(&sb, "- %s: not run\n", name)
			continue
		}
		state := "ok"
		if sm.Failed {
			state = "failed"
		}
		fmt.Fprintf(&sb, "- %s: %s, %d in, %d out, %s\n",
			name, formatDuration(sm.Duration()), sm.RowsIn, sm.RowsOut, state)
	}

	if len(r.QualityFlags) > 0 {
		sb.WriteString("\nQuality Flags\n-------------\n")
		flags := make([]string, 0, len(r.QualityFlags))
		for flag := range r.QualityFlags {
			flags = append(flags, string(flag))
		}
		sort.Strings(flags)
		for _, flag := range flags {
			count := r.QualityFlags[model.QualityFlag(flag)]
			fmt.Fprintf(&sb, "- %s: %d (%.1f%%)\n", flag, count, percentage(float64(count), float64(r.Transformed)))
		}
	}

	if r.Err != nil {
		fmt.Fprintf(&sb, "\nError\n-----\n%s\n", r.Err)
	}

	return sb.String()
}

// percentage safely calculates a percentage, avoiding division by zero
func percentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * 100
}

// ToJSON serializes metrics to JSON
func (rm *RunMetrics) ToJSON() ([]byte, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r := rm.Result
	stages := make(map[string]string, len(rm.Stages))
	for name, sm := range rm.Stages {
		stages[name] = formatDuration(sm.Duration())
	}

	var errMsg string
	if r.Err != nil {
		errMsg = r.Err.Error()
	}

	flags := make(map[string]int, len(r.QualityFlags))
	for flag, count := range r.QualityFlags {
		flags[string(flag)] = count
	}

	return json.Marshal(struct {
		RunID              string            `json:"runId"`
		Category           string            `json:"category"`
		Status             string            `json:"status"`
		Duration           string            `json:"duration"`
		StageDurations     map[string]string `json:"stageDurations"`
		Extracted          int               `json:"extracted"`
		Transformed        int               `json:"transformed"`
		CleaningOperations int               `json:"cleaningOperations"`
		RowsLoaded         int64             `json:"rowsLoaded"`
		VerifiedCount      int64             `json:"verifiedCount"`
		QualityFlags       map[string]int    `json:"qualityFlags"`
		Error              string            `json:"error,omitempty"`
	}{
		RunID:              r.RunID,
		Category:           r.Category,
		Status:             string(r.Status),
		Duration:           formatDuration(rm.Duration()),
		StageDurations:     stages,
		Extracted:          r.Extracted,
		Transformed:        r.Transformed,
		CleaningOperations: r.CleaningOperations,
		RowsLoaded:         r.RowsLoaded,
		VerifiedCount:      r.VerifiedCount,
		QualityFlags:       flags,
		Error:              errMsg,
	})
}
