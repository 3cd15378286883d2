// pkg/model/audit.go
package model

import "time"

// AuditTable is the fixed name of the append-only run log
const AuditTable = "pipeline_audit_log"

// RunStatus is the outcome of one pipeline invocation
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// AuditEntry is the single record written per pipeline run
type AuditEntry struct {
	RunTimestamp    time.Time `db:"run_timestamp" json:"run_timestamp"`
	Status          RunStatus `db:"status" json:"status"`
	RowsLoaded      int64     `db:"rows_loaded" json:"rows_loaded"`
	ErrorMessage    *string   `db:"error_message" json:"error_message,omitempty"`
	PipelineVersion string    `db:"pipeline_version" json:"pipeline_version"`
}

// NewAuditEntry builds an entry stamped with the current pipeline version.
// A nil runErr leaves ErrorMessage null.
func NewAuditEntry(at time.Time, status RunStatus, rowsLoaded int64, runErr error) AuditEntry {
	entry := AuditEntry{
		RunTimestamp:    at.UTC(),
		Status:          status,
		RowsLoaded:      rowsLoaded,
		PipelineVersion: PipelineVersion,
	}
	if runErr != nil {
		msg := runErr.Error()
		entry.ErrorMessage = &msg
	}
	return entry
}
