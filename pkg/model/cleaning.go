// pkg/model/cleaning.go
package model

// CleaningOperation represents a single change the transformer made to a record
type CleaningOperation struct {
	ColumnName        string      // Column that was cleaned
	OriginalValue     interface{} // Original value (nil when the source had none)
	NewValue          string      // Value after cleaning
	RowIdentifier     string      // Product code of the affected record
	CleaningOperation string      // Type of cleaning performed (e.g., "default_substitution")
	CleaningReason    string      // Reason for cleaning (e.g., "null_value")
}

// Cleaning operation types
const (
	OpDefaultSubstitution = "default_substitution"
	OpNormalization       = "normalization"
	OpTimestampParse      = "timestamp_parse"
	OpDropRecord          = "drop_record"
)

// CountByColumn tallies operations per column, useful for run summaries
func CountByColumn(ops []CleaningOperation) map[string]int {
	counts := make(map[string]int)
	for _, op := range ops {
		counts[op.ColumnName]++
	}
	return counts
}
