package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRawRecordAccessorsTreatMissingAndNullAlike(t *testing.T) {
	r := RawRecord{"present": "x", "null": nil}

	require.True(t, r.Has("null"))
	require.False(t, r.Has("missing"))

	_, ok := r.String("null")
	require.False(t, ok)
	_, ok = r.String("missing")
	require.False(t, ok)

	s, ok := r.String("present")
	require.True(t, ok)
	require.Equal(t, "x", s)
}

func TestRawRecordStringRendersScalars(t *testing.T) {
	r := RawRecord{
		"number": json.Number("3017620422003"),
		"float":  float64(1.5),
		"bool":   true,
		"list":   []interface{}{"a", "b"},
	}

	for field, want := range map[string]string{
		"number": "3017620422003",
		"float":  "1.5",
		"bool":   "true",
		"list":   `["a","b"]`,
	} {
		got, ok := r.String(field)
		require.True(t, ok, field)
		require.Equal(t, want, got, field)
	}
}

func TestRawRecordInt64(t *testing.T) {
	r := RawRecord{
		"number":  json.Number("1700000000"),
		"string":  " 1700000000 ",
		"decimal": "1700000000.9",
		"float":   float64(42),
		"text":    "yesterday",
		"bool":    false,
	}

	v, ok := r.Int64("number")
	require.True(t, ok)
	require.Equal(t, int64(1700000000), v)

	v, ok = r.Int64("string")
	require.True(t, ok)
	require.Equal(t, int64(1700000000), v)

	v, ok = r.Int64("decimal")
	require.True(t, ok)
	require.Equal(t, int64(1700000000), v)

	v, ok = r.Int64("float")
	require.True(t, ok)
	require.Equal(t, int64(42), v)

	_, ok = r.Int64("text")
	require.False(t, ok)
	_, ok = r.Int64("bool")
	require.False(t, ok)
	_, ok = r.Int64("missing")
	require.False(t, ok)
}

func TestErrorKindMatching(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	err := fmt.Errorf("run: %w", SourceUnavailable("search request failed", cause))

	require.True(t, errors.Is(err, ErrSourceUnavailable))
	require.False(t, errors.Is(err, ErrLoadFailed))
	require.True(t, errors.Is(err, cause))
	require.Equal(t, KindSourceUnavailable, KindOf(err))
	require.True(t, IsRetryable(err))
	require.Contains(t, err.Error(), "SourceUnavailable [extract]: search request failed")

	require.False(t, IsRetryable(MalformedInput("no code field", nil)))
	require.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestNewAuditEntry(t *testing.T) {
	at := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)

	ok := NewAuditEntry(at, RunSuccess, 5, nil)
	require.Nil(t, ok.ErrorMessage)
	require.Equal(t, PipelineVersion, ok.PipelineVersion)
	require.Equal(t, int64(5), ok.RowsLoaded)

	failed := NewAuditEntry(at, RunFailed, 0, errors.New("boom"))
	require.NotNil(t, failed.ErrorMessage)
	require.Equal(t, "boom", *failed.ErrorMessage)
}

func TestCauseOf(t *testing.T) {
	tests := []struct {
		err  error
		want Cause
	}{
		{nil, CauseOther},
		{fmt.Errorf("query: %w", context.DeadlineExceeded), CauseTimeout},
		{errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), CauseConnection},
		{errors.New("sql: database is closed"), CauseConnection},
		{errors.New("ERROR: permission denied for schema catalog"), CausePermission},
		{errors.New("invalid character '<' looking for beginning of value"), CauseDataConversion},
		{errors.New("SQL logic error: no such table: catalog_products"), CauseMissingObject},
		{errors.New("boom"), CauseOther},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, CauseOf(tt.err), "%v", tt.err)
	}

	// The cause survives classification
	err := LoadFailed("swap staging into production", errors.New("permission denied"))
	require.Equal(t, CausePermission, CauseOf(err))
	require.Equal(t, "Permission", CauseOf(err).String())
}
