package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observeSetupLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	prev := buildLogger
	buildLogger = func(string, string) (*zap.Logger, error) {
		return zap.New(core), nil
	}
	t.Cleanup(func() { buildLogger = prev })
	return logs
}

func requireSetupFailure(t *testing.T, logs *observer.ObservedLogs, stage string) {
	t.Helper()

	entries := logs.FilterMessage("Run aborted during setup").All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	require.Equal(t, stage, fields["stage"])
	require.Equal(t, "FAILED", fields["status"])
	require.NotEmpty(t, fields["error"])
}

func TestSetupLogsConfigFailure(t *testing.T) {
	logs := observeSetupLogs(t)
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("WAREHOUSE_DATASET", "")
	t.Setenv("WAREHOUSE_TABLE", "products")

	_, _, _, _, err := setup(context.Background(), rootCmd)
	require.ErrorContains(t, err, "WAREHOUSE_DATASET")
	requireSetupFailure(t, logs, "config")
}

func TestSetupLogsConnectFailure(t *testing.T) {
	logs := observeSetupLogs(t)
	t.Setenv("WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("WAREHOUSE_DATASET", "catalog")
	t.Setenv("WAREHOUSE_TABLE", "products")
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "missing", "warehouse.db"))

	_, _, _, _, err := setup(context.Background(), rootCmd)
	require.Error(t, err)
	requireSetupFailure(t, logs, "connect")
}
