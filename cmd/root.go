package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/catalog-ingress/pkg/cleaner"
	"github.com/David-Botos/catalog-ingress/pkg/config"
	"github.com/David-Botos/catalog-ingress/pkg/connector"
	"github.com/David-Botos/catalog-ingress/pkg/extractor"
	"github.com/David-Botos/catalog-ingress/pkg/loader"
	"github.com/David-Botos/catalog-ingress/pkg/pipeline"
)

var (
	pageSize     int
	strictVerify bool
)

var rootCmd = &cobra.Command{
	Use:   "catalog-ingress [category]",
	Short: "Load an Open Food Facts product category into the warehouse",
	Long: `catalog-ingress fetches one page of products for a category from the
Open Food Facts search API, cleans them, and replaces the warehouse table
through a staging table. Every run is recorded in pipeline_audit_log.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE:         runPipeline,
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.Flags().IntVarP(&pageSize, "page-size", "n", extractor.DefaultPageSize, "Number of products to request")
	rootCmd.Flags().BoolVar(&strictVerify, "strict-verify", false, "Fail the run when the post-load row count does not match")
	rootCmd.AddCommand(historyCmd)
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Error loading .env file: %v", err)
	}
}

// buildLogger is replaced in tests to capture setup failures
var buildLogger = newLogger

// setup loads configuration, installs the global logger and opens the warehouse
func setup(ctx context.Context, cmd *cobra.Command) (*config.Config, *zap.Logger, *connector.Warehouse, func(), error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		// No configured logger yet, so report through the defaults
		if logger, lerr := buildLogger("info", "json"); lerr == nil {
			setupFailed(logger, "config", err)
			logger.Sync()
		}
		return nil, nil, nil, nil, err
	}

	if cmd.Flags().Changed("page-size") {
		cfg.Source.PageSize = pageSize
	}
	if cmd.Flags().Changed("strict-verify") {
		cfg.Warehouse.StrictVerification = strictVerify
	}

	logger, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		if fallback, lerr := buildLogger("info", "json"); lerr == nil {
			setupFailed(fallback, "logging", err)
			fallback.Sync()
		}
		return nil, nil, nil, nil, err
	}
	restore := zap.ReplaceGlobals(logger)

	wh, err := connector.NewConnectorFactory(cfg.Warehouse, logger).CreateWarehouse(ctx)
	if err != nil {
		setupFailed(logger, "connect", err)
		restore()
		logger.Sync()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := wh.Close(); err != nil {
			logger.Warn("Failed to close warehouse", zap.Error(err))
		}
		restore()
		logger.Sync()
	}
	return cfg, logger, wh, cleanup, nil
}

// setupFailed logs a run that ended before the pipeline could start, and
// therefore before anything could be written to the audit table
func setupFailed(logger *zap.Logger, stage string, err error) {
	logger.Error("Run aborted during setup",
		zap.String("stage", stage),
		zap.String("status", "FAILED"),
		zap.Error(err))
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, wh, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	audit, err := loader.NewAuditLogger(wh, cfg.Warehouse.Dataset, logger)
	if err != nil {
		return err
	}

	cleanOpts := cleaner.DefaultOptions()
	cleanOpts.EmptyStringAsNull = cfg.EmptyStringAsNull

	runner := pipeline.NewRunner(
		extractor.NewExtractor(cfg.Source, logger),
		cleaner.NewTransformer(logger, cleanOpts),
		loader.NewLoader(wh, cfg.Warehouse, logger),
		audit,
		cfg.Source.PageSize,
		logger,
	)

	category := pipeline.DefaultCategory
	if len(args) == 1 {
		category = args[0]
	}

	result, err := runner.Run(ctx, category)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d products for %q into %s.%s (run %s, %s)\n",
		result.RowsLoaded, result.Category, cfg.Warehouse.Dataset, cfg.Warehouse.Table,
		result.RunID, result.Duration().Round(time.Millisecond))
	return nil
}
