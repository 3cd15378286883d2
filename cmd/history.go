package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/David-Botos/catalog-ingress/pkg/loader"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent pipeline runs from the audit log",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 10, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, logger, wh, cleanup, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	audit, err := loader.NewAuditLogger(wh, cfg.Warehouse.Dataset, logger)
	if err != nil {
		return err
	}

	entries, err := audit.Recent(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN TIMESTAMP\tSTATUS\tROWS\tVERSION\tERROR")
	for _, e := range entries {
		msg := ""
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			e.RunTimestamp.UTC().Format(time.RFC3339), e.Status, e.RowsLoaded, e.PipelineVersion, msg)
	}
	return tw.Flush()
}
