package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/cost"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/pipeline"
	"github.com/Vini334/ReclamaAI/internal/report"
)

var (
	batchLimit  int
	batchSource string
	batchReport string
	batchDryRun bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process complaints from the mock sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		var source model.ComplaintSource
		if batchSource != "" {
			s, ok := model.ParseSource(batchSource)
			if !ok {
				return eris.Errorf("unknown source %q", batchSource)
			}
			source = s
		}

		env, err := initPipeline(ctx, batchDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		limit := batchLimit
		if limit <= 0 {
			limit = cfg.Pipeline.DefaultLimit
		}

		res, runErr := env.Orchestrator.ProcessBatch(ctx, pipeline.BatchRequest{Source: source, Limit: limit})
		if runErr != nil && len(res.States) == 0 {
			return eris.Wrap(runErr, "batch processing")
		}

		printBatch(cmd.OutOrStdout(), res, env.Costs.Summary())

		if batchReport != "" {
			if err := report.WriteXLSX(batchReport, res.States); err != nil {
				return eris.Wrap(err, "write batch report")
			}
			zap.L().Info("batch report written", zap.String("path", batchReport))
		}

		if runErr != nil {
			return eris.Wrap(runErr, "batch interrupted")
		}
		return nil
	},
}

// printBatch writes one line per complaint followed by the totals.
func printBatch(w io.Writer, res pipeline.BatchResult, spend cost.Summary) {
	for _, st := range res.States {
		team := "-"
		if st.Routing != nil {
			team = st.Routing.TeamID
		}
		ticket := "-"
		if st.Ticket != nil {
			ticket = st.Ticket.JiraKey
		}
		fmt.Fprintf(w, "%-36s  %-14s  %-16s  %-14s  %s\n",
			st.ComplaintID(), st.Raw.Source, st.Status, team, ticket)
		for _, e := range st.Errors {
			fmt.Fprintf(w, "    ! %s\n", e)
		}
	}
	fmt.Fprintf(w, "\ntotal=%d successful=%d failed=%d duration=%s llm_calls=%d cost_usd=%.4f\n",
		res.Total, res.Successful, res.Failed, res.Duration.Round(time.Millisecond), spend.Calls, spend.CostUSD)
}

func init() {
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of complaints to process (default from config)")
	batchCmd.Flags().StringVar(&batchSource, "source", "", "only process complaints from this source")
	batchCmd.Flags().StringVar(&batchReport, "report", "", "write an XLSX report of the batch to this path")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "use a scripted model client instead of the Anthropic API")
	rootCmd.AddCommand(batchCmd)
}
