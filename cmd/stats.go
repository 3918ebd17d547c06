package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Vini334/ReclamaAI/internal/config"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/store"
)

var (
	statsList   bool
	statsSource string
	statsStatus string
	statsLimit  int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show persisted complaint counts by source and status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate(config.ModeReadOnly); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if !statsList {
			stats, err := st.Stats(ctx)
			if err != nil {
				return eris.Wrap(err, "store stats")
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		}

		filter := store.ComplaintFilter{
			Status: model.WorkflowStatus(statsStatus),
			Limit:  statsLimit,
		}
		if statsSource != "" {
			src, ok := model.ParseSource(statsSource)
			if !ok {
				return eris.Errorf("unknown source %q", statsSource)
			}
			filter.Source = src
		}
		states, err := st.ListComplaints(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "list complaints")
		}
		return writeJSON(cmd.OutOrStdout(), states)
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsList, "list", false, "list complaints instead of counting them")
	statsCmd.Flags().StringVar(&statsSource, "source", "", "filter listed complaints by source")
	statsCmd.Flags().StringVar(&statsStatus, "status", "", "filter listed complaints by workflow status")
	statsCmd.Flags().IntVar(&statsLimit, "limit", 50, "max complaints to list")
	rootCmd.AddCommand(statsCmd)
}
