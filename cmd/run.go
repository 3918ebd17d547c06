package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/collector"
	"github.com/Vini334/ReclamaAI/internal/model"
)

var (
	runExternalID  string
	runFile        string
	runTitle       string
	runDescription string
	runSource      string
	runName        string
	runContact     string
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single complaint",
	Long:  "Processes one complaint, taken from the mock sources by external ID, from a JSON file, or from flags, and prints the final workflow state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx, runDryRun)
		if err != nil {
			return err
		}
		defer env.Close()

		rec, err := runRecord(cmd, env.Collector)
		if err != nil {
			return err
		}

		state := env.Orchestrator.ProcessComplaint(ctx, rec)

		zap.L().Info("complaint processed",
			zap.String("complaint_id", state.ComplaintID()),
			zap.String("status", string(state.Status)),
			zap.Int("errors", len(state.Errors)),
			zap.Float64("cost_usd", env.Costs.Summary().CostUSD),
		)

		return writeJSON(cmd.OutOrStdout(), state)
	},
}

// runRecord resolves the complaint to process from the run flags.
func runRecord(cmd *cobra.Command, c *collector.Collector) (model.ComplaintRecord, error) {
	switch {
	case runExternalID != "":
		rec, ok, err := c.FindByExternalID(cmd.Context(), runExternalID)
		if err != nil {
			return model.ComplaintRecord{}, eris.Wrap(err, "look up complaint")
		}
		if !ok {
			return model.ComplaintRecord{}, eris.Errorf("complaint %s not found in %s", runExternalID, c.Dir())
		}
		return *rec, nil

	case runFile != "":
		var r io.Reader = cmd.InOrStdin()
		if runFile != "-" {
			f, err := os.Open(runFile)
			if err != nil {
				return model.ComplaintRecord{}, eris.Wrap(err, "open complaint file")
			}
			defer f.Close() //nolint:errcheck
			r = f
		}
		var rec model.ComplaintRecord
		if err := json.NewDecoder(r).Decode(&rec); err != nil {
			return model.ComplaintRecord{}, eris.Wrap(err, "decode complaint file")
		}
		return rec, nil

	default:
		if strings.TrimSpace(runTitle) == "" && strings.TrimSpace(runDescription) == "" {
			return model.ComplaintRecord{}, eris.New("one of --external-id, --file or --title/--description is required")
		}
		source, ok := model.ParseSource(runSource)
		if !ok {
			return model.ComplaintRecord{}, eris.Errorf("unknown source %q", runSource)
		}
		return model.ComplaintRecord{
			Source:          source,
			Title:           runTitle,
			Description:     runDescription,
			ConsumerName:    runName,
			ConsumerContact: runContact,
		}, nil
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runExternalID, "external-id", "", "external ID of a complaint in the mock sources")
	runCmd.Flags().StringVar(&runFile, "file", "", "JSON complaint record to process (- for stdin)")
	runCmd.Flags().StringVar(&runTitle, "title", "", "complaint title")
	runCmd.Flags().StringVar(&runDescription, "description", "", "complaint description")
	runCmd.Flags().StringVar(&runSource, "source", string(model.SourceEmail), "complaint source")
	runCmd.Flags().StringVar(&runName, "name", "", "consumer name")
	runCmd.Flags().StringVar(&runContact, "contact", "", "consumer email")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "use a scripted model client instead of the Anthropic API")
	runCmd.MarkFlagsMutuallyExclusive("external-id", "file")
	rootCmd.AddCommand(runCmd)
}
