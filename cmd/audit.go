package main

import (
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/Vini334/ReclamaAI/internal/config"
	"github.com/Vini334/ReclamaAI/internal/store"
)

var (
	auditEventType string
	auditFrom      string
	auditTo        string
	auditLimit     int
	auditJSON      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit [complaint-id]",
	Short: "Show the audit trail of one complaint or of a date range",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		filter := store.AuditFilter{EventType: auditEventType, Limit: auditLimit}
		if len(args) == 1 {
			filter.ComplaintID = args[0]
		}
		var err error
		if filter.From, err = dateParam(auditFrom); err != nil {
			return eris.Wrap(err, "--from")
		}
		if filter.To, err = dateParam(auditTo); err != nil {
			return eris.Wrap(err, "--to")
		}

		if err := cfg.Validate(config.ModeReadOnly); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		evs, err := st.GetAuditLog(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "read audit log")
		}

		if auditJSON {
			return writeJSON(cmd.OutOrStdout(), evs)
		}
		printAudit(cmd.OutOrStdout(), evs)
		return nil
	},
}

func printAudit(w io.Writer, evs []store.AuditEvent) {
	if len(evs) == 0 {
		fmt.Fprintln(w, "no audit events")
		return
	}
	for _, ev := range evs {
		fmt.Fprintf(w, "%s  %-36s  %-18s  %v\n",
			ev.CreatedAt.UTC().Format("2006-01-02 15:04:05"), ev.ComplaintID, ev.EventType, ev.Details)
	}
}

func init() {
	auditCmd.Flags().StringVar(&auditEventType, "type", "", "only show events of this type")
	auditCmd.Flags().StringVar(&auditFrom, "from", "", "first event date, YYYY-MM-DD")
	auditCmd.Flags().StringVar(&auditTo, "to", "", "last event date, YYYY-MM-DD")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "max events to show")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "print events as JSON")
	rootCmd.AddCommand(auditCmd)
}
