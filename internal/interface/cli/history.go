package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/YoshitsuguKoike/deepatch/internal/application/dto"
	"github.com/YoshitsuguKoike/deepatch/internal/application/port/output"
	"github.com/YoshitsuguKoike/deepatch/internal/infrastructure/persistence/sqlite"
)

func newHistoryCmd(a *appContext) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "history [request-id]",
		Short: "Show recent runs, or one run with its provider attempts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			if !a.cfg.HistoryEnabled() {
				return fmt.Errorf("run history is disabled in %s", a.paths.Settings)
			}
			db, err := sqlite.Open(a.paths.RunHistory)
			if err != nil {
				return err
			}
			defer db.Close()
			repo := sqlite.NewRunRepository(db)
			w := c.OutOrStdout()

			if len(args) == 1 {
				record, err := repo.FindByID(c.Context(), args[0])
				if err != nil {
					return err
				}
				if record == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				if jsonOut {
					return writeIndentedJSON(w, dto.RunRecordFromOutput(record))
				}
				printRun(w, record)
				return nil
			}

			records, err := repo.List(c.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeIndentedJSON(w, dto.RunRecordsFromOutput(records))
			}
			printRuns(w, records)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	return cmd
}

func writeIndentedJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, records []*output.RunRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST ID\tSTARTED\tSTATUS\tSTAGE\tPROVIDER\tDURATION\tRESULT")
	for _, r := range records {
		result := r.PRURL
		if r.Status != "success" {
			result = r.ErrorMessage
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.RequestID,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Status,
			orDash(r.FailedStage),
			orDash(r.Provider),
			r.Duration.Round(10*time.Millisecond),
			result,
		)
	}
	tw.Flush()
}

func printRun(w io.Writer, r *output.RunRecord) {
	fmt.Fprintf(w, "Request:    %s\n", r.RequestID)
	fmt.Fprintf(w, "Repository: %s\n", r.Repository)
	fmt.Fprintf(w, "Prompt:     %s\n", r.Prompt)
	fmt.Fprintf(w, "Status:     %s\n", r.Status)
	if r.Status != "success" {
		fmt.Fprintf(w, "Failed at:  %s (%s)\n", r.FailedStage, r.ErrorKind)
		fmt.Fprintf(w, "Error:      %s\n", r.ErrorMessage)
	}
	if r.PRURL != "" {
		fmt.Fprintf(w, "Pull:       %s\n", r.PRURL)
	}
	if r.Branch != "" {
		fmt.Fprintf(w, "Branch:     %s\n", r.Branch)
	}
	fmt.Fprintf(w, "Duration:   %s\n", r.Duration.Round(10*time.Millisecond))

	if len(r.Attempts) == 0 {
		return
	}
	fmt.Fprintln(w, "Attempts:")
	for _, at := range r.Attempts {
		line := fmt.Sprintf("  %d. %-10s %-8s tries=%d", at.Ordinal, at.Provider, at.Outcome, at.Tries)
		if at.Reason != "" {
			line += "  " + at.Reason
		}
		fmt.Fprintln(w, line)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
