package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fentz26/dojotimer/internal/timer"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the phase journal",
	RunE:  runHistory,
}

var (
	historyLimit   int
	historySummary bool
	historyClear   bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show (0 = all)")
	historyCmd.Flags().BoolVar(&historySummary, "summary", false, "Show totals by kind and outcome")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Delete every journal entry")
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if historyClear {
		n, err := st.ClearPhases(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Removed %d entries\n", n)
		return nil
	}

	if historySummary {
		summaries, err := st.SummarizePhases(ctx)
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Fprintln(out, "No phases recorded.")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tOUTCOME\tCOUNT\tTOTAL")
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.Kind, s.Outcome, s.Count, s.Total.Round(time.Second))
		}
		return w.Flush()
	}

	records, err := st.ListPhases(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(out, "No phases recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENDED\tKIND\tELAPSED\tTARGET\tOUTCOME\tSESSION")
	for _, r := range records {
		session := r.SessionID
		if len(session) > 8 {
			session = session[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04:05"),
			r.Kind,
			timer.FormatClock(r.Elapsed),
			timer.FormatClock(r.Target),
			r.Outcome,
			session)
	}
	return w.Flush()
}
