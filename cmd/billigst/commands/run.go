package commands

import (
	"fmt"

	"github.com/Glx28/billigst-mat/internal/app"
	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/infrastructure/notify"
	"github.com/Glx28/billigst-mat/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	noNotify bool
	dryRun   bool
	showAll  bool
)

func init() {
	runCmd.Flags().BoolVar(&noNotify, "no-notify", false, "Rank and record, but send no notifications")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Rank only; record nothing and send nothing")
	runCmd.Flags().BoolVar(&showAll, "all", false, "Print the leaderboard of every group, not only new best prices")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--no-notify] [--dry-run] [--all]",
	Short: "Fetches offers from every source and ranks each group once.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		// the console notifier prints new best prices unless the full board is printed below
		var opts app.Options
		if !showAll {
			opts.Console = out
		}
		a, err := setup(cmd, opts)
		if err != nil {
			return err
		}
		defer a.Close()

		report, runErr := a.Run(cmd.Context(), usecase.RunOptions{SkipNotify: noNotify, DryRun: dryRun})
		if report == nil {
			return runErr
		}

		var results []domain.RankedResult
		switch {
		case showAll:
			results = report.Results
		case noNotify || dryRun:
			results = report.Triggered()
		}
		if len(results) > 0 {
			if err := notify.RenderLeaderboard(out, results); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		printSummary(cmd, report)

		// a notify failure or an interrupted run comes back together with a report
		return runErr
	},
}

func printSummary(cmd *cobra.Command, report *domain.RunReport) {
	s := report.Summary
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%d groups, %d new best prices (%d offers, %d normalized, %d parse failures, %d without group, %d duplicates)\n",
		len(report.Results), s.Triggered, s.RawOffers, s.Normalized, s.ParseFailures, s.GroupMisses, s.DuplicatesDropped)
	for source, msg := range s.SourceFailures {
		fmt.Fprintf(out, "source %s failed: %s\n", source, msg)
	}
	for group, msg := range s.SinkFailures {
		fmt.Fprintf(out, "history for %s unavailable: %s\n", group, msg)
	}
}
