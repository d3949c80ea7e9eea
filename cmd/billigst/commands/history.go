package commands

import (
	"github.com/Glx28/billigst-mat/internal/app"
	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/infrastructure/history"
	"github.com/Glx28/billigst-mat/internal/infrastructure/notify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", history.DefaultHistoryLimit, "Number of runs to show")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history <group> [--limit N]",
	Short: "Shows the best price of a group per recorded run, newest first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, app.Options{Sources: []domain.OfferSource{}})
		if err != nil {
			return err
		}
		defer a.Close()

		observations, err := a.History(cmd.Context(), args[0], historyLimit)
		if err != nil {
			return err
		}

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.SetTitle("%s", args[0])
		t.AppendHeader(table.Row{"Tidspunkt", "Produkt", "Enhetspris", "Pris", "Butikk"})
		for _, o := range observations {
			t.AppendRow(table.Row{
				o.ObservedAt.Local().Format("2006-01-02 15:04"),
				o.ProductName,
				notify.FormatPrice(o.UnitPrice) + " " + o.BaseUnit.Label(),
				notify.FormatPrice(o.RawPrice),
				o.StoreName,
			})
		}
		if len(observations) == 0 {
			t.AppendRow(table.Row{"", "ingen observasjoner", "", "", ""})
		}
		t.Render()
		return nil
	},
}
