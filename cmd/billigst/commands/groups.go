package commands

import (
	"fmt"
	"strings"

	"github.com/Glx28/billigst-mat/internal/app"
	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/infrastructure/notify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(groupsCmd)
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Lists the configured groups in matching order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := setup(cmd, app.Options{Sources: []domain.OfferSource{}})
		if err != nil {
			return err
		}
		defer a.Close()

		t := table.NewWriter()
		t.SetOutputMirror(cmd.OutOrStdout())
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"#", "Gruppe", "Enhet", "Inkluder", "Ekskluder", "Terskel", "Topp"})
		for i, g := range a.Groups() {
			threshold := "-"
			if g.Threshold != nil {
				threshold = fmt.Sprintf("%s %s", notify.FormatPrice(*g.Threshold), g.BaseUnit.Label())
			}
			t.AppendRow(table.Row{
				i + 1,
				g.Label(),
				g.BaseUnit.Short(),
				strings.Join(g.IncludeAny, ", "),
				strings.Join(g.Exclude, ", "),
				threshold,
				g.TopN,
			})
		}
		t.Render()
		return nil
	},
}
