// Package notify delivers new-best-price results and renders leaderboards
package notify

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

// FormatPrice rounds for display only; stored and compared prices are never rounded
func FormatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// validUntilLayout is the date shown for when an offer ends
const validUntilLayout = "2006-01-02"

// PriceText is the package price, with the ordinary price when the source gave one
func PriceText(o domain.RawOffer) string {
	if o.PrePrice > o.RawPrice {
		return fmt.Sprintf("%s (før %s)", FormatPrice(o.RawPrice), FormatPrice(o.PrePrice))
	}
	return FormatPrice(o.RawPrice)
}

// ValidUntilText is the offer end date, or "" when unknown
func ValidUntilText(o domain.RawOffer) string {
	if o.ValidUntil.IsZero() {
		return ""
	}
	return o.ValidUntil.Format(validUntilLayout)
}

// Subject is the email subject for a set of triggered results
func Subject(results []domain.RankedResult) string {
	switch len(results) {
	case 0:
		return "Matpris-oppdatering"
	case 1:
		return fmt.Sprintf("Matpris-oppdatering: ny bestepris på %s", results[0].DisplayName)
	default:
		return fmt.Sprintf("Matpris-oppdatering: %d nye bestepriser", len(results))
	}
}

// Headline summarizes one result in a single line
func Headline(r domain.RankedResult) string {
	best, ok := r.Best()
	if !ok {
		return fmt.Sprintf("%s: ingen tilbud", r.DisplayName)
	}

	line := fmt.Sprintf("%s: %s %s hos %s (%s)",
		r.DisplayName, FormatPrice(best.UnitPrice), r.BaseUnit.Label(), best.StoreName, best.ProductName)
	if r.IsNewBest && r.PreviousBestUnitPrice != nil {
		line += fmt.Sprintf(", ned %s%% fra %s",
			decimal.NewFromFloat(r.DropPercent).StringFixed(1), FormatPrice(*r.PreviousBestUnitPrice))
	}
	if until := ValidUntilText(best.RawOffer); until != "" {
		line += ", gyldig til " + until
	}
	return line
}

// Table builds the leaderboard table for one group
func Table(r domain.RankedResult) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)

	title := fmt.Sprintf("%s (%s)", r.DisplayName, r.BaseUnit.Label())
	if r.IsNewBest {
		title += " - ny bestepris"
	}
	t.SetTitle("%s", title)

	t.AppendHeader(table.Row{"#", "Produkt", r.BaseUnit.Label(), "Pris", "Butikk", "Gyldig til", "Lenke"})
	for i, o := range r.Top {
		t.AppendRow(table.Row{
			i + 1, o.ProductName, FormatPrice(o.UnitPrice), PriceText(o.RawOffer),
			o.StoreName, ValidUntilText(o.RawOffer), o.URL,
		})
	}
	if len(r.Top) == 0 {
		t.AppendRow(table.Row{"", "ingen tilbud", "", "", "", "", ""})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return t
}

// RenderLeaderboard writes one table per result, in result order
func RenderLeaderboard(w io.Writer, results []domain.RankedResult) error {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(Table(r).Render())
		b.WriteString("\n")
		if r.IsNewBest {
			b.WriteString(Headline(r))
			b.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderHTML renders the results as HTML tables, for email bodies
func RenderHTML(results []domain.RankedResult) string {
	var b strings.Builder
	b.WriteString("<html><body>\n")
	for _, r := range results {
		fmt.Fprintf(&b, "<p><strong>%s</strong></p>\n", html.EscapeString(Headline(r)))
		b.WriteString(Table(r).RenderHTML())
		b.WriteString("\n")
	}
	b.WriteString("</body></html>\n")
	return b.String()
}
