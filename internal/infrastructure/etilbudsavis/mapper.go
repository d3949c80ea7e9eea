package etilbudsavis

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
)

// SourceID is the identifier stamped on every offer from this adapter
const SourceID = "etilbudsavis"

const (
	catalogBaseURL   = "https://etilbudsavis.no"
	unknownStoreName = "Ukjent"
)

// timestampLayouts are the formats seen in run_from / run_till
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// MapToRawOffer converts an API offer to a raw offer.
// It returns false for offers without a usable price or heading.
func MapToRawOffer(offer Offer, fetchedAt time.Time) (domain.RawOffer, bool) {
	name := strings.TrimSpace(offer.Heading)
	if offer.Pricing.Price <= 0 || name == "" {
		return domain.RawOffer{}, false
	}

	raw := domain.RawOffer{
		SourceID:    SourceID,
		StoreName:   StoreName(offer),
		ProductName: name,
		RawPrice:    offer.Pricing.Price,
		PackageText: PackageText(offer),
		URL:         OfferURL(offer),
		FetchedAt:   fetchedAt,
	}
	if pre := offer.Pricing.PrePrice; pre != nil && *pre > offer.Pricing.Price {
		raw.PrePrice = *pre
	}
	if till, ok := parseTimestamp(offer.RunTill); ok {
		raw.ValidUntil = till
	}
	return raw, true
}

// StoreName prefers the dealer name, then the branding name
func StoreName(offer Offer) string {
	if offer.Dealer != nil && strings.TrimSpace(offer.Dealer.Name) != "" {
		return strings.TrimSpace(offer.Dealer.Name)
	}
	if offer.Branding != nil && strings.TrimSpace(offer.Branding.Name) != "" {
		return strings.TrimSpace(offer.Branding.Name)
	}
	return unknownStoreName
}

// PackageText renders the structured quantity as text the normalizer understands:
// "750 g", "2x400 g", "12 stk". Without a structured quantity the description is used.
func PackageText(offer Offer) string {
	q := offer.Quantity
	size := q.Size.Value()
	if q.Unit == nil || strings.TrimSpace(q.Unit.Symbol) == "" || size <= 0 {
		return strings.TrimSpace(offer.Description)
	}

	symbol := strings.ToLower(strings.TrimSpace(q.Unit.Symbol))
	switch symbol {
	case "pcs", "stk.", "piece", "pieces":
		symbol = "stk"
	}

	packs := int(q.Pieces.From)
	if packs > 1 {
		return fmt.Sprintf("%dx%g %s", packs, size, symbol)
	}
	return fmt.Sprintf("%g %s", size, symbol)
}

// OfferURL links to the offer inside its catalog, or "" when the offer lacks the parts
func OfferURL(offer Offer) string {
	var slug string
	for _, d := range []*Dealer{offer.Dealer, offer.Branding} {
		if d != nil && len(d.Markets) > 0 && d.Markets[0].Slug != "" {
			slug = d.Markets[0].Slug
			break
		}
	}
	if slug == "" || offer.CatalogID == "" || offer.ID == "" {
		return ""
	}

	params := url.Values{}
	params.Set("publication", offer.CatalogID)
	params.Set("offer", offer.ID)
	return fmt.Sprintf("%s/%s?%s", catalogBaseURL, url.PathEscape(slug), params.Encode())
}

// ValidAt reports whether now falls inside the offer's run window.
// Offers with a missing or unparseable window are kept.
func ValidAt(offer Offer, now time.Time) bool {
	from, okFrom := parseTimestamp(offer.RunFrom)
	till, okTill := parseTimestamp(offer.RunTill)
	if !okFrom || !okTill {
		return true
	}
	return !now.Before(from) && !now.After(till)
}

func parseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
