package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// KeyFunc builds the identity key two offers must share to be considered the same listing.
// Keys must include the store so offers from different stores are never merged.
type KeyFunc func(offer domain.NormalizedOffer) string

// Compiled regex patterns for canonicalization
var (
	// Punctuation stripped from names before comparison
	canonicalPunctuationPattern = regexp.MustCompile(`[.,;:!?'"()\[\]{}<>/\\\-_*&+#%|~®™´` + "`" + `]`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)

	// Matches size/quantity patterns like "1l", "500 g", "6x1.5l", "12 stk", "1,5 liter"
	sizeQuantityPattern = regexp.MustCompile(`\b(?:\d+\s*[x×]\s*)?\d+(?:[.,]\d+)?\s*(?:kg|g|gr|gram|hg|l|ltr|liter|litre|dl|cl|ml|stk|pk|pakke|pcs)\b`)
)

// CanonicalName lowercases, trims, strips punctuation and collapses whitespace
func CanonicalName(s string) string {
	if s == "" {
		return ""
	}

	// NFKC first so composed and decomposed æ/ø/å compare equal, then full case folding
	folded, _, err := transform.String(transform.Chain(norm.NFKC, cases.Fold()), s)
	if err != nil {
		folded = strings.ToLower(s)
	}

	cleaned := canonicalPunctuationPattern.ReplaceAllString(folded, "")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// StripSizes removes size and pack tokens from a canonical name ("tine lettmelk 1l" -> "tine lettmelk")
func StripSizes(name string) string {
	stripped := sizeQuantityPattern.ReplaceAllString(name, " ")
	stripped = multiSpacePattern.ReplaceAllString(stripped, " ")
	stripped = strings.TrimSpace(stripped)
	if stripped == "" {
		return name
	}
	return stripped
}

// CanonicalKey is the default identity: canonical store + canonical product name
func CanonicalKey(offer domain.NormalizedOffer) string {
	return CanonicalName(offer.StoreName) + "|" + CanonicalName(offer.ProductName)
}

// StrictKey adds the quantity in base units, so same-named packages of different size stay apart
func StrictKey(offer domain.NormalizedOffer) string {
	return CanonicalKey(offer) + "|" + strconv.FormatFloat(offer.QuantityInBaseUnit, 'f', 4, 64)
}

// LooseKey ignores size tokens in the product name ("Kyllingfilet 1000g" == "Kyllingfilet")
func LooseKey(offer domain.NormalizedOffer) string {
	return CanonicalName(offer.StoreName) + "|" + StripSizes(CanonicalName(offer.ProductName))
}

// KeyFuncByName resolves a configured key strategy
func KeyFuncByName(name string) (KeyFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "canonical":
		return CanonicalKey, nil
	case "strict":
		return StrictKey, nil
	case "loose":
		return LooseKey, nil
	}
	return nil, fmt.Errorf("%w: unknown dedup key %q", domain.ErrConfig, name)
}
