package webstore

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	// Currency words and the trailing ",-" / ".-" whole-krone marker
	currencyPattern = regexp.MustCompile(`(?i)\b(?:kr|nok)\b\.?|[,.]-|:-`)

	// Spaces inside numbers ("1 234,50"), including no-break spaces
	numberSpacePattern = regexp.MustCompile(`[\s\x{00a0}\x{202f}]+`)

	// First decimal number after cleanup
	priceNumberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)
)

// ParsePrice reads a shelf price such as "kr 42,90", "39,-", "1 234,50 kr" or "42.90".
// A comma is the decimal separator when present; dots before it are thousands separators.
func ParsePrice(text string) (float64, error) {
	s := currencyPattern.ReplaceAllString(text, "")
	s = numberSpacePattern.ReplaceAllString(s, "")

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}

	match := priceNumberPattern.FindString(s)
	if match == "" {
		return 0, fmt.Errorf("%w: no price in %q", domain.ErrParseFailure, text)
	}

	d, err := decimal.NewFromString(match)
	if err != nil {
		return 0, fmt.Errorf("%w: price %q: %v", domain.ErrParseFailure, text, err)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: non-positive price %q", domain.ErrParseFailure, text)
	}
	return d.InexactFloat64(), nil
}
