package usecase

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/rs/zerolog"
)

// unitRatio maps a package unit token onto a base unit
type unitRatio struct {
	unit  domain.BaseUnit
	ratio float64 // how many base units one token unit is
}

// unitTable is the single source of truth for unit conversion.
// Pack tokens are literal counts.
var unitTable = map[string]unitRatio{
	// Weight
	"g":        {domain.UnitKilogram, 0.001},
	"gr":       {domain.UnitKilogram, 0.001},
	"gram":     {domain.UnitKilogram, 0.001},
	"hg":       {domain.UnitKilogram, 0.1},
	"kg":       {domain.UnitKilogram, 1},
	"kilo":     {domain.UnitKilogram, 1},
	"kilogram": {domain.UnitKilogram, 1},

	// Volume
	"ml":    {domain.UnitLiter, 0.001},
	"cl":    {domain.UnitLiter, 0.01},
	"dl":    {domain.UnitLiter, 0.1},
	"l":     {domain.UnitLiter, 1},
	"ltr":   {domain.UnitLiter, 1},
	"liter": {domain.UnitLiter, 1},
	"litre": {domain.UnitLiter, 1},

	// Count
	"stk":   {domain.UnitPiece, 1},
	"stykk": {domain.UnitPiece, 1},
	"pcs":   {domain.UnitPiece, 1},
	"pk":    {domain.UnitPiece, 1},
	"pack":  {domain.UnitPiece, 1},
	"pakke": {domain.UnitPiece, 1},
}

// Compiled regex patterns for package text parsing
var (
	// Matches an optional multipack prefix, a quantity and an optional unit token:
	// "6x1.5l", "2 x 400 g", "12 stk", "500g", "12"
	packageQuantityPattern = regexp.MustCompile(`(?:(\d+(?:\.\d+)?)\s*[x×]\s*)?(\d+(?:\.\d+)?)\s*([a-zæøå]+)?`)

	// Matches a decimal comma between digits ("1,5 l")
	decimalCommaPattern = regexp.MustCompile(`(\d),(\d)`)
)

// Normalizer converts raw offers into unit-priced offers
type Normalizer struct {
	log zerolog.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(log zerolog.Logger) *Normalizer {
	return &Normalizer{log: log}
}

// Normalize derives the quantity of the offer in target and its unit price.
// The price is never altered; only the denominator is derived. Unit prices are not rounded.
func (n *Normalizer) Normalize(offer domain.RawOffer, target domain.BaseUnit) (domain.NormalizedOffer, error) {
	if err := offer.Validate(); err != nil {
		return domain.NormalizedOffer{}, err
	}

	quantity, err := ParseQuantity(offer.PackageText, target)
	if err != nil {
		n.log.Debug().
			Str("product", offer.ProductName).
			Str("store", offer.StoreName).
			Str("package", offer.PackageText).
			Str("target", string(target)).
			Msg("package text rejected")
		return domain.NormalizedOffer{}, err
	}

	return domain.NormalizedOffer{
		RawOffer:           offer,
		BaseUnit:           target,
		UnitPrice:          offer.RawPrice / quantity,
		QuantityInBaseUnit: quantity,
	}, nil
}

// NormalizeVariants normalizes the offer against every unit in targets and returns the
// variants that succeeded. An empty map with a nil error never happens: if no unit
// works the error is the last parse failure.
func (n *Normalizer) NormalizeVariants(offer domain.RawOffer, targets []domain.BaseUnit) (map[domain.BaseUnit]domain.NormalizedOffer, error) {
	if err := offer.Validate(); err != nil {
		return nil, err
	}

	variants := make(map[domain.BaseUnit]domain.NormalizedOffer, len(targets))
	var lastErr error
	for _, target := range targets {
		normalized, err := n.Normalize(offer, target)
		if err != nil {
			lastErr = err
			continue
		}
		variants[target] = normalized
	}

	if len(variants) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: no target units", domain.ErrParseFailure)
		}
		return nil, lastErr
	}
	return variants, nil
}

// ParseQuantity parses package text into a positive quantity of target.
//
// Multipacks multiply pack count by per-pack quantity before conversion. A bare count
// ("12") is a piece count. A piece target given a multipack of weights or volumes
// ("6x1.5l") counts the packs. When the text holds several numbers, as in a product
// name used as package text ("Rema 1000 Kyllingfilet 400g"), the first one that
// converts to target wins.
func ParseQuantity(packageText string, target domain.BaseUnit) (float64, error) {
	text := strings.ToLower(strings.TrimSpace(packageText))
	text = decimalCommaPattern.ReplaceAllString(text, "$1.$2")

	if text == "" {
		return 0, fmt.Errorf("%w: empty package text", domain.ErrParseFailure)
	}

	matches := packageQuantityPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		// "pk" or "stk" with no number at all is one piece
		if target == domain.UnitPiece {
			if entry, ok := unitTable[strings.Trim(text, ". ")]; ok && entry.unit == domain.UnitPiece {
				return 1, nil
			}
		}
		return 0, fmt.Errorf("%w: no quantity in %q", domain.ErrParseFailure, packageText)
	}

	var firstErr error
	for _, match := range matches {
		quantity, err := matchQuantity(match, target, packageText)
		if err == nil {
			return quantity, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return 0, firstErr
}

// matchQuantity converts one pattern match (pack count, amount, unit token) into target
func matchQuantity(match []string, target domain.BaseUnit, packageText string) (float64, error) {
	packs := 1.0
	hasPacks := match[1] != ""
	if hasPacks {
		p, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: pack count in %q", domain.ErrParseFailure, packageText)
		}
		packs = p
	}

	amount, err := strconv.ParseFloat(match[2], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: quantity in %q", domain.ErrParseFailure, packageText)
	}

	var quantity float64
	token := match[3]
	switch entry, known := unitTable[token]; {
	case token == "":
		if target != domain.UnitPiece {
			return 0, fmt.Errorf("%w: bare count %q for %s", domain.ErrParseFailure, packageText, target)
		}
		quantity = packs * amount
	case !known:
		return 0, fmt.Errorf("%w: unknown unit %q in %q", domain.ErrParseFailure, token, packageText)
	case entry.unit == target:
		quantity = packs * amount * entry.ratio
	case target == domain.UnitPiece && hasPacks:
		quantity = packs
	default:
		return 0, fmt.Errorf("%w: %q is not convertible to %s", domain.ErrParseFailure, packageText, target)
	}

	if quantity <= 0 || math.IsNaN(quantity) || math.IsInf(quantity, 0) {
		return 0, fmt.Errorf("%w: non-positive quantity in %q", domain.ErrParseFailure, packageText)
	}
	return quantity, nil
}
