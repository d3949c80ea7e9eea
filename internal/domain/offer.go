package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// BaseUnit is the canonical denominator a unit price is expressed in
type BaseUnit string

const (
	UnitKilogram BaseUnit = "kilogram"
	UnitLiter    BaseUnit = "liter"
	UnitPiece    BaseUnit = "piece"
)

// Valid reports whether u is one of the supported base units
func (u BaseUnit) Valid() bool {
	switch u {
	case UnitKilogram, UnitLiter, UnitPiece:
		return true
	}
	return false
}

// Short returns the short unit symbol used in prices ("kg", "l", "stk")
func (u BaseUnit) Short() string {
	switch u {
	case UnitKilogram:
		return "kg"
	case UnitLiter:
		return "l"
	case UnitPiece:
		return "stk"
	}
	return "?"
}

// Label returns the price label for the unit, e.g. "kr/kg"
func (u BaseUnit) Label() string {
	return fmt.Sprintf("kr/%s", u.Short())
}

// ParseBaseUnit maps configuration spellings to a BaseUnit
func ParseBaseUnit(s string) (BaseUnit, error) {
	switch s {
	case "kilogram", "kg":
		return UnitKilogram, nil
	case "liter", "litre", "l":
		return UnitLiter, nil
	case "piece", "stk", "pcs":
		return UnitPiece, nil
	}
	return "", fmt.Errorf("%w: unknown base unit %q", ErrConfig, s)
}

// RawOffer is a source-produced offer that is not yet comparable across sources
type RawOffer struct {
	SourceID    string    `json:"sourceId"`
	StoreName   string    `json:"storeName"`
	ProductName string    `json:"productName"`
	RawPrice    float64   `json:"rawPrice"`
	PackageText string    `json:"packageText"`
	URL         string    `json:"url,omitempty"`
	FetchedAt   time.Time `json:"fetchedAt"`
	// PrePrice is the ordinary price before the offer, 0 when the source does not say
	PrePrice float64 `json:"prePrice,omitempty"`
	// ValidUntil is when the offer ends, zero when unknown
	ValidUntil time.Time `json:"validUntil,omitzero"`
}

// Validate checks the RawOffer invariants
func (o RawOffer) Validate() error {
	if !(o.RawPrice > 0) || math.IsInf(o.RawPrice, 0) {
		return fmt.Errorf("%w: price %v for %q", ErrInvalidOffer, o.RawPrice, o.ProductName)
	}
	if strings.TrimSpace(o.ProductName) == "" {
		return fmt.Errorf("%w: empty product name from %q", ErrInvalidOffer, o.SourceID)
	}
	return nil
}

// NormalizedOffer is a RawOffer with a unit price in a canonical base unit
type NormalizedOffer struct {
	RawOffer
	BaseUnit           BaseUnit `json:"baseUnit"`
	UnitPrice          float64  `json:"unitPrice"`
	QuantityInBaseUnit float64  `json:"quantityInBaseUnit"`
	GroupName          string   `json:"groupName,omitempty"`
}

// DedupedOffer is the surviving offer for one (store, canonical product) key within a group
type DedupedOffer struct {
	NormalizedOffer
	Key string `json:"key"`
}

// RankedResult is the per-group outcome of one pipeline run
type RankedResult struct {
	GroupName             string         `json:"groupName"`
	DisplayName           string         `json:"displayName"`
	BaseUnit              BaseUnit       `json:"baseUnit"`
	Top                   []DedupedOffer `json:"top"`
	PreviousBestUnitPrice *float64       `json:"previousBestUnitPrice,omitempty"`
	IsNewBest             bool           `json:"isNewBest"`
	// DropPercent is set on new-best results: how far below the previous best the new best is
	DropPercent float64 `json:"dropPercent,omitempty"`
	// Err holds the history failure that blocked the alert decision for this group, if any
	Err error `json:"-"`
}

// Best returns the lowest-priced offer of the result
func (r RankedResult) Best() (DedupedOffer, bool) {
	if len(r.Top) == 0 {
		return DedupedOffer{}, false
	}
	return r.Top[0], true
}

// Observation is one recorded row in the price history
type Observation struct {
	GroupName   string    `json:"groupName"`
	ObservedAt  time.Time `json:"observedAt"`
	Rank        int       `json:"rank"`
	StoreName   string    `json:"storeName"`
	ProductName string    `json:"productName"`
	UnitPrice   float64   `json:"unitPrice"`
	RawPrice    float64   `json:"rawPrice"`
	BaseUnit    BaseUnit  `json:"baseUnit"`
	URL         string    `json:"url,omitempty"`
}
