package usecase

import (
	"sort"
	"strings"

	"github.com/Glx28/billigst-mat/internal/domain"
)

// Ranker orders a group's offers and decides whether the run found a new best price
type Ranker struct {
	defaultTopN int
}

// NewRanker creates a ranker; defaultTopN applies to groups without top_n
func NewRanker(defaultTopN int) *Ranker {
	if defaultTopN <= 0 {
		defaultTopN = domain.DefaultTopN
	}
	return &Ranker{defaultTopN: defaultTopN}
}

// Rank sorts by unit price (ties by store name, then product name), keeps the top N and
// evaluates the trigger.
//
// A missing previous best never triggers: the first observation of a group has nothing
// to improve on. A threshold, when set, must also be met.
func (r *Ranker) Rank(deduped []domain.DedupedOffer, group domain.GroupConfig, previousBest *float64) domain.RankedResult {
	result := domain.RankedResult{
		GroupName:             group.Name,
		DisplayName:           group.Label(),
		BaseUnit:              group.BaseUnit,
		Top:                   []domain.DedupedOffer{},
		PreviousBestUnitPrice: previousBest,
	}

	if len(deduped) == 0 {
		return result
	}

	sorted := make([]domain.DedupedOffer, len(deduped))
	copy(sorted, deduped)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.UnitPrice != b.UnitPrice {
			return a.UnitPrice < b.UnitPrice
		}
		if c := strings.Compare(a.StoreName, b.StoreName); c != 0 {
			return c < 0
		}
		return a.ProductName < b.ProductName
	})

	topN := group.TopN
	if topN <= 0 {
		topN = r.defaultTopN
	}
	if len(sorted) > topN {
		sorted = sorted[:topN]
	}
	result.Top = sorted

	best := sorted[0].UnitPrice
	result.IsNewBest = IsNewBest(best, previousBest, group.Threshold)
	if result.IsNewBest {
		if prev := *previousBest; prev > 0 {
			result.DropPercent = (1 - best/prev) * 100
		}
	}

	return result
}

// IsNewBest is the trigger condition for a group's lowest unit price
func IsNewBest(best float64, previousBest, threshold *float64) bool {
	if previousBest == nil {
		return false
	}
	if best >= *previousBest {
		return false
	}
	if threshold != nil && best > *threshold {
		return false
	}
	return true
}
