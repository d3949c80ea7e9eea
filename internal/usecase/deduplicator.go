package usecase

import (
	"github.com/Glx28/billigst-mat/internal/domain"
)

// Deduplicator collapses repeated listings of the same product at the same store.
//
// Identity is a heuristic over product names. It errs toward keeping offers apart:
// a missed merge only shows a product twice, a wrong merge hides a purchase option.
type Deduplicator struct {
	key KeyFunc
}

// NewDeduplicator creates a deduplicator using key, or CanonicalKey when key is nil
func NewDeduplicator(key KeyFunc) *Deduplicator {
	if key == nil {
		key = CanonicalKey
	}
	return &Deduplicator{key: key}
}

// Dedupe keeps one offer per key, in first-seen key order.
// The most recently fetched offer wins; on an exact fetch tie the lower unit price wins,
// then the offer seen first.
func (d *Deduplicator) Dedupe(offers []domain.NormalizedOffer) []domain.DedupedOffer {
	index := make(map[string]int, len(offers))
	out := make([]domain.DedupedOffer, 0, len(offers))

	for _, offer := range offers {
		key := d.key(offer)
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, domain.DedupedOffer{NormalizedOffer: offer, Key: key})
			continue
		}
		if supersedes(offer, out[i].NormalizedOffer) {
			out[i] = domain.DedupedOffer{NormalizedOffer: offer, Key: key}
		}
	}

	return out
}

// supersedes reports whether candidate should replace current for the same key
func supersedes(candidate, current domain.NormalizedOffer) bool {
	if candidate.FetchedAt.After(current.FetchedAt) {
		return true
	}
	if candidate.FetchedAt.Equal(current.FetchedAt) {
		return candidate.UnitPrice < current.UnitPrice
	}
	return false
}
