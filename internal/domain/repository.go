package domain

import (
	"context"
	"time"
)

// CacheRepository stores encoded upstream responses for a limited time
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// OfferSource produces raw offers for the configured groups.
// A failing source contributes zero offers to a run; it never aborts it.
type OfferSource interface {
	Name() string
	FetchOffers(ctx context.Context, groups []GroupConfig) ([]RawOffer, error)
}

// HistoryStore is the append-only price history
type HistoryStore interface {
	// GetPreviousBest returns the best unit price recorded for the group, or nil when none exists
	GetPreviousBest(ctx context.Context, groupName string) (*float64, error)
	// RecordObservation appends the offers as observations at ts; prior rows are never modified
	RecordObservation(ctx context.Context, groupName string, offers []DedupedOffer, ts time.Time) error
	// History returns per-run best observations for the group, newest first
	History(ctx context.Context, groupName string, limit int) ([]Observation, error)
}

// Notifier delivers results whose IsNewBest is true
type Notifier interface {
	Notify(ctx context.Context, results []RankedResult) error
}
