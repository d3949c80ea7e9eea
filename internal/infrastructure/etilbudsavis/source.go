package etilbudsavis

import (
	"context"
	"fmt"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/rs/zerolog"
)

// Searcher is the part of Client the source needs
type Searcher interface {
	SearchOffers(ctx context.Context, query string) ([]Offer, error)
}

// Source is an OfferSource backed by flyer search
type Source struct {
	client Searcher
	log    zerolog.Logger
	now    func() time.Time
}

// NewSource creates a flyer source over client
func NewSource(client Searcher, log zerolog.Logger) *Source {
	return &Source{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Name implements domain.OfferSource
func (s *Source) Name() string {
	return SourceID
}

// FetchOffers searches every distinct search term once and returns the offers that are
// currently valid. An offer found by several terms is returned once.
// The source fails only when every search fails.
func (s *Source) FetchOffers(ctx context.Context, groups []domain.GroupConfig) ([]domain.RawOffer, error) {
	terms := domain.SearchTerms(groups)
	if len(terms) == 0 {
		return nil, nil
	}

	now := s.now()
	seen := make(map[string]bool)
	var (
		offers   []domain.RawOffer
		failures int
		lastErr  error
	)

	for _, term := range terms {
		found, err := s.client.SearchOffers(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			s.log.Warn().Err(err).Str("term", term).Msg("flyer search failed")
			continue
		}

		kept := 0
		for _, o := range found {
			if o.ID != "" && seen[o.ID] {
				continue
			}
			if !ValidAt(o, now) {
				continue
			}
			raw, ok := MapToRawOffer(o, now)
			if !ok {
				continue
			}
			if o.ID != "" {
				seen[o.ID] = true
			}
			offers = append(offers, raw)
			kept++
		}
		s.log.Debug().Str("term", term).Int("total", len(found)).Int("kept", kept).Msg("flyer search")
	}

	if failures == len(terms) {
		return nil, fmt.Errorf("%w: all %d searches failed: %v", domain.ErrSourceFailure, failures, lastErr)
	}
	return offers, nil
}
