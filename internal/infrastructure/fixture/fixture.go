// Package fixture serves offers from local JSON5 files, for offline runs and saved flyer dumps
package fixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/rs/zerolog"
	"github.com/titanous/json5"
)

// SourceName identifies offers that came from fixture files
const SourceName = "fixture"

// fileOffer is the on-disk shape of one offer
type fileOffer struct {
	SourceID    string    `json:"source_id"`
	StoreName   string    `json:"store_name"`
	ProductName string    `json:"product_name"`
	RawPrice    float64   `json:"raw_price"`
	PackageText string    `json:"package_text"`
	URL         string    `json:"url"`
	FetchedAt   time.Time `json:"fetched_at"`
	PrePrice    float64   `json:"pre_price"`
	ValidUntil  time.Time `json:"valid_until"`
}

// Source reads offers from files on every fetch
type Source struct {
	paths []string
	log   zerolog.Logger
	now   func() time.Time
}

// NewSource creates a source over the given files
func NewSource(paths []string, log zerolog.Logger) *Source {
	return &Source{paths: paths, log: log, now: time.Now}
}

// Name implements domain.OfferSource
func (s *Source) Name() string {
	return SourceName
}

// FetchOffers returns every offer in every file; grouping is left to the pipeline.
// A broken file is skipped; the source fails only when every file is broken.
func (s *Source) FetchOffers(ctx context.Context, groups []domain.GroupConfig) ([]domain.RawOffer, error) {
	var (
		offers   []domain.RawOffer
		failures int
		lastErr  error
	)

	for _, path := range s.paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		found, err := ReadFile(path, s.now())
		if err != nil {
			failures++
			lastErr = err
			s.log.Warn().Err(err).Str("file", path).Msg("fixture file skipped")
			continue
		}
		offers = append(offers, found...)
	}

	if len(s.paths) > 0 && failures == len(s.paths) {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceFailure, lastErr)
	}
	return offers, nil
}

// ReadFile decodes a JSON5 array of offers. Missing source ids default to the file name
// and missing fetch times to now. Offers are returned as written; JSON5 allows NaN and
// Infinity prices, which RawOffer.Validate rejects downstream.
func ReadFile(path string, now time.Time) ([]domain.RawOffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}

	var decoded []fileOffer
	if err := json5.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding fixture %s: %w", filepath.Base(path), err)
	}

	offers := make([]domain.RawOffer, 0, len(decoded))
	for _, o := range decoded {
		if o.SourceID == "" {
			o.SourceID = SourceName + ":" + filepath.Base(path)
		}
		if o.FetchedAt.IsZero() {
			o.FetchedAt = now
		}
		offers = append(offers, domain.RawOffer{
			SourceID:    o.SourceID,
			StoreName:   o.StoreName,
			ProductName: o.ProductName,
			RawPrice:    o.RawPrice,
			PackageText: o.PackageText,
			URL:         o.URL,
			FetchedAt:   o.FetchedAt,
			PrePrice:    o.PrePrice,
			ValidUntil:  o.ValidUntil,
		})
	}
	return offers, nil
}
