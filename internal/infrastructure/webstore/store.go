// Package webstore scrapes product listings from online grocery store search pages
package webstore

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// StoreConfig describes how to search one store and where the fields sit in its HTML
type StoreConfig struct {
	Name string
	// SearchURL contains {q}, replaced by the escaped search term
	SearchURL       string
	ItemSelector    string
	NameSelector    string
	PriceSelector   string
	PackageSelector string // optional; the product name is parsed when empty
	LinkSelector    string // optional
	Timeout         time.Duration
}

// Validate checks that the config can produce offers
func (c StoreConfig) Validate() error {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return fmt.Errorf("%w: webstore without name", domain.ErrConfig)
	case !strings.Contains(c.SearchURL, "{q}"):
		return fmt.Errorf("%w: webstore %q search_url lacks {q}", domain.ErrConfig, c.Name)
	case c.ItemSelector == "" || c.NameSelector == "" || c.PriceSelector == "":
		return fmt.Errorf("%w: webstore %q needs item, name and price selectors", domain.ErrConfig, c.Name)
	}
	return nil
}

// Store is an OfferSource over one store's search page
type Store struct {
	config StoreConfig
	http   *resty.Client
	log    zerolog.Logger
	now    func() time.Time
}

// NewStore creates a store scraper
func NewStore(config StoreConfig, log zerolog.Logger) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	client := resty.New().
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (compatible; billigst-mat/1.0)").
		SetHeader("Accept", "text/html").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})

	return &Store{
		config: config,
		http:   client,
		log:    log.With().Str("store", config.Name).Logger(),
		now:    time.Now,
	}, nil
}

// Name implements domain.OfferSource
func (s *Store) Name() string {
	return s.config.Name
}

// FetchOffers searches every distinct search term. Listings without a parseable price
// are skipped. The store fails only when every search fails.
func (s *Store) FetchOffers(ctx context.Context, groups []domain.GroupConfig) ([]domain.RawOffer, error) {
	terms := domain.SearchTerms(groups)
	if len(terms) == 0 {
		return nil, nil
	}

	var (
		offers   []domain.RawOffer
		failures int
		lastErr  error
	)
	for _, term := range terms {
		found, err := s.search(ctx, term)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failures++
			lastErr = err
			s.log.Warn().Err(err).Str("term", term).Msg("store search failed")
			continue
		}
		offers = append(offers, found...)
	}

	if failures == len(terms) {
		return nil, fmt.Errorf("%w: %s: all %d searches failed: %v", domain.ErrSourceFailure, s.config.Name, failures, lastErr)
	}
	return offers, nil
}

func (s *Store) search(ctx context.Context, term string) ([]domain.RawOffer, error) {
	pageURL := strings.ReplaceAll(s.config.SearchURL, "{q}", url.QueryEscape(term))

	res, err := s.http.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing html: %v", domain.ErrUpstreamFailure, err)
	}

	base, _ := url.Parse(pageURL)
	return s.extract(doc, base), nil
}

// extract reads one offer per item node
func (s *Store) extract(doc *goquery.Document, base *url.URL) []domain.RawOffer {
	fetchedAt := s.now()
	var offers []domain.RawOffer

	doc.Find(s.config.ItemSelector).Each(func(_ int, item *goquery.Selection) {
		name := cleanText(item.Find(s.config.NameSelector).First().Text())
		priceText := cleanText(item.Find(s.config.PriceSelector).First().Text())
		if name == "" {
			return
		}

		price, err := ParsePrice(priceText)
		if err != nil {
			s.log.Debug().Str("product", name).Str("price", priceText).Msg("listing without price skipped")
			return
		}

		pkg := name
		if s.config.PackageSelector != "" {
			if text := cleanText(item.Find(s.config.PackageSelector).First().Text()); text != "" {
				pkg = text
			}
		}

		offers = append(offers, domain.RawOffer{
			SourceID:    strings.ToLower(s.config.Name),
			StoreName:   s.config.Name,
			ProductName: name,
			RawPrice:    price,
			PackageText: pkg,
			URL:         s.link(item, base),
			FetchedAt:   fetchedAt,
		})
	})

	return offers
}

func (s *Store) link(item *goquery.Selection, base *url.URL) string {
	if s.config.LinkSelector == "" {
		return ""
	}
	href, ok := item.Find(s.config.LinkSelector).First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return ""
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
