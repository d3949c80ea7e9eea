package etilbudsavis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	maxRetries   = 3
	maxBodyBytes = 5 << 20
)

// Config holds the flyer API settings
type Config struct {
	APIKey      string
	BaseURL     string
	Lat         float64
	Lng         float64
	Radius      int // meters
	PageSize    int
	RatePerHour float64
	CacheTTL    time.Duration
	Timeout     time.Duration
}

// Client handles communication with the eTilbudsavis (Tjek) offer API
type Client struct {
	httpClient  *http.Client
	config      Config
	rateLimiter *rate.Limiter
	cache       domain.CacheRepository
	log         zerolog.Logger
	debug       bool
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new API client. cache may be nil.
func NewClient(config Config, cache domain.CacheRepository, log zerolog.Logger) *Client {
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	if config.Timeout <= 0 {
		config.Timeout = 20 * time.Second
	}
	if config.RatePerHour <= 0 {
		config.RatePerHour = 1000
	}

	// rate.Limit is requests per second
	limiter := rate.NewLimiter(rate.Limit(config.RatePerHour/3600), 10)

	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config:      config,
		rateLimiter: limiter,
		cache:       cache,
		log:         log,
		backoff:     exponentialBackoff,
	}
}

// SetDebug toggles logging of response bodies
func (c *Client) SetDebug(debug bool) {
	c.debug = debug
}

func (c *Client) debugLog(format string, args ...interface{}) {
	if c.debug {
		c.log.Debug().Msgf(format, args...)
	}
}

// exponentialBackoff returns the wait before retrying after attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return 500 * time.Millisecond * time.Duration(1<<(attempt-1))
}

// readLimitedBody reads at most limit bytes
func readLimitedBody(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

// doRequest executes an HTTP GET request with proper headers
func (c *Client) doRequest(ctx context.Context, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "billigst-mat/1.0")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamFailure, err)
	}
	return resp, nil
}

// searchURL builds the geo-scoped search request
func (c *Client) searchURL(query string) (string, error) {
	base, err := url.Parse(c.config.BaseURL + "/offers/search")
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("r_lat", strconv.FormatFloat(c.config.Lat, 'f', -1, 64))
	params.Set("r_lng", strconv.FormatFloat(c.config.Lng, 'f', -1, 64))
	params.Set("r_radius", strconv.Itoa(c.config.Radius))
	params.Set("limit", strconv.Itoa(c.config.PageSize))
	params.Set("offset", "0")
	params.Set("order_by", "-score")
	base.RawQuery = params.Encode()

	return base.String(), nil
}

func cacheKey(query string) string {
	return "etilbudsavis:search:" + query
}

// SearchOffers searches offers matching query. An empty result is not an error.
// 429 and 5xx responses are retried with exponential backoff; other non-200 responses are not.
func (c *Client) SearchOffers(ctx context.Context, query string) ([]Offer, error) {
	if c.cache != nil {
		if body, err := c.cache.Get(ctx, cacheKey(query)); err == nil {
			var offers []Offer
			if err := json.Unmarshal(body, &offers); err == nil {
				c.log.Debug().Str("query", query).Int("offers", len(offers)).Msg("search served from cache")
				return offers, nil
			}
			_ = c.cache.Delete(ctx, cacheKey(query))
		}
	}

	reqURL, err := c.searchURL(query)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		resp, err := c.doRequest(ctx, reqURL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn().Err(err).Int("attempt", attempt).Str("query", query).Msg("search request failed")
			lastErr = err
			continue
		}

		body, err := readLimitedBody(resp.Body, maxBodyBytes)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: reading body: %v", domain.ErrUpstreamFailure, err)
			continue
		}
		c.debugLog("search %q status %d body %s", query, resp.StatusCode, truncate(body, 512))

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("%w: status %d", domain.ErrUpstreamFailure, resp.StatusCode)
			if !retryable(resp.StatusCode) {
				return nil, lastErr
			}
			c.log.Warn().Int("status", resp.StatusCode).Int("attempt", attempt).Str("query", query).Msg("search retrying")
			continue
		}

		var offers []Offer
		if err := json.Unmarshal(body, &offers); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}

		if c.cache != nil {
			if err := c.cache.Set(ctx, cacheKey(query), body, c.config.CacheTTL); err != nil {
				c.log.Warn().Err(err).Str("query", query).Msg("cache set failed")
			}
		}
		return offers, nil
	}

	return nil, lastErr
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
