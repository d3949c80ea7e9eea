package etilbudsavis

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Glx28/billigst-mat/internal/domain"
	"github.com/Glx28/billigst-mat/internal/infrastructure/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string, c domain.CacheRepository) *Client {
	client := NewClient(Config{
		APIKey:      "test-api-key",
		BaseURL:     baseURL,
		Lat:         59.9139,
		Lng:         10.7522,
		Radius:      5000,
		PageSize:    25,
		RatePerHour: 3600 * 1000,
		CacheTTL:    time.Minute,
	}, c, zerolog.Nop())
	client.backoff = func(int) time.Duration { return time.Millisecond }
	return client
}

func writeOffers(w http.ResponseWriter, offers []Offer) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offers)
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{APIKey: "k", BaseURL: "https://api.example.com"}, nil, zerolog.Nop())

	assert.NotNil(t, client)
	assert.Equal(t, "k", client.config.APIKey)
	assert.Equal(t, 50, client.config.PageSize)
	assert.Equal(t, 20*time.Second, client.httpClient.Timeout)
	assert.NotNil(t, client.rateLimiter)
	assert.False(t, client.debug)
}

func TestSetDebug(t *testing.T) {
	client := newTestClient("https://api.example.com", nil)

	assert.False(t, client.debug)

	client.SetDebug(true)
	assert.True(t, client.debug)
	client.debugLog("body %s", "x")

	client.SetDebug(false)
	assert.False(t, client.debug)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 500 * time.Millisecond},
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
	}
}

func TestSearchOffers_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/offers/search", r.URL.Path)
		assert.Equal(t, "kyllingfilet", r.URL.Query().Get("query"))
		assert.Equal(t, "59.9139", r.URL.Query().Get("r_lat"))
		assert.Equal(t, "10.7522", r.URL.Query().Get("r_lng"))
		assert.Equal(t, "5000", r.URL.Query().Get("r_radius"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "test-api-key", r.Header.Get("X-Api-Key"))

		writeOffers(w, []Offer{{ID: "o1", Heading: "Kyllingfilet", Pricing: Pricing{Price: 89.9}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL, nil)

	offers, err := client.SearchOffers(context.Background(), "kyllingfilet")

	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Equal(t, "o1", offers[0].ID)
	assert.Equal(t, 89.9, offers[0].Pricing.Price)
}

func TestSearchOffers_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeOffers(w, []Offer{})
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "ingenting")

	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestSearchOffers_ServerError_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		writeOffers(w, []Offer{{ID: "o1", Heading: "Egg", Pricing: Pricing{Price: 42}}})
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "egg")

	require.NoError(t, err)
	assert.Len(t, offers, 1)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_TooManyRequests_Retries(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeOffers(w, []Offer{})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "egg")

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_ClientError_NoRetry(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "egg")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_AllRetriesFail(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "egg")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, domain.ErrUpstreamFailure)
	assert.Equal(t, int32(maxRetries), atomic.LoadInt32(&attempts))
}

func TestSearchOffers_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	offers, err := newTestClient(server.URL, nil).SearchOffers(context.Background(), "egg")

	assert.Nil(t, offers)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestSearchOffers_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	offers, err := newTestClient(server.URL, nil).SearchOffers(ctx, "egg")

	assert.Nil(t, offers)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSearchOffers_RequestCreationError(t *testing.T) {
	offers, err := newTestClient("://invalid-url", nil).SearchOffers(context.Background(), "egg")

	assert.Nil(t, offers)
	assert.Error(t, err)
}

func TestSearchOffers_Cached(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeOffers(w, []Offer{{ID: "o1", Heading: "Egg", Pricing: Pricing{Price: 42}}})
	}))
	defer server.Close()

	mem := cache.NewMemoryCache(0)
	defer mem.Close()
	client := newTestClient(server.URL, mem)

	first, err := client.SearchOffers(context.Background(), "egg")
	require.NoError(t, err)
	second, err := client.SearchOffers(context.Background(), "egg")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	_, err = client.SearchOffers(context.Background(), "melk")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts), "cache is keyed by query")
}

func TestReadLimitedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			w.Write([]byte("0123456789"))
		}
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := readLimitedBody(resp.Body, 100)
	require.NoError(t, err)
	assert.Len(t, body, 100)
}
