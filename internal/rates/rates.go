// Package rates provides the USDT to VES exchange rate used to price manual
// bank-transfer checkouts.
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"krostyshop/internal/provider/base"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const DefaultURL = "https://criptoya.com/api/binancep2p/USDT/VES/0.1"

var ErrUnavailable = errors.New("exchange rate unavailable")

// Provider returns the current fiat units per USDT
type Provider interface {
	Rate(ctx context.Context) (decimal.Decimal, error)
}

// Client fetches the P2P ask price from a criptoya-style quote endpoint
type Client struct {
	url  string
	http *base.HTTPClient
}

func NewClient(url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{url: url, http: base.NewHTTPClient("rates", 10)}
}

type quote struct {
	Ask decimal.NullDecimal `json:"ask"`
	Bid decimal.NullDecimal `json:"bid"`
}

func (c *Client) Rate(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.http.Get(ctx, c.url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !resp.IsSuccess() {
		return decimal.Zero, fmt.Errorf("%w: quote endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	var q quote
	if err := resp.UnmarshalJSON(&q); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decode quote: %v", ErrUnavailable, err)
	}
	if !q.Ask.Valid || !q.Ask.Decimal.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quote has no ask price", ErrUnavailable)
	}
	return q.Ask.Decimal, nil
}

// Cache stores the last fetched rate
type Cache interface {
	Get(ctx context.Context, key string) (decimal.Decimal, bool, error)
	Set(ctx context.Context, key string, rate decimal.Decimal, ttl time.Duration) error
}

// Cached serves rates from Cache and refreshes from the source on miss
type Cached struct {
	source Provider
	cache  Cache
	key    string
	ttl    time.Duration
}

func NewCached(source Provider, cache Cache, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cached{source: source, cache: cache, key: "rates:usdt_ves", ttl: ttl}
}

func (c *Cached) Rate(ctx context.Context) (decimal.Decimal, error) {
	rate, ok, err := c.cache.Get(ctx, c.key)
	if err != nil {
		// a broken cache must not block checkout
		log.Warn().Err(err).Msg("rate cache read failed")
	} else if ok {
		return rate, nil
	}

	rate, err = c.source.Rate(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	if err := c.cache.Set(ctx, c.key, rate, c.ttl); err != nil {
		log.Warn().Err(err).Msg("rate cache write failed")
	}
	log.Debug().Str("rate", rate.String()).Msg("exchange rate refreshed")
	return rate, nil
}
