// File: dataprovider/yahoo/yfclient.go
package yahoo

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"golang.org/x/time/rate"

	"Tradewinds/dataprovider"
	"Tradewinds/utilities"
)

// Client fetches equity market data from Yahoo Finance. Upstream calls are
// rate limited and retried; fetched bars are written through to the SQLite
// cache so a failing upstream can still serve recent history.
type Client struct {
	cfg     utilities.DataConfig
	logger  *utilities.Logger
	limiter *rate.Limiter
	cache   *dataprovider.SQLiteCache
}

// intervalMap translates bar interval strings to the chart API's enum.
var intervalMap = map[string]datetime.Interval{
	"1m":  datetime.OneMin,
	"5m":  datetime.FiveMins,
	"15m": datetime.FifteenMins,
	"30m": datetime.ThirtyMins,
	"1h":  datetime.OneHour,
	"1d":  datetime.OneDay,
}

// periodDays translates lookback period strings to calendar days.
var periodDays = map[string]int{
	"1d":  1,
	"5d":  5,
	"1mo": 30,
	"3mo": 90,
	"6mo": 180,
	"1y":  365,
}

// NewClient creates a Yahoo Finance client. The cache may be nil, in which
// case fetch failures have no fallback.
func NewClient(cfg utilities.DataConfig, cache *dataprovider.SQLiteCache, logger *utilities.Logger) *Client {
	perSec := cfg.RateLimitPerSec
	if perSec <= 0 {
		perSec = 2
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(perSec), burst),
		cache:   cache,
	}
}

// GetOHLCV returns the bar history for a symbol. On upstream failure the
// most recent cached bars are served instead; the error is returned only
// when neither source yields data.
func (c *Client) GetOHLCV(ctx context.Context, symbol, period, interval string) ([]utilities.OHLCVBar, error) {
	bars, err := c.fetchBars(ctx, symbol, period, interval)
	if err == nil {
		if c.cache != nil {
			if cacheErr := c.cache.SaveBars(symbol, interval, bars); cacheErr != nil {
				c.logger.LogWarn("yahoo: failed to cache %d bars for %s: %v", len(bars), symbol, cacheErr)
			}
		}
		return bars, nil
	}

	c.logger.LogWarn("yahoo: fetch failed for %s: %v", symbol, err)
	if c.cache != nil {
		cached, cacheErr := c.cache.GetRecentBars(symbol, interval, 1000)
		if cacheErr == nil && len(cached) > 0 {
			c.logger.LogInfo("yahoo: serving %d cached bars for %s", len(cached), symbol)
			return cached, nil
		}
	}
	return nil, err
}

func (c *Client) fetchBars(ctx context.Context, symbol, period, interval string) ([]utilities.OHLCVBar, error) {
	days, ok := periodDays[period]
	if !ok {
		return nil, fmt.Errorf("unsupported period %q", period)
	}
	chartInterval, ok := intervalMap[interval]
	if !ok {
		return nil, fmt.Errorf("unsupported interval %q", interval)
	}

	var bars []utilities.OHLCVBar
	err := c.withRetry(ctx, func() error {
		end := time.Now()
		start := end.AddDate(0, 0, -days)
		params := &chart.Params{
			Symbol:   symbol,
			Start:    datetime.New(&start),
			End:      datetime.New(&end),
			Interval: chartInterval,
		}

		iter := chart.Get(params)
		fetched := make([]utilities.OHLCVBar, 0, 128)
		for iter.Next() {
			b := iter.Bar()
			open, _ := b.Open.Float64()
			high, _ := b.High.Float64()
			low, _ := b.Low.Float64()
			closePx, _ := b.Close.Float64()
			fetched = append(fetched, utilities.OHLCVBar{
				Timestamp: int64(b.Timestamp),
				Open:      open,
				High:      high,
				Low:       low,
				Close:     closePx,
				Volume:    float64(b.Volume),
			})
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("chart request for %s: %w", symbol, err)
		}
		if len(fetched) == 0 {
			return fmt.Errorf("chart request for %s returned no bars", symbol)
		}
		bars = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}

	utilities.SortBarsByTimestamp(bars)
	return bars, nil
}

// GetLatestQuote uses the quote endpoint, falling back to derivation from
// the two most recent cached bars when the endpoint fails.
func (c *Client) GetLatestQuote(ctx context.Context, symbol string) (dataprovider.Quote, error) {
	var q dataprovider.Quote
	err := c.withRetry(ctx, func() error {
		res, err := quote.Get(symbol)
		if err != nil {
			return fmt.Errorf("quote request for %s: %w", symbol, err)
		}
		if res == nil {
			return fmt.Errorf("quote request for %s returned nothing", symbol)
		}
		q = dataprovider.Quote{
			Symbol:        symbol,
			Price:         res.RegularMarketPrice,
			Change:        res.RegularMarketChange,
			ChangePercent: res.RegularMarketChangePercent,
			Volume:        float64(res.RegularMarketVolume),
			High:          res.RegularMarketDayHigh,
			Low:           res.RegularMarketDayLow,
			Open:          res.RegularMarketOpen,
			Timestamp:     time.Unix(int64(res.RegularMarketTime), 0).UTC(),
		}
		return nil
	})
	if err == nil {
		return q, nil
	}

	if c.cache != nil {
		cached, cacheErr := c.cache.GetRecentBars(symbol, c.cfg.Interval, 2)
		if cacheErr == nil {
			if derived, ok := dataprovider.QuoteFromBars(symbol, cached); ok {
				c.logger.LogInfo("yahoo: derived quote for %s from cached bars", symbol)
				return derived, nil
			}
		}
	}
	return dataprovider.Quote{}, err
}

// withRetry waits for the rate limiter, then runs fn up to MaxRetries+1
// times with a fixed delay between attempts.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	retries := c.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := time.Duration(c.cfg.RetryDelaySec) * time.Second
	if delay <= 0 {
		delay = time.Second
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt < retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
