package dataprovider

import (
	"context"
	"time"

	"Tradewinds/utilities"
)

// DataProvider defines the interface for accessing market data.
type DataProvider interface {
	// GetOHLCV returns the bar history for a symbol over a lookback
	// period ("5d", "1mo", ...) at a bar interval ("1m", "1h", "1d").
	GetOHLCV(ctx context.Context, symbol, period, interval string) ([]utilities.OHLCVBar, error)
	// GetLatestQuote returns the most recent quote for a symbol.
	GetLatestQuote(ctx context.Context, symbol string) (Quote, error)
}

// Quote is a point-in-time snapshot of a symbol's trading state.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Open          float64   `json:"open"`
	Timestamp     time.Time `json:"timestamp"`
}

// QuoteFromBars derives a quote from the two most recent bars. With a
// single bar the change fields are zero. Returns false for empty input.
func QuoteFromBars(symbol string, bars []utilities.OHLCVBar) (Quote, bool) {
	if len(bars) == 0 {
		return Quote{}, false
	}
	latest := bars[len(bars)-1]
	previous := latest
	if len(bars) > 1 {
		previous = bars[len(bars)-2]
	}

	q := Quote{
		Symbol:    symbol,
		Price:     latest.Close,
		Volume:    latest.Volume,
		High:      latest.High,
		Low:       latest.Low,
		Open:      latest.Open,
		Timestamp: time.Unix(latest.Timestamp, 0).UTC(),
	}
	if previous.Close != 0 && len(bars) > 1 {
		q.Change = latest.Close - previous.Close
		q.ChangePercent = (latest.Close - previous.Close) / previous.Close * 100
	}
	return q, true
}
