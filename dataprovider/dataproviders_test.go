package dataprovider

import (
	"math"
	"testing"

	"Tradewinds/utilities"
)

func TestQuoteFromBars(t *testing.T) {
	bars := []utilities.OHLCVBar{
		{Timestamp: 100, Open: 9.5, High: 10.5, Low: 9, Close: 10, Volume: 500},
		{Timestamp: 160, Open: 10, High: 11.5, Low: 9.8, Close: 11, Volume: 800},
	}

	q, ok := QuoteFromBars("AAPL", bars)
	if !ok {
		t.Fatalf("expected a quote")
	}
	if q.Symbol != "AAPL" || q.Price != 11 {
		t.Errorf("quote = %+v", q)
	}
	if math.Abs(q.Change-1) > 1e-9 {
		t.Errorf("change = %v, want 1", q.Change)
	}
	if math.Abs(q.ChangePercent-10) > 1e-9 {
		t.Errorf("change percent = %v, want 10", q.ChangePercent)
	}
	if q.High != 11.5 || q.Low != 9.8 || q.Open != 10 {
		t.Errorf("range fields = %+v", q)
	}
	if q.Timestamp.Unix() != 160 {
		t.Errorf("timestamp = %v, want unix 160", q.Timestamp)
	}
}

func TestQuoteFromBarsSingleBar(t *testing.T) {
	bars := []utilities.OHLCVBar{{Timestamp: 100, Close: 10, Volume: 500}}
	q, ok := QuoteFromBars("MSFT", bars)
	if !ok {
		t.Fatalf("expected a quote")
	}
	if q.Change != 0 || q.ChangePercent != 0 {
		t.Errorf("single bar must report zero change: %+v", q)
	}
}

func TestQuoteFromBarsEmpty(t *testing.T) {
	if _, ok := QuoteFromBars("TSLA", nil); ok {
		t.Errorf("empty history must not produce a quote")
	}
}
