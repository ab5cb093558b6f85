package strategy

import (
	"testing"

	"Tradewinds/utilities"
)

func barsFromCloses(closes ...float64) []utilities.OHLCVBar {
	bars := make([]utilities.OHLCVBar, len(closes))
	for i, c := range closes {
		bars[i] = utilities.OHLCVBar{
			Timestamp: int64(i),
			Open:      c,
			High:      c,
			Low:       c,
			Close:     c,
			Volume:    1000,
		}
	}
	return bars
}

func TestGeneratorsInsufficientData(t *testing.T) {
	bars := barsFromCloses(1, 2, 3)

	cases := []struct {
		name string
		sig  StrategySignal
	}{
		{"SMA", SMASignal(bars, 20, 50)},
		{"RSI", RSISignal(bars, 14, 30, 70)},
		{"MACD", MACDSignal(bars, 12, 26, 9)},
		{"Bollinger Bands", BollingerSignal(bars, 20, 2)},
	}
	for _, c := range cases {
		if c.sig.Direction != Hold {
			t.Errorf("%s: direction = %s, want HOLD", c.name, c.sig.Direction)
		}
		if c.sig.Strength != 0 {
			t.Errorf("%s: strength = %v, want 0", c.name, c.sig.Strength)
		}
		if c.sig.Reason != "Insufficient data" {
			t.Errorf("%s: reason = %q", c.name, c.sig.Reason)
		}
	}
}

func TestSMASignalCrossover(t *testing.T) {
	// Short MA below long on the previous bar, above on the latest.
	bars := barsFromCloses(10, 9, 8, 12)
	sig := SMASignal(bars, 2, 3)
	if sig.Direction != Buy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if sig.Strength <= 0 || sig.Strength > 100 {
		t.Errorf("strength = %v, want in (0, 100]", sig.Strength)
	}
	if sig.ShortMA <= sig.LongMA {
		t.Errorf("short MA %v should exceed long MA %v", sig.ShortMA, sig.LongMA)
	}

	// Mirror image crosses downward.
	bars = barsFromCloses(10, 11, 12, 8)
	sig = SMASignal(bars, 2, 3)
	if sig.Direction != Sell {
		t.Fatalf("direction = %s, want SELL", sig.Direction)
	}
}

func TestSMASignalSteadyState(t *testing.T) {
	bars := barsFromCloses(1, 2, 3, 4, 5, 6)
	sig := SMASignal(bars, 2, 3)
	if sig.Direction != HoldBullish {
		t.Errorf("direction = %s, want HOLD_BULLISH", sig.Direction)
	}

	bars = barsFromCloses(6, 5, 4, 3, 2, 1)
	sig = SMASignal(bars, 2, 3)
	if sig.Direction != HoldBearish {
		t.Errorf("direction = %s, want HOLD_BEARISH", sig.Direction)
	}
}

func TestRSISignalCrossIntoOversold(t *testing.T) {
	// Deltas +1, +1, -7: RSI drops from 100 to 12.5 on the latest bar.
	bars := barsFromCloses(10, 11, 12, 5)
	sig := RSISignal(bars, 2, 30, 70)
	if sig.Direction != Buy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if !almostEqual(sig.RSI, 12.5) {
		t.Errorf("rsi = %v, want 12.5", sig.RSI)
	}
	if !almostEqual(sig.Strength, (30-12.5)/30*100) {
		t.Errorf("strength = %v", sig.Strength)
	}
}

func TestRSISignalTerritoryAndSell(t *testing.T) {
	// Staying saturated at 100 reports overbought territory, not SELL.
	bars := barsFromCloses(1, 2, 3, 4, 5)
	sig := RSISignal(bars, 2, 30, 70)
	if sig.Direction != HoldOverbought {
		t.Errorf("direction = %s, want HOLD_OVERBOUGHT", sig.Direction)
	}

	// Staying depressed reports oversold territory.
	bars = barsFromCloses(10, 11, 12, 5, 4)
	sig = RSISignal(bars, 2, 30, 70)
	if sig.Direction != HoldOversold {
		t.Errorf("direction = %s, want HOLD_OVERSOLD", sig.Direction)
	}
}

func TestMACDSignalTrendSides(t *testing.T) {
	rising := barsFromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)
	sig := MACDSignal(rising, 2, 4, 3)
	if sig.Direction != Buy && sig.Direction != HoldBullish {
		t.Errorf("rising series direction = %s, want bullish side", sig.Direction)
	}
	if sig.MACD <= sig.MACDSignal {
		t.Errorf("macd %v should exceed signal %v on a rising series", sig.MACD, sig.MACDSignal)
	}

	falling := barsFromCloses(12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1)
	sig = MACDSignal(falling, 2, 4, 3)
	if sig.Direction != Sell && sig.Direction != HoldBearish {
		t.Errorf("falling series direction = %s, want bearish side", sig.Direction)
	}
}

func TestMACDSignalCrossover(t *testing.T) {
	// A long decline followed by a sharp recovery forces the MACD line
	// back above its signal line; the first bullish bar must be BUY.
	closes := []float64{20, 19, 18, 17, 16, 15, 14, 13, 12, 11, 10, 14, 18, 22, 26}
	var sawCrossover bool
	for n := 8; n <= len(closes); n++ {
		sig := MACDSignal(barsFromCloses(closes[:n]...), 3, 6, 4)
		if sig.Direction == Buy {
			sawCrossover = true
			break
		}
	}
	if !sawCrossover {
		t.Errorf("expected a BUY crossover during the recovery")
	}
}

func TestBollingerSignalTouchLower(t *testing.T) {
	bars := barsFromCloses(10, 10, 1)
	sig := BollingerSignal(bars, 3, 0.5)
	if sig.Direction != Buy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if sig.Strength <= 0 {
		t.Errorf("strength = %v, want > 0", sig.Strength)
	}
	if sig.BBLower <= sig.CurrentPrice {
		t.Errorf("price %v should sit below lower band %v", sig.CurrentPrice, sig.BBLower)
	}
}

func TestBollingerSignalTouchUpperAndNeutral(t *testing.T) {
	bars := barsFromCloses(10, 10, 19)
	sig := BollingerSignal(bars, 3, 0.5)
	if sig.Direction != Sell {
		t.Fatalf("direction = %s, want SELL", sig.Direction)
	}

	bars = barsFromCloses(10, 10.2, 9.8, 10.1, 9.9)
	sig = BollingerSignal(bars, 3, 2)
	if sig.Direction != HoldNeutral {
		t.Errorf("direction = %s, want HOLD_NEUTRAL", sig.Direction)
	}
	if sig.Strength != 0 {
		t.Errorf("neutral strength = %v, want 0", sig.Strength)
	}
}
