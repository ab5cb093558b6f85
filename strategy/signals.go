package strategy

import (
	"fmt"
	"math"

	"Tradewinds/utilities"
)

// Direction is the per-strategy signal vocabulary.
type Direction string

const (
	Buy            Direction = "BUY"
	Sell           Direction = "SELL"
	Hold           Direction = "HOLD"
	HoldBullish    Direction = "HOLD_BULLISH"
	HoldBearish    Direction = "HOLD_BEARISH"
	HoldOversold   Direction = "HOLD_OVERSOLD"
	HoldOverbought Direction = "HOLD_OVERBOUGHT"
	HoldNeutral    Direction = "HOLD_NEUTRAL"
)

// StrategySignal is a single strategy's verdict on the latest bar. The
// diagnostic fields are populated per strategy; unused ones stay zero and
// are omitted from JSON output.
type StrategySignal struct {
	Strategy     string    `json:"strategy"`
	Direction    Direction `json:"signal"`
	Strength     float64   `json:"strength"`
	Reason       string    `json:"reason"`
	CurrentPrice float64   `json:"current_price"`

	ShortMA       float64 `json:"short_ma,omitempty"`
	LongMA        float64 `json:"long_ma,omitempty"`
	RSI           float64 `json:"rsi,omitempty"`
	MACD          float64 `json:"macd,omitempty"`
	MACDSignal    float64 `json:"macd_signal,omitempty"`
	MACDHistogram float64 `json:"macd_histogram,omitempty"`
	BBUpper       float64 `json:"bb_upper,omitempty"`
	BBMiddle      float64 `json:"bb_middle,omitempty"`
	BBLower       float64 `json:"bb_lower,omitempty"`
}

func insufficientData(strategyName string) StrategySignal {
	return StrategySignal{
		Strategy:  strategyName,
		Direction: Hold,
		Strength:  0,
		Reason:    "Insufficient data",
	}
}

// SMASignal evaluates the short/long moving average crossover on the latest
// bar versus the previous one.
func SMASignal(bars []utilities.OHLCVBar, shortWindow, longWindow int) StrategySignal {
	if len(bars) < longWindow {
		return insufficientData("SMA")
	}

	closes := Closes(bars)
	shortMA := SMASeries(closes, shortWindow)
	longMA := SMASeries(closes, longWindow)

	last := len(bars) - 1
	prev := last
	if last > 0 {
		prev = last - 1
	}

	sig := StrategySignal{
		Strategy:     "SMA",
		CurrentPrice: closes[last],
		ShortMA:      shortMA[last],
		LongMA:       longMA[last],
	}
	gap := utilities.Clamp(math.Abs(shortMA[last]-longMA[last])/longMA[last]*100, 0, 100)

	switch {
	case shortMA[last] > longMA[last] && shortMA[prev] <= longMA[prev]:
		sig.Direction = Buy
		sig.Strength = gap
		sig.Reason = fmt.Sprintf("SMA crossover: %d-day MA crossed above %d-day MA", shortWindow, longWindow)
	case shortMA[last] < longMA[last] && shortMA[prev] >= longMA[prev]:
		sig.Direction = Sell
		sig.Strength = gap
		sig.Reason = fmt.Sprintf("SMA crossover: %d-day MA crossed below %d-day MA", shortWindow, longWindow)
	case shortMA[last] > longMA[last]:
		sig.Direction = HoldBullish
		sig.Strength = gap
		sig.Reason = fmt.Sprintf("Bullish trend: %d-day MA above %d-day MA", shortWindow, longWindow)
	default:
		sig.Direction = HoldBearish
		sig.Strength = gap
		sig.Reason = fmt.Sprintf("Bearish trend: %d-day MA below %d-day MA", shortWindow, longWindow)
	}
	return sig
}

// RSISignal fires BUY/SELL when the oscillator crosses into the oversold or
// overbought zone, and reports territory while it stays there.
func RSISignal(bars []utilities.OHLCVBar, period int, oversold, overbought float64) StrategySignal {
	if len(bars) < period+1 {
		return insufficientData("RSI")
	}

	closes := Closes(bars)
	rsi := RSISeries(closes, period)

	last := len(bars) - 1
	prev := last
	if last > 0 {
		prev = last - 1
	}
	cur := rsi[last]

	sig := StrategySignal{
		Strategy:     "RSI",
		CurrentPrice: closes[last],
		RSI:          cur,
	}

	switch {
	case cur <= oversold && rsi[prev] > oversold:
		sig.Direction = Buy
		sig.Strength = (oversold - cur) / oversold * 100
		sig.Reason = fmt.Sprintf("RSI oversold: %.1f (threshold: %.0f)", cur, oversold)
	case cur >= overbought && rsi[prev] < overbought:
		sig.Direction = Sell
		sig.Strength = (cur - overbought) / (100 - overbought) * 100
		sig.Reason = fmt.Sprintf("RSI overbought: %.1f (threshold: %.0f)", cur, overbought)
	case cur <= oversold:
		sig.Direction = HoldOversold
		sig.Strength = (oversold - cur) / oversold * 100
		sig.Reason = fmt.Sprintf("RSI oversold territory: %.1f", cur)
	case cur >= overbought:
		sig.Direction = HoldOverbought
		sig.Strength = (cur - overbought) / (100 - overbought) * 100
		sig.Reason = fmt.Sprintf("RSI overbought territory: %.1f", cur)
	default:
		sig.Direction = HoldNeutral
		sig.Strength = 0
		sig.Reason = fmt.Sprintf("RSI neutral: %.1f", cur)
	}
	return sig
}

// MACDSignal evaluates the MACD/signal-line crossover on the latest bar.
func MACDSignal(bars []utilities.OHLCVBar, fast, slow, signalPeriod int) StrategySignal {
	if len(bars) < slow+signalPeriod {
		return insufficientData("MACD")
	}

	closes := Closes(bars)
	macd, signalLine, histogram := MACDSeries(closes, fast, slow, signalPeriod)

	last := len(bars) - 1
	prev := last
	if last > 0 {
		prev = last - 1
	}

	sig := StrategySignal{
		Strategy:      "MACD",
		CurrentPrice:  closes[last],
		MACD:          macd[last],
		MACDSignal:    signalLine[last],
		MACDHistogram: histogram[last],
	}
	strength := math.Min(math.Abs(macd[last]-signalLine[last])*100, 100)

	switch {
	case macd[last] > signalLine[last] && macd[prev] <= signalLine[prev]:
		sig.Direction = Buy
		sig.Strength = strength
		sig.Reason = "MACD bullish crossover: MACD line crossed above signal line"
	case macd[last] < signalLine[last] && macd[prev] >= signalLine[prev]:
		sig.Direction = Sell
		sig.Strength = strength
		sig.Reason = "MACD bearish crossover: MACD line crossed below signal line"
	case macd[last] > signalLine[last]:
		sig.Direction = HoldBullish
		sig.Strength = strength
		sig.Reason = "MACD bullish: MACD line above signal line"
	default:
		sig.Direction = HoldBearish
		sig.Strength = strength
		sig.Reason = "MACD bearish: MACD line below signal line"
	}
	return sig
}

// BollingerSignal fires when price touches a band, and reports the
// overbought/oversold territory while it remains beyond one.
func BollingerSignal(bars []utilities.OHLCVBar, period int, stdDev float64) StrategySignal {
	if len(bars) < period {
		return insufficientData("Bollinger Bands")
	}

	closes := Closes(bars)
	upper, middle, lower := BollingerSeries(closes, period, stdDev)

	last := len(bars) - 1
	prev := last
	if last > 0 {
		prev = last - 1
	}
	price := closes[last]
	prevPrice := closes[prev]

	sig := StrategySignal{
		Strategy:     "Bollinger Bands",
		CurrentPrice: price,
		BBUpper:      upper[last],
		BBMiddle:     middle[last],
		BBLower:      lower[last],
	}

	switch {
	case price <= lower[last] && prevPrice > lower[last]:
		sig.Direction = Buy
		sig.Strength = (lower[last] - price) / lower[last] * 100
		sig.Reason = fmt.Sprintf("Bollinger Bands: Price touched lower band at %.2f", lower[last])
	case price >= upper[last] && prevPrice < upper[last]:
		sig.Direction = Sell
		sig.Strength = (price - upper[last]) / upper[last] * 100
		sig.Reason = fmt.Sprintf("Bollinger Bands: Price touched upper band at %.2f", upper[last])
	case price <= lower[last]:
		sig.Direction = HoldOversold
		sig.Strength = (lower[last] - price) / lower[last] * 100
		sig.Reason = "Bollinger Bands: Price below lower band (oversold)"
	case price >= upper[last]:
		sig.Direction = HoldOverbought
		sig.Strength = (price - upper[last]) / upper[last] * 100
		sig.Reason = "Bollinger Bands: Price above upper band (overbought)"
	default:
		sig.Direction = HoldNeutral
		sig.Strength = 0
		sig.Reason = "Bollinger Bands: Price between bands"
	}
	return sig
}
