package strategy

import (
	"math"

	"Tradewinds/utilities"
)

// Indicator series are aligned with their input: output[i] corresponds to
// input[i]. Entries inside the warm-up region are computed over the bars
// available so far (window = min(i+1, period)) rather than padded with NaN.
// Degenerate arithmetic (zero losses, flat ranges, single-element windows)
// saturates to a defined boundary value so no NaN or Inf ever leaves this
// package.

// SMASeries computes a rolling simple moving average.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		out[i] = sum / float64(utilities.MinInt(i+1, period))
	}
	return out
}

// EMASeries computes a recursive exponential moving average seeded with the
// first value, multiplier 2/(period+1).
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	multiplier := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// RSISeries computes the Relative Strength Index over a rolling mean of
// gains and losses. Index 0 has no delta and is reported as neutral 50.
// A zero average loss saturates the oscillator to 100.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) == 0 {
		return out
	}
	out[0] = 50

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = -delta
		}
	}

	var gainSum, lossSum float64
	for i := 1; i < len(closes); i++ {
		gainSum += gains[i]
		lossSum += losses[i]
		if i > period {
			gainSum -= gains[i-period]
			lossSum -= losses[i-period]
		}
		window := float64(utilities.MinInt(i, period))
		avgGain := gainSum / window
		avgLoss := lossSum / window
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - (100 / (1 + rs))
	}
	return out
}

// MACDSeries returns the MACD line (fast EMA minus slow EMA), its signal
// line (EMA of the MACD line) and the histogram (MACD minus signal).
func MACDSeries(closes []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	fastEMA := EMASeries(closes, fast)
	slowEMA := EMASeries(closes, slow)
	macd = make([]float64, len(closes))
	for i := range closes {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine = EMASeries(macd, signal)
	histogram = make([]float64, len(closes))
	for i := range closes {
		histogram[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, histogram
}

// BollingerSeries returns the upper, middle and lower bands: a rolling mean
// plus/minus k rolling sample standard deviations. A one-element window has
// zero deviation, collapsing the bands onto the middle.
func BollingerSeries(closes []float64, period int, k float64) (upper, middle, lower []float64) {
	n := len(closes)
	upper = make([]float64, n)
	middle = SMASeries(closes, period)
	lower = make([]float64, n)
	for i := 0; i < n; i++ {
		start := i + 1 - period
		if start < 0 {
			start = 0
		}
		window := closes[start : i+1]
		std := sampleStd(window, middle[i])
		upper[i] = middle[i] + k*std
		lower[i] = middle[i] - k*std
	}
	return upper, middle, lower
}

// StochasticSeries returns %K and %D. A flat high/low range reports the
// midpoint 50 for %K.
func StochasticSeries(highs, lows, closes []float64, kPeriod, dPeriod int) (k, d []float64) {
	n := len(closes)
	k = make([]float64, n)
	for i := 0; i < n; i++ {
		start := i + 1 - kPeriod
		if start < 0 {
			start = 0
		}
		hh := highs[start]
		ll := lows[start]
		for j := start + 1; j <= i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			k[i] = 50
			continue
		}
		k[i] = (closes[i] - ll) / (hh - ll) * 100
	}
	d = SMASeries(k, dPeriod)
	return k, d
}

// WilliamsRSeries returns Williams %R on the -100..0 scale. A flat range
// reports the midpoint -50.
func WilliamsRSeries(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i + 1 - period
		if start < 0 {
			start = 0
		}
		hh := highs[start]
		ll := lows[start]
		for j := start + 1; j <= i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		if hh == ll {
			out[i] = -50
			continue
		}
		out[i] = (hh - closes[i]) / (hh - ll) * -100
	}
	return out
}

// ATRSeries computes the Average True Range as a rolling mean of the true
// range. The first bar's true range is its high minus low.
func ATRSeries(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	tr := make([]float64, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			tr[i] = highs[i] - lows[i]
			continue
		}
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return SMASeries(tr, period)
}

// Closes extracts the close column from a bar history.
func Closes(bars []utilities.OHLCVBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

// Highs extracts the high column from a bar history.
func Highs(bars []utilities.OHLCVBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts the low column from a bar history.
func Lows(bars []utilities.OHLCVBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// sampleStd is the ddof=1 standard deviation; windows smaller than two
// elements have zero deviation.
func sampleStd(window []float64, mean float64) float64 {
	if len(window) < 2 {
		return 0
	}
	var ss float64
	for _, v := range window {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(window)-1))
}
