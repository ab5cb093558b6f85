package strategy

import (
	"math"

	"Tradewinds/utilities"
)

// Trade records a single simulated fill.
type Trade struct {
	Timestamp int64   `json:"timestamp"`
	Type      string  `json:"type"`
	Shares    float64 `json:"shares"`
	Price     float64 `json:"price"`
	Cost      float64 `json:"cost,omitempty"`
	Proceeds  float64 `json:"proceeds,omitempty"`
}

// BacktestResult holds the replayed equity curve and its performance metrics.
type BacktestResult struct {
	TotalReturn    float64 `json:"total_return"`
	AnnualReturn   float64 `json:"annual_return"`
	Volatility     float64 `json:"volatility"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	TotalTrades    int     `json:"total_trades"`
	FinalValue     float64 `json:"final_portfolio_value"`
	InitialCapital float64 `json:"initial_capital"`
	Equity         []float64
	Trades         []Trade
}

// Backtester replays position deltas against a bar history with a
// commission charged on both sides.
type Backtester struct {
	InitialCapital float64
	Commission     float64
}

// NewBacktester returns a Backtester with the standard defaults
// (10000 starting capital, 0.1% commission).
func NewBacktester() *Backtester {
	return &Backtester{InitialCapital: 10000, Commission: 0.001}
}

// Run replays the position deltas bar by bar. A +1 delta invests all
// available cash in whole shares; a -1 delta liquidates the full holding.
// The first bar never trades.
func (b *Backtester) Run(bars []utilities.OHLCVBar, positions []float64) BacktestResult {
	result := BacktestResult{
		InitialCapital: b.InitialCapital,
		Equity:         make([]float64, len(bars)),
	}
	cash := b.InitialCapital
	holdings := 0.0

	for i, bar := range bars {
		price := bar.Close
		if i == 0 {
			result.Equity[i] = cash + holdings*price
			continue
		}

		switch positions[i] {
		case 1:
			if cash > 0 {
				shares := math.Floor(cash / price)
				cost := shares * price * (1 + b.Commission)
				if shares > 0 && cost <= cash {
					holdings += shares
					cash -= cost
					result.Trades = append(result.Trades, Trade{
						Timestamp: bar.Timestamp,
						Type:      "BUY",
						Shares:    shares,
						Price:     price,
						Cost:      cost,
					})
				}
			}
		case -1:
			if holdings > 0 {
				proceeds := holdings * price * (1 - b.Commission)
				cash += proceeds
				result.Trades = append(result.Trades, Trade{
					Timestamp: bar.Timestamp,
					Type:      "SELL",
					Shares:    holdings,
					Price:     price,
					Proceeds:  proceeds,
				})
				holdings = 0
			}
		}

		result.Equity[i] = cash + holdings*price
	}

	result.TotalTrades = len(result.Trades)
	if len(result.Equity) > 0 {
		result.FinalValue = result.Equity[len(result.Equity)-1]
	}
	b.computeMetrics(&result)
	return result
}

func (b *Backtester) computeMetrics(result *BacktestResult) {
	n := len(result.Equity)
	if n == 0 || b.InitialCapital == 0 {
		return
	}

	result.TotalReturn = (result.FinalValue - b.InitialCapital) / b.InitialCapital
	result.AnnualReturn = math.Pow(1+result.TotalReturn, 252/float64(n)) - 1

	// Daily percent changes of the equity curve, first bar dropped.
	returns := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		if result.Equity[i-1] != 0 {
			returns = append(returns, result.Equity[i]/result.Equity[i-1]-1)
		}
	}

	mean, std := meanStd(returns)
	result.Volatility = std * math.Sqrt(252)
	if std > 0 {
		result.SharpeRatio = mean / std * math.Sqrt(252)
	}
	result.MaxDrawdown = maxDrawdown(result.Equity)
}

// maxDrawdown is the most negative excursion from the running equity peak.
func maxDrawdown(equity []float64) float64 {
	var dd float64
	var peak float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			d := (v - peak) / peak
			if d < dd {
				dd = d
			}
		}
	}
	return dd
}

// meanStd returns the mean and ddof=1 standard deviation.
func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	if len(values) < 2 {
		return mean, 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(ss / float64(len(values)-1))
}
