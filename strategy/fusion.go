package strategy

import (
	"sync"
	"time"

	"Tradewinds/utilities"
)

// OverallSignal is the fused verdict across all strategies.
type OverallSignal string

const (
	StrongBuy   OverallSignal = "STRONG_BUY"
	OverallBuy  OverallSignal = "BUY"
	WeakBuy     OverallSignal = "WEAK_BUY"
	Neutral     OverallSignal = "HOLD"
	WeakSell    OverallSignal = "WEAK_SELL"
	OverallSell OverallSignal = "SELL"
	StrongSell  OverallSignal = "STRONG_SELL"
)

// CompositeSignal is the fused multi-strategy verdict for one symbol.
type CompositeSignal struct {
	Symbol       string           `json:"symbol"`
	Overall      OverallSignal    `json:"overall_signal"`
	Confidence   float64          `json:"confidence"`
	Timestamp    time.Time        `json:"timestamp"`
	Signals      []StrategySignal `json:"individual_signals"`
	BuyVotes     int              `json:"buy_votes"`
	SellVotes    int              `json:"sell_votes"`
	BullishVotes int              `json:"bullish_votes"`
	BearishVotes int              `json:"bearish_votes"`
}

// SignalEngine runs the strategy generators and remembers the last
// alert-worthy composite per symbol. Safe for concurrent use.
type SignalEngine struct {
	cfg    utilities.IndicatorsConfig
	logger *utilities.Logger

	mu          sync.Mutex
	lastSignals map[string]CompositeSignal
	now         func() time.Time
}

// NewSignalEngine creates a SignalEngine with the given indicator parameters.
func NewSignalEngine(cfg utilities.IndicatorsConfig, logger *utilities.Logger) *SignalEngine {
	return &SignalEngine{
		cfg:         cfg,
		logger:      logger,
		lastSignals: make(map[string]CompositeSignal),
		now:         time.Now,
	}
}

// Evaluate runs all four strategy generators over the bar history and fuses
// their verdicts.
func (e *SignalEngine) Evaluate(symbol string, bars []utilities.OHLCVBar) CompositeSignal {
	signals := []StrategySignal{
		SMASignal(bars, e.cfg.SMAShortPeriod, e.cfg.SMALongPeriod),
		RSISignal(bars, e.cfg.RSIPeriod, e.cfg.RSIOversold, e.cfg.RSIOverbought),
		MACDSignal(bars, e.cfg.MACDFastPeriod, e.cfg.MACDSlowPeriod, e.cfg.MACDSignalPeriod),
		BollingerSignal(bars, e.cfg.BollingerPeriod, e.cfg.BollingerStdDev),
	}
	composite := FuseSignals(symbol, signals)
	composite.Timestamp = e.now()
	return composite
}

// FuseSignals combines per-strategy verdicts through a fixed priority
// ladder; the first matching rule wins.
func FuseSignals(symbol string, signals []StrategySignal) CompositeSignal {
	composite := CompositeSignal{
		Symbol:    symbol,
		Overall:   Neutral,
		Signals:   signals,
		Timestamp: time.Now(),
	}

	for _, s := range signals {
		switch s.Direction {
		case Buy:
			composite.BuyVotes++
			composite.BullishVotes++
		case Sell:
			composite.SellVotes++
			composite.BearishVotes++
		case HoldBullish:
			composite.BullishVotes++
		case HoldBearish:
			composite.BearishVotes++
		}
	}

	total := float64(len(signals))
	switch {
	case composite.BuyVotes >= 2:
		composite.Overall = StrongBuy
		composite.Confidence = float64(composite.BuyVotes) / total * 100
	case composite.BuyVotes >= 1 && composite.BullishVotes >= 3:
		composite.Overall = OverallBuy
		composite.Confidence = float64(composite.BullishVotes) / total * 100
	case composite.SellVotes >= 2:
		composite.Overall = StrongSell
		composite.Confidence = float64(composite.SellVotes) / total * 100
	case composite.SellVotes >= 1 && composite.BearishVotes >= 3:
		composite.Overall = OverallSell
		composite.Confidence = float64(composite.BearishVotes) / total * 100
	case composite.BullishVotes > composite.BearishVotes:
		composite.Overall = WeakBuy
		composite.Confidence = 30
	case composite.BearishVotes > composite.BullishVotes:
		composite.Overall = WeakSell
		composite.Confidence = 30
	}
	return composite
}

// ShouldAlert reports whether the composite warrants an alert: always on
// the first evaluation for a symbol, afterwards only when the overall
// signal changed or confidence moved by 20 points or more. The remembered
// signal advances only on alert-worthy evaluations.
func (e *SignalEngine) ShouldAlert(symbol string, composite CompositeSignal) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	last, seen := e.lastSignals[symbol]
	if !seen {
		e.lastSignals[symbol] = composite
		return true
	}
	if last.Overall != composite.Overall {
		e.lastSignals[symbol] = composite
		return true
	}
	diff := last.Confidence - composite.Confidence
	if diff < 0 {
		diff = -diff
	}
	if diff >= 20 {
		e.lastSignals[symbol] = composite
		return true
	}
	return false
}

// LastSignal returns the remembered composite for a symbol, if any.
func (e *SignalEngine) LastSignal(symbol string) (CompositeSignal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sig, ok := e.lastSignals[symbol]
	return sig, ok
}
