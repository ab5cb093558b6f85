package risk

import (
	"fmt"
	"math"
	"sync"
	"time"

	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

// Position is an open paper position with its protective levels.
type Position struct {
	Symbol          string    `json:"symbol"`
	Shares          int       `json:"shares"`
	EntryPrice      float64   `json:"entry_price"`
	PositionValue   float64   `json:"position_value"`
	PositionPercent float64   `json:"position_percent"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	RiskAmount      float64   `json:"risk_amount"`
	RiskPercent     float64   `json:"risk_percent"`
	RiskWarning     bool      `json:"risk_warning"`
	SignalStrength  float64   `json:"signal_strength"`
	EntryDate       time.Time `json:"entry_date"`
}

// ExitRecord documents a completed round trip.
type ExitRecord struct {
	Symbol      string    `json:"symbol"`
	Shares      int       `json:"shares"`
	EntryPrice  float64   `json:"entry_price"`
	ExitPrice   float64   `json:"exit_price"`
	EntryValue  float64   `json:"entry_value"`
	ExitValue   float64   `json:"exit_value"`
	PnL         float64   `json:"pnl"`
	PnLPercent  float64   `json:"pnl_percent"`
	Reason      string    `json:"reason"`
	EntryDate   time.Time `json:"entry_date"`
	ExitDate    time.Time `json:"exit_date"`
	HoldingDays int       `json:"holding_days"`
}

// PortfolioSummary is a point-in-time snapshot of the paper portfolio.
type PortfolioSummary struct {
	TotalValue      float64 `json:"total_value"`
	Cash            float64 `json:"cash"`
	Invested        float64 `json:"invested"`
	NumPositions    int     `json:"num_positions"`
	DailyPnL        float64 `json:"daily_pnl"`
	DailyPnLPercent float64 `json:"daily_pnl_percent"`
	PortfolioRisk   float64 `json:"portfolio_risk"`
}

// RiskMetrics reports the configured limits next to current exposure, all
// in percent.
type RiskMetrics struct {
	MaxPositionSize      float64 `json:"max_position_size"`
	MaxDailyLoss         float64 `json:"max_daily_loss"`
	StopLossPercent      float64 `json:"stop_loss_percent"`
	TakeProfitPercent    float64 `json:"take_profit_percent"`
	MaxPortfolioRisk     float64 `json:"max_portfolio_risk"`
	CurrentPortfolioRisk float64 `json:"current_portfolio_risk"`
	DailyPnLPercent      float64 `json:"daily_pnl_percent"`
	CashPercent          float64 `json:"cash_percent"`
	InvestedPercent      float64 `json:"invested_percent"`
}

// Manager enforces the sizing and exposure rules over a paper portfolio.
// The cash balance is debited on entry and credited on exit; positions are
// tracked by symbol. Safe for concurrent use.
type Manager struct {
	cfg    utilities.RiskConfig
	logger *utilities.Logger

	mu              sync.RWMutex
	cash            float64
	dailyPnL        float64
	dailyStartValue float64
	positions       map[string]*Position

	now func() time.Time
}

// NewManager creates a Manager with the given limits and starting capital.
func NewManager(cfg utilities.RiskConfig, capital float64, logger *utilities.Logger) *Manager {
	return &Manager{
		cfg:             cfg,
		logger:          logger,
		cash:            capital,
		dailyStartValue: capital,
		positions:       make(map[string]*Position),
		now:             time.Now,
	}
}

// SizePosition sizes an entry from the available cash and the signal
// strength (0..1). When the implied risk exceeds the daily loss budget the
// share count shrinks to fit and the position carries a warning.
func (m *Manager) SizePosition(symbol string, entryPrice, signalStrength float64) Position {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sizeLocked(symbol, entryPrice, signalStrength)
}

func (m *Manager) sizeLocked(symbol string, entryPrice, signalStrength float64) Position {
	if signalStrength > 1 {
		signalStrength = 1
	}
	base := m.cfg.MaxPositionSize * signalStrength
	positionValue := m.cash * base
	shares := int(positionValue / entryPrice)

	stopLoss := entryPrice * (1 - m.cfg.StopLossPercent)
	takeProfit := entryPrice * (1 + m.cfg.TakeProfitPercent)
	riskPerShare := entryPrice - stopLoss
	totalRisk := float64(shares) * riskPerShare

	warning := false
	if totalRisk > m.cash*m.cfg.MaxDailyLoss && riskPerShare > 0 {
		warning = true
		maxShares := int((m.cash * m.cfg.MaxDailyLoss) / riskPerShare)
		if maxShares < shares {
			shares = maxShares
		}
		totalRisk = float64(shares) * riskPerShare
	}

	actualValue := float64(shares) * entryPrice
	pos := Position{
		Symbol:          symbol,
		Shares:          shares,
		EntryPrice:      entryPrice,
		PositionValue:   actualValue,
		StopLossPrice:   math.Round(stopLoss*100) / 100,
		TakeProfitPrice: math.Round(takeProfit*100) / 100,
		RiskAmount:      math.Round(totalRisk*100) / 100,
		RiskWarning:     warning,
		SignalStrength:  signalStrength,
	}
	if m.cash > 0 {
		pos.PositionPercent = actualValue / m.cash * 100
		pos.RiskPercent = totalRisk / m.cash * 100
	}
	return pos
}

// ShouldEnter runs the entry gates in order and reports the first failure.
func (m *Manager) ShouldEnter(symbol string, composite strategy.CompositeSignal) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if composite.Overall != strategy.OverallBuy && composite.Overall != strategy.StrongBuy {
		return false, fmt.Sprintf("Signal is %s, not a buy signal", composite.Overall)
	}
	if _, open := m.positions[symbol]; open {
		return false, fmt.Sprintf("Already have position in %s", symbol)
	}

	dailyLossPercent := 0.0
	if m.dailyStartValue > 0 {
		dailyLossPercent = m.dailyPnL / m.dailyStartValue * 100
	}
	if dailyLossPercent <= -m.cfg.MaxDailyLoss*100 {
		return false, fmt.Sprintf("Daily loss limit reached (%.1f%%)", dailyLossPercent)
	}

	if riskNow := m.portfolioRiskLocked(); riskNow >= m.cfg.MaxPortfolioRisk {
		return false, fmt.Sprintf("Portfolio risk limit reached (%.1f%%)", riskNow*100)
	}

	if composite.Confidence < m.cfg.MinEntryConfidence {
		return false, fmt.Sprintf("Signal confidence too low (%.1f%% < %.0f%%)", composite.Confidence, m.cfg.MinEntryConfidence)
	}

	return true, "All risk checks passed"
}

// ShouldExit runs the exit gates in order: stop loss, take profit, strong
// sell signal, maximum holding period. A nil composite skips the signal gate.
func (m *Manager) ShouldExit(symbol string, currentPrice float64, composite *strategy.CompositeSignal) (bool, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pos, open := m.positions[symbol]
	if !open {
		return false, "No position to exit"
	}

	if currentPrice <= pos.StopLossPrice {
		return true, fmt.Sprintf("Stop loss triggered at $%.2f (entry: $%.2f)", currentPrice, pos.EntryPrice)
	}
	if currentPrice >= pos.TakeProfitPrice {
		return true, fmt.Sprintf("Take profit triggered at $%.2f (entry: $%.2f)", currentPrice, pos.EntryPrice)
	}

	if composite != nil {
		sellSide := composite.Overall == strategy.OverallSell || composite.Overall == strategy.StrongSell
		if sellSide && composite.Confidence >= m.cfg.MinExitConfidence {
			return true, fmt.Sprintf("Strong sell signal: %s (%.1f%% confidence)", composite.Overall, composite.Confidence)
		}
	}

	daysHeld := int(m.now().Sub(pos.EntryDate).Hours() / 24)
	if daysHeld >= m.cfg.MaxHoldingDays {
		return true, fmt.Sprintf("Maximum holding period reached (%d days)", daysHeld)
	}

	return false, "No exit conditions met"
}

// EnterPosition records the position and debits its value from cash.
func (m *Manager) EnterPosition(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pos.EntryDate.IsZero() {
		pos.EntryDate = m.now()
	}
	m.positions[pos.Symbol] = &pos
	m.cash -= pos.PositionValue

	m.logger.LogInfo("Entered position: %s - %d shares at $%.2f (stop $%.2f, target $%.2f, risk $%.2f)",
		pos.Symbol, pos.Shares, pos.EntryPrice, pos.StopLossPrice, pos.TakeProfitPrice, pos.RiskAmount)
}

// RestorePosition reinstates a persisted position without touching cash;
// the stored cash balance already reflects the entry debit.
func (m *Manager) RestorePosition(pos Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.Symbol] = &pos
}

// SetCash overrides the cash balance, used when restoring a saved session.
func (m *Manager) SetCash(cash float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cash = cash
	m.dailyStartValue = cash
}

// ExitPosition closes the position at the given price, credits the
// proceeds, realizes the P&L and returns the exit record. Returns nil when
// no position exists for the symbol.
func (m *Manager) ExitPosition(symbol string, exitPrice float64, reason string) *ExitRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, open := m.positions[symbol]
	if !open {
		return nil
	}

	exitValue := float64(pos.Shares) * exitPrice
	entryValue := pos.PositionValue
	pnl := exitValue - entryValue
	pnlPercent := 0.0
	if entryValue != 0 {
		pnlPercent = pnl / entryValue * 100
	}

	m.cash += exitValue
	m.dailyPnL += pnl
	delete(m.positions, symbol)

	now := m.now()
	record := &ExitRecord{
		Symbol:      symbol,
		Shares:      pos.Shares,
		EntryPrice:  pos.EntryPrice,
		ExitPrice:   exitPrice,
		EntryValue:  entryValue,
		ExitValue:   exitValue,
		PnL:         pnl,
		PnLPercent:  pnlPercent,
		Reason:      reason,
		EntryDate:   pos.EntryDate,
		ExitDate:    now,
		HoldingDays: int(now.Sub(pos.EntryDate).Hours() / 24),
	}

	m.logger.LogInfo("Exited position: %s - %d shares at $%.2f, P&L $%+.2f (%+.1f%%), reason: %s",
		symbol, pos.Shares, exitPrice, pnl, pnlPercent, reason)
	return record
}

// PortfolioRisk is the summed open risk relative to the cash balance.
func (m *Manager) PortfolioRisk() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.portfolioRiskLocked()
}

func (m *Manager) portfolioRiskLocked() float64 {
	if m.cash <= 0 {
		return 0
	}
	var total float64
	for _, pos := range m.positions {
		total += pos.RiskAmount
	}
	return total / m.cash
}

// DailyPnL marks open positions to the given prices and returns realized
// plus unrealized P&L without mutating any state.
func (m *Manager) DailyPnL(currentPrices map[string]float64) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	unrealized := 0.0
	for symbol, pos := range m.positions {
		if price, ok := currentPrices[symbol]; ok {
			unrealized += float64(pos.Shares) * (price - pos.EntryPrice)
		}
	}
	return m.dailyPnL + unrealized
}

// Summary returns a snapshot of the paper portfolio.
func (m *Manager) Summary() PortfolioSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	invested := 0.0
	for _, pos := range m.positions {
		invested += pos.PositionValue
	}

	s := PortfolioSummary{
		TotalValue:    m.cash + invested,
		Cash:          m.cash,
		Invested:      invested,
		NumPositions:  len(m.positions),
		DailyPnL:      m.dailyPnL,
		PortfolioRisk: m.portfolioRiskLocked(),
	}
	if m.dailyStartValue > 0 {
		s.DailyPnLPercent = m.dailyPnL / m.dailyStartValue * 100
	}
	return s
}

// Metrics reports the configured limits next to current exposure.
func (m *Manager) Metrics() RiskMetrics {
	summary := m.Summary()

	metrics := RiskMetrics{
		MaxPositionSize:      m.cfg.MaxPositionSize * 100,
		MaxDailyLoss:         m.cfg.MaxDailyLoss * 100,
		StopLossPercent:      m.cfg.StopLossPercent * 100,
		TakeProfitPercent:    m.cfg.TakeProfitPercent * 100,
		MaxPortfolioRisk:     m.cfg.MaxPortfolioRisk * 100,
		CurrentPortfolioRisk: summary.PortfolioRisk * 100,
		DailyPnLPercent:      summary.DailyPnLPercent,
	}
	if summary.TotalValue > 0 {
		metrics.CashPercent = summary.Cash / summary.TotalValue * 100
		metrics.InvestedPercent = summary.Invested / summary.TotalValue * 100
	}
	return metrics
}

// ResetDailyTracking re-bases the daily tracking, intended for market open.
func (m *Manager) ResetDailyTracking() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dailyPnL = 0
	invested := 0.0
	for _, pos := range m.positions {
		invested += pos.PositionValue
	}
	m.dailyStartValue = m.cash + invested
}

// OpenPositions returns a copy of the open positions keyed by symbol.
func (m *Manager) OpenPositions() map[string]Position {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]Position, len(m.positions))
	for symbol, pos := range m.positions {
		out[symbol] = *pos
	}
	return out
}

// OpenPosition returns the open position for a symbol, if any.
func (m *Manager) OpenPosition(symbol string) (Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Cash returns the current cash balance.
func (m *Manager) Cash() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cash
}
