// File: pkg/app/app.go
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"Tradewinds/dataprovider"
	"Tradewinds/dataprovider/yahoo"
	"Tradewinds/notification"
	"Tradewinds/pkg/risk"
	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

// Observer receives every completed symbol evaluation. A panicking observer
// is recovered and logged; it never affects the others or the engine.
type Observer func(symbol string, quote dataprovider.Quote, composite strategy.CompositeSignal)

// Engine is the polling core: it fetches history per symbol, evaluates the
// composite signal, applies the trading rules and fans alerts out. All
// evaluation runs on a single goroutine; shared state is guarded for
// point-in-time reads from observers and tests.
type Engine struct {
	cfg      *utilities.AppConfig
	logger   *utilities.Logger
	provider dataprovider.DataProvider
	cache    *dataprovider.SQLiteCache
	signals  *strategy.SignalEngine
	riskMgr  *risk.Manager
	notifier *notification.Notifier

	stateMutex sync.RWMutex
	barCache   map[string][]utilities.OHLCVBar
	lastUpdate map[string]time.Time
	observers  []Observer
	tradeLog   []risk.ExitRecord

	lastSummary time.Time
}

// NewEngine wires an Engine from its collaborators. The bar cache may be
// nil; position persistence is then disabled.
func NewEngine(cfg *utilities.AppConfig, logger *utilities.Logger, provider dataprovider.DataProvider, cache *dataprovider.SQLiteCache, signals *strategy.SignalEngine, riskMgr *risk.Manager, notifier *notification.Notifier) *Engine {
	return &Engine{
		cfg:        cfg,
		logger:     logger,
		provider:   provider,
		cache:      cache,
		signals:    signals,
		riskMgr:    riskMgr,
		notifier:   notifier,
		barCache:   make(map[string][]utilities.OHLCVBar),
		lastUpdate: make(map[string]time.Time),
	}
}

// Run builds the full application stack from config and drives the engine
// until the context is cancelled.
func Run(ctx context.Context, cfg *utilities.AppConfig, logger *utilities.Logger) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}

	dbPath := cfg.DB.DBPath
	if dbPath == "" {
		dbPath = "data/tradewinds.db"
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database dir: %w", err)
	}
	cache, err := dataprovider.NewSQLiteCache(utilities.DatabaseConfig{DBPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}
	defer cache.Close()

	retention := cfg.Data.CacheRetentionDays
	if retention <= 0 {
		retention = 14
	}
	cache.StartScheduledCleanup(24*time.Hour, retention)

	provider := yahoo.NewClient(cfg.Data, cache, logger)
	signals := strategy.NewSignalEngine(cfg.Indicators, logger)
	riskMgr := risk.NewManager(cfg.Risk, cfg.Trading.InitialCapital, logger)
	notifier := notification.NewNotifier(cfg.Notifications, logger)

	engine := NewEngine(cfg, logger, provider, cache, signals, riskMgr, notifier)
	if err := engine.restorePositions(); err != nil {
		logger.LogWarn("could not restore persisted positions: %v", err)
	}

	engine.RegisterObserver(func(symbol string, quote dataprovider.Quote, composite strategy.CompositeSignal) {
		logger.LogDebug("%s%s%s $%.2f (%+.2f%%) -> %s (%.1f%%)",
			utilities.ColorCyan, symbol, utilities.ColorReset,
			quote.Price, quote.ChangePercent, composite.Overall, composite.Confidence)
	})

	return engine.Run(ctx)
}

func validateConfig(cfg *utilities.AppConfig) error {
	if len(cfg.Trading.Symbols) == 0 {
		return errors.New("no symbols configured")
	}
	if cfg.Trading.UpdateIntervalSec <= 0 {
		return fmt.Errorf("update interval must be positive, got %d", cfg.Trading.UpdateIntervalSec)
	}
	if cfg.Trading.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be positive, got %v", cfg.Trading.InitialCapital)
	}
	return nil
}

// RegisterObserver adds a callback for completed evaluations.
func (e *Engine) RegisterObserver(obs Observer) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()
	e.observers = append(e.observers, obs)
}

// Run executes the polling loop: an immediate first cycle, then one per
// update interval, until the context is cancelled. On shutdown the session
// artifacts are flushed.
func (e *Engine) Run(ctx context.Context) error {
	if err := validateConfig(e.cfg); err != nil {
		return err
	}

	interval := time.Duration(e.cfg.Trading.UpdateIntervalSec) * time.Second
	e.logger.LogInfo("Starting monitor: %d symbols, %s interval, $%.2f capital",
		len(e.cfg.Trading.Symbols), interval, e.cfg.Trading.InitialCapital)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.lastSummary = time.Now()
	e.processCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.LogInfo("Shutting down, flushing session artifacts")
			e.flushSessionArtifacts()
			return nil
		case <-ticker.C:
			e.processCycle(ctx)
			e.maybeLogPortfolioSummary()
		}
	}
}

// processCycle evaluates every symbol sequentially. When every fetch fails
// the cycle backs off briefly before returning, so a dead upstream does not
// spin the loop.
func (e *Engine) processCycle(ctx context.Context) {
	failures := 0
	for _, symbol := range e.cfg.Trading.Symbols {
		if ctx.Err() != nil {
			return
		}
		if err := e.safeEvaluate(ctx, symbol); err != nil {
			e.logger.LogWarn("cycle: %s evaluation failed: %v", symbol, err)
			failures++
		}
	}

	if failures == len(e.cfg.Trading.Symbols) {
		backoff := time.Duration(e.cfg.Trading.FetchBackoffSec) * time.Second
		if backoff <= 0 {
			backoff = 5 * time.Second
		}
		e.logger.LogWarn("all fetches failed, backing off %s", backoff)
		select {
		case <-ctx.Done():
		case <-time.After(backoff):
		}
	}
}

// safeEvaluate isolates one symbol's evaluation so a panic cannot take the
// cycle down with it.
func (e *Engine) safeEvaluate(ctx context.Context, symbol string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during evaluation: %v", r)
		}
	}()
	return e.evaluateSymbol(ctx, symbol)
}

func (e *Engine) evaluateSymbol(ctx context.Context, symbol string) error {
	period := e.cfg.Data.Period
	if period == "" {
		period = "5d"
	}
	barInterval := e.cfg.Data.Interval
	if barInterval == "" {
		barInterval = "1m"
	}

	bars, err := e.provider.GetOHLCV(ctx, symbol, period, barInterval)
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return fmt.Errorf("no bars for %s", symbol)
	}

	e.stateMutex.Lock()
	e.barCache[symbol] = bars
	e.lastUpdate[symbol] = time.Now()
	e.stateMutex.Unlock()

	composite := e.signals.Evaluate(symbol, bars)

	quote, err := e.provider.GetLatestQuote(ctx, symbol)
	if err != nil {
		derived, ok := dataprovider.QuoteFromBars(symbol, bars)
		if !ok {
			return fmt.Errorf("no quote for %s", symbol)
		}
		quote = derived
	}

	traded := e.applyTradingRules(symbol, quote.Price, composite)

	// The alert memory advances on every evaluation; trade events alert
	// unconditionally.
	shouldAlert := e.signals.ShouldAlert(symbol, composite)
	if traded || shouldAlert {
		e.notifier.SendAlert(composite)
	}

	e.notifyObservers(symbol, quote, composite)
	return nil
}

// applyTradingRules runs the exit gate for an open position, otherwise the
// entry gate. Returns true when a position was opened or closed.
func (e *Engine) applyTradingRules(symbol string, price float64, composite strategy.CompositeSignal) bool {
	if price <= 0 {
		return false
	}

	if _, open := e.riskMgr.OpenPosition(symbol); open {
		ok, reason := e.riskMgr.ShouldExit(symbol, price, &composite)
		if !ok {
			return false
		}
		record := e.riskMgr.ExitPosition(symbol, price, reason)
		if record == nil {
			return false
		}
		e.appendTrade(*record)
		if e.cache != nil {
			if err := e.cache.DeletePosition(symbol); err != nil {
				e.logger.LogWarn("failed to delete persisted position %s: %v", symbol, err)
			}
		}
		return true
	}

	ok, reason := e.riskMgr.ShouldEnter(symbol, composite)
	if !ok {
		e.logger.LogDebug("%s entry skipped: %s", symbol, reason)
		return false
	}
	pos := e.riskMgr.SizePosition(symbol, price, composite.Confidence/100)
	if pos.Shares <= 0 {
		e.logger.LogDebug("%s entry skipped: sized to zero shares at $%.2f", symbol, price)
		return false
	}
	if pos.RiskWarning {
		e.logger.LogWarn("%s position reduced to %d shares to fit the risk budget", symbol, pos.Shares)
	}
	pos.EntryDate = time.Now()
	e.riskMgr.EnterPosition(pos)
	if e.cache != nil {
		if err := e.cache.SavePosition(persistedFrom(pos)); err != nil {
			e.logger.LogWarn("failed to persist position %s: %v", symbol, err)
		}
	}
	return true
}

func (e *Engine) appendTrade(record risk.ExitRecord) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()
	e.tradeLog = append(e.tradeLog, record)
}

// TradeLog returns a copy of the completed trades so far.
func (e *Engine) TradeLog() []risk.ExitRecord {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	out := make([]risk.ExitRecord, len(e.tradeLog))
	copy(out, e.tradeLog)
	return out
}

// CachedBars returns a point-in-time copy of the cached history for a
// symbol; an empty slice is a defined result.
func (e *Engine) CachedBars(symbol string) []utilities.OHLCVBar {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()
	out := make([]utilities.OHLCVBar, len(e.barCache[symbol]))
	copy(out, e.barCache[symbol])
	return out
}

func (e *Engine) notifyObservers(symbol string, quote dataprovider.Quote, composite strategy.CompositeSignal) {
	e.stateMutex.RLock()
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.stateMutex.RUnlock()

	for _, obs := range observers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.logger.LogWarn("observer panicked for %s: %v", symbol, r)
				}
			}()
			obs(symbol, quote, composite)
		}()
	}
}

func (e *Engine) maybeLogPortfolioSummary() {
	cadence := time.Duration(e.cfg.Trading.PortfolioUpdateIntervalSec) * time.Second
	if cadence <= 0 {
		cadence = 5 * time.Minute
	}
	if time.Since(e.lastSummary) < cadence {
		return
	}
	e.lastSummary = time.Now()

	prices := e.currentPrices()
	summary := e.riskMgr.Summary()
	e.logger.LogInfo("Portfolio: total $%.2f, cash $%.2f, invested $%.2f, %d positions, daily P&L $%+.2f, risk %.1f%%",
		summary.TotalValue, summary.Cash, summary.Invested, summary.NumPositions,
		e.riskMgr.DailyPnL(prices), summary.PortfolioRisk*100)
}

func (e *Engine) currentPrices() map[string]float64 {
	e.stateMutex.RLock()
	defer e.stateMutex.RUnlock()

	prices := make(map[string]float64, len(e.barCache))
	for symbol, bars := range e.barCache {
		if len(bars) > 0 {
			prices[symbol] = bars[len(bars)-1].Close
		}
	}
	return prices
}

// flushSessionArtifacts writes the alert history and completed trades to
// timestamped JSON files. Failures are logged; shutdown proceeds.
func (e *Engine) flushSessionArtifacts() {
	dir := e.cfg.Notifications.OutputDir

	if path, err := e.notifier.SaveHistory(dir); err != nil {
		e.logger.LogError("failed to save alert history: %v", err)
	} else {
		e.logger.LogInfo("Alert history saved to %s", path)
	}

	trades := e.TradeLog()
	if len(trades) == 0 {
		return
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			e.logger.LogError("failed to create output dir: %v", err)
			return
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("trades_%s.json", time.Now().Format("20060102_150405")))
	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		e.logger.LogError("failed to marshal trade log: %v", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		e.logger.LogError("failed to write trade log: %v", err)
		return
	}
	e.logger.LogInfo("Trade log saved to %s", path)
}

func (e *Engine) restorePositions() error {
	if e.cache == nil {
		return nil
	}
	persisted, err := e.cache.LoadPositions()
	if err != nil {
		return err
	}
	for _, p := range persisted {
		e.riskMgr.RestorePosition(risk.Position{
			Symbol:          p.Symbol,
			Shares:          p.Shares,
			EntryPrice:      p.EntryPrice,
			PositionValue:   p.PositionValue,
			StopLossPrice:   p.StopLossPrice,
			TakeProfitPrice: p.TakeProfitPrice,
			RiskAmount:      p.RiskAmount,
			EntryDate:       p.EntryDate,
		})
		e.logger.LogInfo("Restored position: %s - %d shares at $%.2f", p.Symbol, p.Shares, p.EntryPrice)
	}
	return nil
}

func persistedFrom(pos risk.Position) dataprovider.PersistedPosition {
	return dataprovider.PersistedPosition{
		Symbol:          pos.Symbol,
		Shares:          pos.Shares,
		EntryPrice:      pos.EntryPrice,
		PositionValue:   pos.PositionValue,
		StopLossPrice:   pos.StopLossPrice,
		TakeProfitPrice: pos.TakeProfitPrice,
		RiskAmount:      pos.RiskAmount,
		EntryDate:       pos.EntryDate,
	}
}
