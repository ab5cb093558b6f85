package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"Tradewinds/dataprovider"
	"Tradewinds/notification"
	"Tradewinds/pkg/risk"
	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

type fakeProvider struct {
	bars     map[string][]utilities.OHLCVBar
	quotes   map[string]dataprovider.Quote
	fetchErr error
}

func (f *fakeProvider) GetOHLCV(_ context.Context, symbol, _, _ string) ([]utilities.OHLCVBar, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.bars[symbol], nil
}

func (f *fakeProvider) GetLatestQuote(_ context.Context, symbol string) (dataprovider.Quote, error) {
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	return dataprovider.Quote{}, errors.New("no quote")
}

func flatBars(n int, price float64) []utilities.OHLCVBar {
	bars := make([]utilities.OHLCVBar, n)
	for i := range bars {
		bars[i] = utilities.OHLCVBar{
			Timestamp: int64(i * 60),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    100,
		}
	}
	return bars
}

func testAppConfig(symbols ...string) *utilities.AppConfig {
	return &utilities.AppConfig{
		Trading: utilities.TradingConfig{
			Symbols:           symbols,
			UpdateIntervalSec: 60,
			InitialCapital:    10000,
			FetchBackoffSec:   1,
		},
		Data: utilities.DataConfig{Period: "5d", Interval: "1m"},
		Indicators: utilities.IndicatorsConfig{
			SMAShortPeriod: 20, SMALongPeriod: 50,
			RSIPeriod: 14, RSIOversold: 30, RSIOverbought: 70,
			MACDFastPeriod: 12, MACDSlowPeriod: 26, MACDSignalPeriod: 9,
			BollingerPeriod: 20, BollingerStdDev: 2,
		},
		Risk: utilities.RiskConfig{
			MaxPositionSize: 0.1, MaxDailyLoss: 0.05,
			StopLossPercent: 0.05, TakeProfitPercent: 0.15,
			MaxPortfolioRisk: 0.2, MinEntryConfidence: 60,
			MinExitConfidence: 70, MaxHoldingDays: 30,
		},
		Notifications: utilities.NotificationsConfig{HistoryLimit: 100},
	}
}

func newTestEngine(cfg *utilities.AppConfig, provider dataprovider.DataProvider) *Engine {
	logger := utilities.NewLogger(utilities.Fatal)
	return NewEngine(cfg, logger, provider, nil,
		strategy.NewSignalEngine(cfg.Indicators, logger),
		risk.NewManager(cfg.Risk, cfg.Trading.InitialCapital, logger),
		notification.NewNotifier(cfg.Notifications, logger))
}

func TestValidateConfig(t *testing.T) {
	cfg := testAppConfig()
	if err := validateConfig(cfg); err == nil {
		t.Errorf("empty symbols must be rejected")
	}

	cfg = testAppConfig("AAPL")
	cfg.Trading.UpdateIntervalSec = 0
	if err := validateConfig(cfg); err == nil {
		t.Errorf("non-positive interval must be rejected")
	}

	cfg = testAppConfig("AAPL")
	cfg.Trading.InitialCapital = -1
	if err := validateConfig(cfg); err == nil {
		t.Errorf("non-positive capital must be rejected")
	}

	if err := validateConfig(testAppConfig("AAPL")); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestEvaluateSymbolCachesAndObserves(t *testing.T) {
	cfg := testAppConfig("AAPL")
	provider := &fakeProvider{
		bars:   map[string][]utilities.OHLCVBar{"AAPL": flatBars(10, 100)},
		quotes: map[string]dataprovider.Quote{"AAPL": {Symbol: "AAPL", Price: 100}},
	}
	e := newTestEngine(cfg, provider)

	var gotSymbol string
	var gotComposite strategy.CompositeSignal
	e.RegisterObserver(func(symbol string, _ dataprovider.Quote, composite strategy.CompositeSignal) {
		gotSymbol = symbol
		gotComposite = composite
	})

	if err := e.evaluateSymbol(context.Background(), "AAPL"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if gotSymbol != "AAPL" {
		t.Errorf("observer symbol = %q", gotSymbol)
	}
	// Ten flat bars are below every strategy minimum.
	if gotComposite.Overall != strategy.Neutral {
		t.Errorf("overall = %s, want HOLD", gotComposite.Overall)
	}
	if len(e.CachedBars("AAPL")) != 10 {
		t.Errorf("bar cache = %d bars, want 10", len(e.CachedBars("AAPL")))
	}
	if len(e.CachedBars("MSFT")) != 0 {
		t.Errorf("unknown symbol must read as empty history")
	}
}

func TestObserverPanicIsolated(t *testing.T) {
	cfg := testAppConfig("AAPL")
	provider := &fakeProvider{
		bars:   map[string][]utilities.OHLCVBar{"AAPL": flatBars(5, 100)},
		quotes: map[string]dataprovider.Quote{"AAPL": {Symbol: "AAPL", Price: 100}},
	}
	e := newTestEngine(cfg, provider)

	secondCalled := false
	e.RegisterObserver(func(string, dataprovider.Quote, strategy.CompositeSignal) { panic("boom") })
	e.RegisterObserver(func(string, dataprovider.Quote, strategy.CompositeSignal) { secondCalled = true })

	if err := e.evaluateSymbol(context.Background(), "AAPL"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if !secondCalled {
		t.Errorf("second observer skipped after first panicked")
	}
}

func TestEvaluateSymbolFetchError(t *testing.T) {
	cfg := testAppConfig("AAPL")
	e := newTestEngine(cfg, &fakeProvider{fetchErr: errors.New("upstream down")})

	if err := e.evaluateSymbol(context.Background(), "AAPL"); err == nil {
		t.Errorf("fetch error must propagate to the cycle")
	}
}

func TestQuoteFallsBackToBars(t *testing.T) {
	cfg := testAppConfig("AAPL")
	provider := &fakeProvider{bars: map[string][]utilities.OHLCVBar{"AAPL": flatBars(5, 42)}}
	e := newTestEngine(cfg, provider)

	var gotQuote dataprovider.Quote
	e.RegisterObserver(func(_ string, quote dataprovider.Quote, _ strategy.CompositeSignal) {
		gotQuote = quote
	})
	if err := e.evaluateSymbol(context.Background(), "AAPL"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if gotQuote.Price != 42 {
		t.Errorf("fallback quote price = %v, want 42", gotQuote.Price)
	}
}

func TestExitFlowRecordsTrade(t *testing.T) {
	cfg := testAppConfig("AAPL")
	provider := &fakeProvider{
		bars:   map[string][]utilities.OHLCVBar{"AAPL": flatBars(5, 90)},
		quotes: map[string]dataprovider.Quote{"AAPL": {Symbol: "AAPL", Price: 90}},
	}
	e := newTestEngine(cfg, provider)

	e.riskMgr.RestorePosition(risk.Position{
		Symbol: "AAPL", Shares: 10, EntryPrice: 100, PositionValue: 1000,
		StopLossPrice: 95, TakeProfitPrice: 115, RiskAmount: 50,
		EntryDate: time.Now(),
	})

	if err := e.evaluateSymbol(context.Background(), "AAPL"); err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}

	trades := e.TradeLog()
	if len(trades) != 1 {
		t.Fatalf("trade log = %d entries, want 1", len(trades))
	}
	if trades[0].Reason[:9] != "Stop loss" {
		t.Errorf("exit reason = %q", trades[0].Reason)
	}
	if trades[0].PnL != -100 {
		t.Errorf("pnl = %v, want -100", trades[0].PnL)
	}
	if _, open := e.riskMgr.OpenPosition("AAPL"); open {
		t.Errorf("position still open after stop")
	}
}

func TestRunShutdownFlushesArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfg := testAppConfig("AAPL")
	cfg.Trading.UpdateIntervalSec = 3600
	cfg.Notifications.OutputDir = dir

	provider := &fakeProvider{
		bars:   map[string][]utilities.OHLCVBar{"AAPL": flatBars(5, 100)},
		quotes: map[string]dataprovider.Quote{"AAPL": {Symbol: "AAPL", Price: 100}},
	}
	e := newTestEngine(cfg, provider)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("engine did not stop after cancellation")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var foundAlerts bool
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "alerts_") && filepath.Ext(entry.Name()) == ".json" {
			foundAlerts = true
		}
	}
	if !foundAlerts {
		t.Errorf("alert history artifact missing, dir: %v", entries)
	}
}
