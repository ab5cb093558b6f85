package notification

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

func newQuietNotifier(limit int) *Notifier {
	return NewNotifier(utilities.NotificationsConfig{
		EnableConsole: false,
		EnableDesktop: false,
		EnableSound:   false,
		HistoryLimit:  limit,
	}, utilities.NewLogger(utilities.Error))
}

func compositeFor(symbol string, overall strategy.OverallSignal, confidence float64) strategy.CompositeSignal {
	return strategy.CompositeSignal{
		Symbol:     symbol,
		Overall:    overall,
		Confidence: confidence,
		Timestamp:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Signals: []strategy.StrategySignal{{
			Strategy:     "SMA",
			Direction:    strategy.Buy,
			Strength:     42,
			CurrentPrice: 101.5,
			Reason:       "test",
		}},
	}
}

func TestHistoryCap(t *testing.T) {
	n := newQuietNotifier(3)
	for i := 0; i < 5; i++ {
		n.SendAlert(compositeFor(fmt.Sprintf("S%d", i), strategy.OverallBuy, 75))
	}

	got := n.History(0)
	if len(got) != 3 {
		t.Fatalf("history length = %d, want capped 3", len(got))
	}
	if got[0].Symbol != "S2" || got[2].Symbol != "S4" {
		t.Errorf("history window = %s..%s, want S2..S4", got[0].Symbol, got[2].Symbol)
	}
}

func TestHistoryLimitQuery(t *testing.T) {
	n := newQuietNotifier(100)
	for i := 0; i < 4; i++ {
		n.SendAlert(compositeFor(fmt.Sprintf("S%d", i), strategy.Neutral, 0))
	}

	got := n.History(2)
	if len(got) != 2 || got[1].Symbol != "S3" {
		t.Errorf("History(2) = %+v", got)
	}

	n.Clear()
	if len(n.History(0)) != 0 {
		t.Errorf("history survived Clear")
	}
}

func TestAlertMessageFormat(t *testing.T) {
	msg := formatAlertMessage(compositeFor("AAPL", strategy.StrongBuy, 85.5))
	for _, want := range []string{"AAPL: STRONG_BUY (Confidence: 85.5%)", "Price: $101.50", "SMA: BUY (42.0%)"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestSaveHistoryWritesJSON(t *testing.T) {
	n := newQuietNotifier(100)
	n.now = func() time.Time { return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC) }
	n.SendAlert(compositeFor("AAPL", strategy.StrongBuy, 85))

	dir := t.TempDir()
	path, err := n.SaveHistory(dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasSuffix(path, "alerts_20250601_123000.json") {
		t.Errorf("path = %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var entries []AlertEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Symbol != "AAPL" || entries[0].Signal != strategy.StrongBuy {
		t.Errorf("entries = %+v", entries)
	}
	// Timestamps serialize in RFC 3339 form.
	if !strings.Contains(string(data), "2025-06-01T12:00:00Z") {
		t.Errorf("timestamp not ISO-8601:\n%s", data)
	}
}

func TestSignalColors(t *testing.T) {
	if signalColor(strategy.StrongBuy) != utilities.ColorGreen {
		t.Errorf("strong buy color")
	}
	if signalColor(strategy.StrongSell) != utilities.ColorRed {
		t.Errorf("strong sell color")
	}
	if signalColor(strategy.Neutral) != utilities.ColorBlue {
		t.Errorf("hold color")
	}
	if signalColor(strategy.WeakSell) != utilities.ColorYellow {
		t.Errorf("weak sell color")
	}
}
