// File: notification/notifier.go
package notification

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

const defaultHistoryLimit = 100

// Sound alert tones by signal side, mirroring a terminal beep.
const (
	buyToneHz     = 1000.0
	sellToneHz    = 400.0
	neutralToneHz = 700.0
	toneMillis    = 200
)

// AlertEntry is a stored alert, serialized into the session history file.
type AlertEntry struct {
	Timestamp  time.Time              `json:"timestamp"`
	Symbol     string                 `json:"symbol"`
	Signal     strategy.OverallSignal `json:"signal"`
	Confidence float64                `json:"confidence"`
	Message    string                 `json:"message"`
}

// Notifier fans trading alerts out to the enabled channels and keeps a
// bounded in-memory history. Channel failures are logged, never returned.
type Notifier struct {
	cfg    utilities.NotificationsConfig
	logger *utilities.Logger

	mu      sync.Mutex
	history []AlertEntry

	now func() time.Time
}

// NewNotifier creates a Notifier for the configured channels.
func NewNotifier(cfg utilities.NotificationsConfig, logger *utilities.Logger) *Notifier {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Notifier{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SendAlert delivers a composite signal through every enabled channel and
// appends it to the history.
func (n *Notifier) SendAlert(composite strategy.CompositeSignal) {
	message := formatAlertMessage(composite)

	if n.cfg.EnableConsole {
		n.consoleAlert(composite)
	}
	if n.cfg.EnableDesktop {
		title := fmt.Sprintf("Trading Alert: %s", composite.Symbol)
		if err := beeep.Notify(title, message, ""); err != nil {
			n.logger.LogWarn("desktop notification failed: %v", err)
		}
	}
	if n.cfg.EnableSound {
		n.soundAlert(composite.Overall)
	}

	n.record(AlertEntry{
		Timestamp:  composite.Timestamp,
		Symbol:     composite.Symbol,
		Signal:     composite.Overall,
		Confidence: composite.Confidence,
		Message:    message,
	})
}

func (n *Notifier) record(entry AlertEntry) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = append(n.history, entry)
	if len(n.history) > n.cfg.HistoryLimit {
		n.history = n.history[len(n.history)-n.cfg.HistoryLimit:]
	}
}

func formatAlertMessage(composite strategy.CompositeSignal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s (Confidence: %.1f%%)", composite.Symbol, composite.Overall, composite.Confidence)
	if len(composite.Signals) > 0 && composite.Signals[0].CurrentPrice > 0 {
		fmt.Fprintf(&b, "\nPrice: $%.2f", composite.Signals[0].CurrentPrice)
	}
	if len(composite.Signals) > 0 {
		b.WriteString("\n\nStrategy Signals:")
		for _, s := range composite.Signals {
			fmt.Fprintf(&b, "\n- %s: %s (%.1f%%)", s.Strategy, s.Direction, s.Strength)
		}
	}
	return b.String()
}

func signalColor(overall strategy.OverallSignal) string {
	switch overall {
	case strategy.StrongBuy, strategy.OverallBuy:
		return utilities.ColorGreen
	case strategy.WeakBuy, strategy.WeakSell:
		return utilities.ColorYellow
	case strategy.OverallSell, strategy.StrongSell:
		return utilities.ColorRed
	default:
		return utilities.ColorBlue
	}
}

func (n *Notifier) consoleAlert(composite strategy.CompositeSignal) {
	color := signalColor(composite.Overall)
	line := strings.Repeat("=", 60)

	fmt.Println("\n" + line)
	fmt.Printf("%sTRADING ALERT: %s%s\n", color, composite.Symbol, utilities.ColorReset)
	fmt.Printf("Time: %s\n", composite.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Printf("%sSignal: %s (Confidence: %.1f%%)%s\n", color, composite.Overall, composite.Confidence, utilities.ColorReset)
	if len(composite.Signals) > 0 && composite.Signals[0].CurrentPrice > 0 {
		fmt.Printf("Current Price: $%.2f\n", composite.Signals[0].CurrentPrice)
	}
	fmt.Println("\nStrategy Breakdown:")
	for _, s := range composite.Signals {
		fmt.Printf("  %s- %s: %s (%.1f%%)%s\n", signalColorForDirection(s.Direction), s.Strategy, s.Direction, s.Strength, utilities.ColorReset)
		fmt.Printf("    Reason: %s\n", s.Reason)
	}
	fmt.Println(line)
}

func signalColorForDirection(d strategy.Direction) string {
	switch d {
	case strategy.Buy, strategy.HoldBullish:
		return utilities.ColorGreen
	case strategy.Sell, strategy.HoldBearish:
		return utilities.ColorRed
	default:
		return utilities.ColorBlue
	}
}

func (n *Notifier) soundAlert(overall strategy.OverallSignal) {
	freq := neutralToneHz
	switch overall {
	case strategy.StrongBuy, strategy.OverallBuy:
		freq = buyToneHz
	case strategy.StrongSell, strategy.OverallSell:
		freq = sellToneHz
	}
	if err := beeep.Beep(freq, toneMillis); err != nil {
		n.logger.LogWarn("sound alert failed: %v", err)
	}
}

// History returns the most recent alerts, newest last.
func (n *Notifier) History(limit int) []AlertEntry {
	n.mu.Lock()
	defer n.mu.Unlock()

	if limit <= 0 || limit > len(n.history) {
		limit = len(n.history)
	}
	out := make([]AlertEntry, limit)
	copy(out, n.history[len(n.history)-limit:])
	return out
}

// Clear drops the alert history.
func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = nil
}

// SaveHistory writes the alert history to a timestamped JSON file in dir
// and returns the path.
func (n *Notifier) SaveHistory(dir string) (string, error) {
	entries := n.History(0)

	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output dir: %w", err)
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("alerts_%s.json", n.now().Format("20060102_150405")))

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal alert history: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write alert history: %w", err)
	}
	return path, nil
}

// Test pushes a synthetic alert through every enabled channel.
func (n *Notifier) Test() {
	n.logger.LogInfo("Testing notification channels...")
	n.SendAlert(strategy.CompositeSignal{
		Symbol:     "TEST",
		Overall:    strategy.OverallBuy,
		Confidence: 85,
		Timestamp:  n.now(),
		Signals: []strategy.StrategySignal{{
			Strategy:     "SMA",
			Direction:    strategy.Buy,
			Strength:     75,
			CurrentPrice: 150.25,
			Reason:       "Test signal generation",
		}},
	})
	n.logger.LogInfo("Test notification sent")
}
