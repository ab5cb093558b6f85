package utilities

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// LogLevel defines the severity of a log message.
type LogLevel int

// Logging Level
const (
	Debug LogLevel = iota
	Info
	Warn
	Error
	Fatal
)

// Colors.
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[92m" // For Buy signals
	ColorYellow = "\033[93m" // For weak signals
	ColorBlue   = "\033[94m" // For Hold signals
	ColorCyan   = "\033[96m" // For symbols
	ColorRed    = "\033[91m" // For Sell signals
	ColorWhite  = "\033[97m"
)

// --- Types (Alphabetized) ---

// AppConfig is the root configuration structure, holding all other config sections.
type AppConfig struct {
	AppName       string              `mapstructure:"app_name"`
	Version       string              `mapstructure:"version"`
	Environment   string              `mapstructure:"environment"`
	Backtest      BacktestConfig      `mapstructure:"backtest"`
	Data          DataConfig          `mapstructure:"data"`
	DB            DatabaseConfig      `mapstructure:"database"`
	Indicators    IndicatorsConfig    `mapstructure:"indicators"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Risk          RiskConfig          `mapstructure:"risk"`
	Trading       TradingConfig       `mapstructure:"trading"`
}

// BacktestConfig holds parameters for the historical replay engine.
type BacktestConfig struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Commission     float64 `mapstructure:"commission"`
}

// DataConfig holds settings for the market data provider.
type DataConfig struct {
	Period             string `mapstructure:"period"`
	Interval           string `mapstructure:"interval"`
	RequestTimeoutSec  int    `mapstructure:"request_timeout_sec"`
	MaxRetries         int    `mapstructure:"max_retries"`
	RetryDelaySec      int    `mapstructure:"retry_delay_sec"`
	RateLimitPerSec    int    `mapstructure:"rate_limit_per_sec"`
	RateLimitBurst     int    `mapstructure:"rate_limit_burst"`
	CacheRetentionDays int    `mapstructure:"cache_retention_days"`
}

// DatabaseConfig holds settings for database connections.
type DatabaseConfig struct {
	DBPath string `mapstructure:"database_path"`
}

// IndicatorsConfig holds parameters for various technical indicators.
type IndicatorsConfig struct {
	SMAShortPeriod   int     `mapstructure:"sma_short_period"`
	SMALongPeriod    int     `mapstructure:"sma_long_period"`
	RSIPeriod        int     `mapstructure:"rsi_period"`
	RSIOversold      float64 `mapstructure:"rsi_oversold"`
	RSIOverbought    float64 `mapstructure:"rsi_overbought"`
	MACDFastPeriod   int     `mapstructure:"macd_fast_period"`
	MACDSlowPeriod   int     `mapstructure:"macd_slow_period"`
	MACDSignalPeriod int     `mapstructure:"macd_signal_period"`
	BollingerPeriod  int     `mapstructure:"bollinger_period"`
	BollingerStdDev  float64 `mapstructure:"bollinger_std_dev"`
	StochasticK      int     `mapstructure:"stochastic_k_period"`
	StochasticD      int     `mapstructure:"stochastic_d_period"`
	WilliamsRPeriod  int     `mapstructure:"williams_r_period"`
	ATRPeriod        int     `mapstructure:"atr_period"`
}

// Logger wraps the standard library logger with level filtering.
type Logger struct {
	Level  LogLevel
	Logger *log.Logger
}

// LoggingConfig holds settings for application logging.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// NotificationsConfig toggles the alert delivery channels.
type NotificationsConfig struct {
	EnableConsole bool   `mapstructure:"enable_console"`
	EnableDesktop bool   `mapstructure:"enable_desktop"`
	EnableSound   bool   `mapstructure:"enable_sound"`
	HistoryLimit  int    `mapstructure:"history_limit"`
	OutputDir     string `mapstructure:"output_dir"`
}

// OHLCVBar represents a single OHLCV bar of market data.
type OHLCVBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// RiskConfig holds the portfolio risk management parameters.
type RiskConfig struct {
	MaxPositionSize    float64 `mapstructure:"max_position_size"`
	MaxDailyLoss       float64 `mapstructure:"max_daily_loss"`
	StopLossPercent    float64 `mapstructure:"stop_loss_percent"`
	TakeProfitPercent  float64 `mapstructure:"take_profit_percent"`
	MaxPortfolioRisk   float64 `mapstructure:"max_portfolio_risk"`
	MinEntryConfidence float64 `mapstructure:"min_entry_confidence"`
	MinExitConfidence  float64 `mapstructure:"min_exit_confidence"`
	MaxHoldingDays     int     `mapstructure:"max_holding_days"`
}

// TradingConfig holds the symbol watchlist and engine cadence settings.
type TradingConfig struct {
	Symbols                    []string `mapstructure:"symbols"`
	UpdateIntervalSec          int      `mapstructure:"update_interval_sec"`
	InitialCapital             float64  `mapstructure:"initial_capital"`
	PortfolioUpdateIntervalSec int      `mapstructure:"portfolio_update_interval_sec"`
	FetchBackoffSec            int      `mapstructure:"fetch_backoff_sec"`
}

// --- Functions ---

// Clamp constrains v to the inclusive range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// LogDebug logs a message at Debug level.
func (l *Logger) LogDebug(format string, v ...interface{}) {
	if l.Level <= Debug {
		_ = l.Logger.Output(2, fmt.Sprintf("[DEBUG] "+format, v...))
	}
}

// LogError logs a message at Error level.
func (l *Logger) LogError(format string, v ...interface{}) {
	if l.Level <= Error {
		_ = l.Logger.Output(2, fmt.Sprintf("[ERROR] "+format, v...))
	}
}

// LogFatal logs a message at Fatal level and then calls os.Exit(1).
func (l *Logger) LogFatal(format string, v ...interface{}) {
	_ = l.Logger.Output(2, fmt.Sprintf("[FATAL] "+format, v...))
	os.Exit(1)
}

// LogInfo logs a message at Info level.
func (l *Logger) LogInfo(format string, v ...interface{}) {
	if l.Level <= Info {
		_ = l.Logger.Output(2, fmt.Sprintf("[INFO] "+format, v...))
	}
}

// LogWarn logs a message at Warn level.
func (l *Logger) LogWarn(format string, v ...interface{}) {
	if l.Level <= Warn {
		_ = l.Logger.Output(2, fmt.Sprintf("[WARN] "+format, v...))
	}
}

// MinInt returns the minimum of two integers.
func MinInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// NewLogger creates a new Logger instance.
func NewLogger(level LogLevel) *Logger {
	return &Logger{
		Level:  level,
		Logger: log.New(os.Stdout, "[Tradewinds] ", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// ParseLogLevel converts a string log level to the LogLevel type.
func ParseLogLevel(levelStr string) (LogLevel, error) {
	switch strings.ToLower(levelStr) {
	case "debug":
		return Debug, nil
	case "info":
		return Info, nil
	case "warn":
		return Warn, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return Info, fmt.Errorf("invalid log level string: %s", levelStr)
	}
}

// SetLogLevel updates the logging level of the logger.
func (l *Logger) SetLogLevel(level LogLevel) {
	l.Level = level
}

// SortBarsByTimestamp sorts a slice of OHLCVBar by ascending Timestamp.
func SortBarsByTimestamp(bars []OHLCVBar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Timestamp < bars[j].Timestamp
	})
}
