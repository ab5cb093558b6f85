package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"Tradewinds/dataprovider/yahoo"
	"Tradewinds/notification"
	"Tradewinds/pkg/app"
	"Tradewinds/strategy"
	"Tradewinds/utilities"
)

const banner = `
  ______                __             _           __
 /_  __/________ _____/ /__ _      __(_)___  ____/ /____
  / / / ___/ __ ` + "`" + `/ __  / _ \ | /| / / / __ \/ __  / ___/
 / / / /  / /_/ / /_/ /  __/ |/ |/ / / / / / /_/ (__  )
/_/ /_/   \__,_/\__,_/\___/|__/|__/_/_/ /_/\__,_/____/

        Multi-strategy stock signal monitor
[]=========================================================================[]`

var (
	cfgFile      string
	flagInterval int
	flagCapital  float64
	flagTest     bool

	cfg    utilities.AppConfig
	logger *utilities.Logger
)

// rootCmd represents the base command for the Tradewinds CLI.
var rootCmd = &cobra.Command{
	Use:   "tradewinds [symbols...]",
	Short: "Tradewinds multi-strategy trading signal monitor",
	Long: `Tradewinds watches a list of stock symbols, evaluates SMA, RSI, MACD and
Bollinger Band strategies on every cycle, fuses them into a composite
signal and alerts when the picture changes.`,
	Args: cobra.ArbitraryArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}

		// Command line overrides config file.
		if len(args) > 0 {
			cfg.Trading.Symbols = args
		}
		if cmd.Flags().Changed("interval") {
			cfg.Trading.UpdateIntervalSec = flagInterval
		}
		if cmd.Flags().Changed("capital") {
			cfg.Trading.InitialCapital = flagCapital
		}

		level, err := utilities.ParseLogLevel(cfg.Logging.Level)
		if err != nil {
			return fmt.Errorf("invalid log level: %w", err)
		}
		logger = utilities.NewLogger(level)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(banner)

		if flagTest {
			notification.NewNotifier(cfg.Notifications, logger).Test()
			return nil
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigChan
			logger.LogWarn("Received signal: %v, initiating graceful shutdown.", sig)
			cancel()
		}()

		return app.Run(ctx, &cfg, logger)
	},
}

// backtestCmd replays the moving average crossover strategy over the
// fetched history and prints the equity metrics.
var backtestCmd = &cobra.Command{
	Use:   "backtest [symbol]",
	Short: "Replay the SMA crossover strategy over historical bars",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		symbol := cfg.Trading.Symbols[0]
		if len(args) == 1 {
			symbol = args[0]
		}

		provider := yahoo.NewClient(cfg.Data, nil, logger)
		bars, err := provider.GetOHLCV(context.Background(), symbol, cfg.Data.Period, cfg.Data.Interval)
		if err != nil {
			return fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
		}

		signals := strategy.GenerateCrossoverSignals(bars, cfg.Indicators.SMAShortPeriod, cfg.Indicators.SMALongPeriod)
		backtester := &strategy.Backtester{
			InitialCapital: cfg.Backtest.InitialCapital,
			Commission:     cfg.Backtest.Commission,
		}
		result := backtester.Run(bars, signals.Positions)

		fmt.Printf("\nBacktest: %s over %d bars (%s/%s)\n", symbol, len(bars), cfg.Data.Period, cfg.Data.Interval)
		fmt.Printf("  Initial capital:  $%.2f\n", result.InitialCapital)
		fmt.Printf("  Final value:      $%.2f\n", result.FinalValue)
		fmt.Printf("  Total return:     %+.2f%%\n", result.TotalReturn*100)
		fmt.Printf("  Annual return:    %+.2f%%\n", result.AnnualReturn*100)
		fmt.Printf("  Volatility:       %.2f%%\n", result.Volatility*100)
		fmt.Printf("  Sharpe ratio:     %.2f\n", result.SharpeRatio)
		fmt.Printf("  Max drawdown:     %.2f%%\n", result.MaxDrawdown*100)
		fmt.Printf("  Trades:           %d\n", result.TotalTrades)
		return nil
	},
}

// loadConfig seeds viper with the built-in defaults, then layers the config
// file (when one is present) and environment variables on top.
func loadConfig() error {
	setDefaults()
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("config")
		viper.AddConfigPath(".")
		if err := viper.ReadInConfig(); err != nil {
			// Defaults alone are a complete configuration.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := viper.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("app_name", "Tradewinds")
	viper.SetDefault("logging.level", "info")

	viper.SetDefault("trading.symbols", []string{"AAPL", "GOOGL", "MSFT", "TSLA"})
	viper.SetDefault("trading.update_interval_sec", 60)
	viper.SetDefault("trading.initial_capital", 10000.0)
	viper.SetDefault("trading.portfolio_update_interval_sec", 300)
	viper.SetDefault("trading.fetch_backoff_sec", 5)

	viper.SetDefault("data.period", "5d")
	viper.SetDefault("data.interval", "1m")
	viper.SetDefault("data.request_timeout_sec", 10)
	viper.SetDefault("data.max_retries", 3)
	viper.SetDefault("data.retry_delay_sec", 1)
	viper.SetDefault("data.rate_limit_per_sec", 2)
	viper.SetDefault("data.rate_limit_burst", 1)
	viper.SetDefault("data.cache_retention_days", 14)

	viper.SetDefault("database.database_path", "data/tradewinds.db")

	viper.SetDefault("indicators.sma_short_period", 20)
	viper.SetDefault("indicators.sma_long_period", 50)
	viper.SetDefault("indicators.rsi_period", 14)
	viper.SetDefault("indicators.rsi_oversold", 30.0)
	viper.SetDefault("indicators.rsi_overbought", 70.0)
	viper.SetDefault("indicators.macd_fast_period", 12)
	viper.SetDefault("indicators.macd_slow_period", 26)
	viper.SetDefault("indicators.macd_signal_period", 9)
	viper.SetDefault("indicators.bollinger_period", 20)
	viper.SetDefault("indicators.bollinger_std_dev", 2.0)
	viper.SetDefault("indicators.stochastic_k_period", 14)
	viper.SetDefault("indicators.stochastic_d_period", 3)
	viper.SetDefault("indicators.williams_r_period", 14)
	viper.SetDefault("indicators.atr_period", 14)

	viper.SetDefault("risk.max_position_size", 0.1)
	viper.SetDefault("risk.max_daily_loss", 0.05)
	viper.SetDefault("risk.stop_loss_percent", 0.05)
	viper.SetDefault("risk.take_profit_percent", 0.15)
	viper.SetDefault("risk.max_portfolio_risk", 0.2)
	viper.SetDefault("risk.min_entry_confidence", 60.0)
	viper.SetDefault("risk.min_exit_confidence", 70.0)
	viper.SetDefault("risk.max_holding_days", 30)

	viper.SetDefault("notifications.enable_console", true)
	viper.SetDefault("notifications.enable_desktop", false)
	viper.SetDefault("notifications.enable_sound", false)
	viper.SetDefault("notifications.history_limit", 100)
	viper.SetDefault("notifications.output_dir", "data")

	viper.SetDefault("backtest.initial_capital", 10000.0)
	viper.SetDefault("backtest.commission", 0.001)
}

// Execute runs the root command.
func Execute() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults are used when none is found)")
	rootCmd.Flags().IntVarP(&flagInterval, "interval", "i", 60, "update interval in seconds")
	rootCmd.Flags().Float64VarP(&flagCapital, "capital", "c", 10000, "initial capital for position sizing")
	rootCmd.Flags().BoolVar(&flagTest, "test", false, "send a test alert through the enabled channels and exit")
	rootCmd.AddCommand(backtestCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
