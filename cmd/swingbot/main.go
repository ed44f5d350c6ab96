// Package main is the entry point for the swingbot trading application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mkaraca/swingbot/bot"
	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	"github.com/mkaraca/swingbot/executor"
	"github.com/mkaraca/swingbot/indicator"
	"github.com/mkaraca/swingbot/internal/config"
	"github.com/mkaraca/swingbot/ledger"
	"github.com/mkaraca/swingbot/logger"
	zerologger "github.com/mkaraca/swingbot/logger/zerolog"
	"github.com/mkaraca/swingbot/notification"
	"github.com/mkaraca/swingbot/storage"
	"github.com/mkaraca/swingbot/strategy"
)

var (
	configPath string
	liveMode   bool
	resetState bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "swingbot",
		Short:   "RSI+EMA signal bot for a single trading pair",
		Version: "1.0.0",
	}

	rootCmd.AddCommand(buildRunCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the trading loop",
		RunE:  run,
	}

	runCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	runCmd.Flags().BoolVar(&liveMode, "live", false, "Trade with real capital instead of paper")
	runCmd.Flags().BoolVar(&resetState, "reset-state", false, "Discard persisted ledger state and start fresh")

	return runCmd
}

func run(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if liveMode {
		cfg.PaperMode = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := zerologger.New(cfg.LogLevel, true)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mode := core.ModePaper
	if !cfg.PaperMode {
		mode = core.ModeLive
		log.Warn("LIVE MODE: orders will be placed with real capital")
	}

	settings := &core.Settings{
		Pair: cfg.Symbol,
		Mode: mode,
		Telegram: core.TelegramSettings{
			Enabled: cfg.Telegram.Enabled,
			Token:   cfg.Telegram.Token,
			Users:   cfg.Telegram.Users,
		},
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tradingBot, store, err := setupBot(ctx, cfg, settings, log)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	return tradingBot.Run(ctx)
}

// setupBot wires storage, exchange, ledger and notifier into a runnable bot.
func setupBot(
	ctx context.Context,
	cfg *config.Config,
	settings *core.Settings,
	log logger.Logger,
) (*bot.Bot, *storage.Store, error) {
	store, err := storage.FromFile(cfg.StoragePath)
	if err != nil {
		return nil, nil, err
	}

	if resetState {
		log.Warn("discarding persisted state on request")
		if err := store.Reset(); err != nil {
			return nil, nil, err
		}
	}

	led, err := ledger.New(cfg.Symbol, settings.Mode, cfg.StartingBalance, cfg.TradeAmount)
	if err != nil {
		return nil, nil, err
	}

	state, found, err := store.LoadState()
	if err != nil {
		if errors.Is(err, core.ErrStateCorrupted) {
			return nil, nil, fmt.Errorf(
				"%w: refusing to trade on unreadable state, pass --reset-state to start over", err)
		}
		return nil, nil, err
	}
	if found {
		log.Infof("restored ledger state: cash=%.4f trades=%d position=%s",
			state.Cash, len(state.Trades), state.Position.Side)
		led.Restore(state)
	} else {
		log.Warnf("no persisted state found, starting fresh with balance %.4f", cfg.StartingBalance)
	}

	exch, err := setupExchange(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}

	calc, err := indicator.NewCalculator(cfg.RSIPeriod, cfg.EMAPeriod)
	if err != nil {
		return nil, nil, err
	}

	th := strategy.Thresholds{
		RSIPeriod:  cfg.RSIPeriod,
		Oversold:   cfg.RSIOversold,
		Overbought: cfg.RSIOverbought,
		EMAPeriod:  cfg.EMAPeriod,
	}

	exec := executor.New(exch, settings.Mode, log)

	tradingBot, err := bot.New(
		settings, exch, calc, th, led, exec, log,
		cfg.Timeframe, cfg.Interval,
		bot.WithStore(store),
		bot.WithMaxFetchRetries(cfg.MaxFetchRetries),
	)
	if err != nil {
		return nil, nil, err
	}

	notifier, err := setupNotifier(tradingBot, settings, log)
	if err != nil {
		return nil, nil, err
	}
	bot.WithNotifier(notifier)(tradingBot)

	if starter, ok := notifier.(core.NotifierWithStart); ok {
		starter.Start()
	}

	return tradingBot, store, nil
}

func setupExchange(ctx context.Context, cfg *config.Config, log logger.Logger) (core.Exchange, error) {
	options := []exchange.BinanceOption{}
	if cfg.Binance.APIKey != "" {
		options = append(options, exchange.WithCredentials(cfg.Binance.APIKey, cfg.Binance.APISecret))
	}
	if cfg.Binance.Testnet {
		options = append(options, exchange.WithTestNet())
	}

	binance, err := exchange.NewBinance(ctx, log, options...)
	if err != nil {
		return nil, err
	}

	if cfg.PaperMode {
		return exchange.NewSim(binance, log,
			exchange.WithSlippage(cfg.Slippage),
			exchange.WithFee(cfg.FeeRate),
		), nil
	}
	return binance, nil
}

func setupNotifier(statusSource notification.StatusSource, settings *core.Settings, log logger.Logger) (core.Notifier, error) {
	if !settings.Telegram.Enabled {
		return notification.NewLog(settings.Mode, log), nil
	}
	return notification.NewTelegram(statusSource, settings, log)
}
