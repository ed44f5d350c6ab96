// Package bot runs the trading loop: fetch candles, compute indicators, decide,
// execute and notify, once per configured interval.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"
	str2duration "github.com/xhit/go-str2duration/v2"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/indicator"
	"github.com/mkaraca/swingbot/ledger"
	"github.com/mkaraca/swingbot/logger"
	"github.com/mkaraca/swingbot/storage"
	"github.com/mkaraca/swingbot/strategy"
)

// phase names the stage a tick is in. Logged at debug level so a stuck tick is
// diagnosable from the log alone.
type phase string

const (
	phaseIdle      phase = "idle"
	phaseFetching  phase = "fetching"
	phaseComputing phase = "computing"
	phaseDeciding  phase = "deciding"
	phaseExecuting phase = "executing"
	phaseNotifying phase = "notifying"
)

// OrderExecutor places the order described by a non-NoOp action.
type OrderExecutor interface {
	Execute(ctx context.Context, action core.Action) (core.Fill, error)
}

// Bot wires the pipeline together and owns the tick schedule. One Bot trades
// exactly one pair.
type Bot struct {
	settings  *core.Settings
	exchange  core.Exchange
	calc      *indicator.Calculator
	th        strategy.Thresholds
	ledger    *ledger.Ledger
	executor  OrderExecutor
	store     *storage.Store
	notifier  core.Notifier
	log       logger.Logger
	timeframe string
	interval  time.Duration

	maxFetchRetries int
	phase           phase
}

type Option func(*Bot)

// WithStore enables state persistence after every closed trade and at
// shutdown.
func WithStore(store *storage.Store) Option {
	return func(b *Bot) {
		b.store = store
	}
}

// WithNotifier replaces the default log-only notifier.
func WithNotifier(notifier core.Notifier) Option {
	return func(b *Bot) {
		b.notifier = notifier
	}
}

// WithMaxFetchRetries bounds the backoff retries for a failed candle fetch.
func WithMaxFetchRetries(n int) Option {
	return func(b *Bot) {
		b.maxFetchRetries = n
	}
}

func New(
	settings *core.Settings,
	exch core.Exchange,
	calc *indicator.Calculator,
	th strategy.Thresholds,
	led *ledger.Ledger,
	exec OrderExecutor,
	log logger.Logger,
	timeframe, interval string,
	options ...Option,
) (*Bot, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}

	tickEvery, err := str2duration.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("invalid interval %q: %w", interval, err)
	}

	b := &Bot{
		settings:        settings,
		exchange:        exch,
		calc:            calc,
		th:              th,
		ledger:          led,
		executor:        exec,
		log:             log,
		timeframe:       timeframe,
		interval:        tickEvery,
		maxFetchRetries: 3,
		phase:           phaseIdle,
	}
	for _, option := range options {
		option(b)
	}
	return b, nil
}

// Mode reports whether this instance trades real capital.
func (b *Bot) Mode() core.Mode { return b.settings.Mode }

// Position exposes the active position for status reporting.
func (b *Bot) Position() core.Position { return b.ledger.Position() }

// Cash exposes the free balance for status reporting.
func (b *Bot) Cash() float64 { return b.ledger.Cash() }

// ProfitSummary renders the closed-trade statistics, empty when no trade has
// closed yet.
func (b *Bot) ProfitSummary() string {
	state := b.ledger.State()
	if len(state.Trades) == 0 {
		return ""
	}
	lastPrice := state.Trades[len(state.Trades)-1].ExitPrice
	return ledger.Summarize(b.settings.Pair, state, lastPrice).String()
}

// Run executes ticks until the context is cancelled. The first tick fires
// immediately; cancellation is observed between ticks, an in-flight tick
// always completes.
func (b *Bot) Run(ctx context.Context) error {
	b.log.Infof("%s starting bot: pair=%s timeframe=%s interval=%s",
		b.settings.Mode.Tag(), b.settings.Pair, b.timeframe, b.interval)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return b.shutdown()
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Bot) shutdown() error {
	b.log.Info("shutting down")

	if summary := b.ProfitSummary(); summary != "" {
		b.log.Info("session results:\n" + summary)
	}
	if err := b.persist(); err != nil {
		return err
	}
	return nil
}

func (b *Bot) setPhase(p phase) {
	b.phase = p
	b.log.WithField("phase", string(p)).Debug("tick phase")
}

// tick runs one full pipeline pass. Every failure path degrades to HOLD: the
// ledger is only touched by a confirmed fill.
func (b *Bot) tick(ctx context.Context) {
	defer b.setPhase(phaseIdle)

	b.setPhase(phaseFetching)
	candles, err := b.fetchCandles(ctx)
	if err != nil {
		b.log.WithError(err).Warnf("candle fetch failed after %d retries, skipping tick",
			b.maxFetchRetries)
		return
	}

	b.setPhase(phaseComputing)
	snap, err := b.calc.Snapshot(candles)
	if err != nil {
		if errors.Is(err, core.ErrInsufficientHistory) {
			b.log.WithError(err).Debug("indicator window warming up, holding")
		} else {
			b.log.WithError(err).Warn("indicator computation failed, holding")
		}
		return
	}

	b.setPhase(phaseDeciding)
	sig := strategy.Evaluate(snap, b.th)
	b.log.Info(strategy.Explain(snap, b.th, sig))

	action := b.ledger.Propose(sig, snap.Price, snap.Time)
	if action.IsNoOp() {
		return
	}

	b.setPhase(phaseExecuting)
	fill, err := b.executor.Execute(ctx, action)
	if err != nil {
		// Never resubmit a failed live order. The next tick re-evaluates
		// from scratch against the unchanged ledger.
		b.log.WithError(err).Errorf("%s order failed, ledger untouched", b.settings.Mode.Tag())
		if b.notifier != nil {
			b.notifier.OnError(err)
		}
		return
	}

	trade, err := b.ledger.ApplyFill(action, fill)
	if err != nil {
		b.log.WithError(err).Error("failed to apply fill, state may need inspection")
		if b.notifier != nil {
			b.notifier.OnError(err)
		}
		return
	}

	b.setPhase(phaseNotifying)
	if trade != nil {
		b.log.Infof("%s trade closed: profit=%.4f (%.2f%%)",
			b.settings.Mode.Tag(), trade.ProfitValue, trade.ProfitPercent*100)
		if err := b.persist(); err != nil {
			b.log.WithError(err).Error("failed to persist state after trade")
		}
		if b.notifier != nil {
			b.notifier.OnClose(b.settings.Pair, *trade)
		}
		return
	}

	position := b.ledger.Position()
	b.log.Infof("%s position opened: qty=%.6f entry=%.4f",
		b.settings.Mode.Tag(), position.Quantity, position.EntryPrice)
	if b.notifier != nil {
		b.notifier.OnOpen(b.settings.Pair, position)
	}
}

// fetchCandles pulls the trailing indicator window, retrying transient
// failures with exponential backoff.
func (b *Bot) fetchCandles(ctx context.Context) ([]core.Candle, error) {
	retry := &backoff.Backoff{
		Min:    500 * time.Millisecond,
		Max:    10 * time.Second,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= b.maxFetchRetries; attempt++ {
		candles, err := b.exchange.CandlesByLimit(ctx, b.settings.Pair, b.timeframe, b.calc.Warmup())
		if err == nil {
			return candles, nil
		}
		lastErr = err

		if attempt < b.maxFetchRetries {
			wait := retry.Duration()
			b.log.WithError(err).Warnf("candle fetch failed, retrying in %s", wait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return nil, lastErr
}

func (b *Bot) persist() error {
	if b.store == nil {
		return nil
	}
	return b.store.SaveState(b.ledger.State())
}
