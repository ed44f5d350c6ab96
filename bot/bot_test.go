package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	"github.com/mkaraca/swingbot/executor"
	"github.com/mkaraca/swingbot/indicator"
	"github.com/mkaraca/swingbot/ledger"
	zerologger "github.com/mkaraca/swingbot/logger/zerolog"
	"github.com/mkaraca/swingbot/storage"
	"github.com/mkaraca/swingbot/strategy"
	"github.com/stretchr/testify/require"
)

// scriptedFeeder returns one candle window per fetch, then keeps replaying the
// last one.
type scriptedFeeder struct {
	mu      sync.Mutex
	windows [][]core.Candle
	err     error
}

func (f *scriptedFeeder) LastQuote(_ context.Context, _ string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	window := f.peek()
	if len(window) == 0 {
		return 0, errors.New("no data")
	}
	return window[len(window)-1].Close, nil
}

func (f *scriptedFeeder) CandlesByLimit(_ context.Context, _, _ string, _ int) ([]core.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.windows) == 0 {
		return nil, errors.New("no data")
	}
	window := f.windows[0]
	if len(f.windows) > 1 {
		f.windows = f.windows[1:]
	}
	return window, nil
}

func (f *scriptedFeeder) peek() []core.Candle {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.windows) == 0 {
		return nil
	}
	return f.windows[0]
}

type recordingNotifier struct {
	mu     sync.Mutex
	opens  []core.Position
	closes []core.Trade
	errs   []error
}

func (n *recordingNotifier) Notify(string) {}

func (n *recordingNotifier) OnOpen(_ string, position core.Position) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.opens = append(n.opens, position)
}

func (n *recordingNotifier) OnClose(_ string, trade core.Trade) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closes = append(n.closes, trade)
}

func (n *recordingNotifier) OnError(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, err)
}

type failingExecutor struct {
	err   error
	calls int
}

func (e *failingExecutor) Execute(context.Context, core.Action) (core.Fill, error) {
	e.calls++
	return core.Fill{}, e.err
}

func window(closes ...float64) []core.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		candles[i] = core.Candle{
			Pair: "BTCUSDT", Time: base.Add(time.Duration(i) * time.Hour),
			Open: c, High: c, Low: c, Close: c, Complete: true,
		}
	}
	return candles
}

// With RSI(2) and EMA(2) the windows below are hand-checkable:
//
//	flat    5, 5, 5       RSI 0 (degenerate), EMA = price     -> HOLD
//	dip     10, 9, 9.8    RSI 44.4 < 50, price 9.8 > EMA 9.7  -> BUY
//	rally   9, 10, 10.5   RSI 100 > 80                        -> SELL
//	slide   10, 10, 9     price 9 < EMA 9.33                  -> SELL
var (
	flatWindow  = window(5, 5, 5)
	buyWindow   = window(10, 9, 9.8)
	rallyWindow = window(9, 10, 10.5)
	slideWindow = window(10, 10, 9)
)

type testEnv struct {
	bot      *Bot
	ledger   *ledger.Ledger
	notifier *recordingNotifier
	store    *storage.Store
}

func newTestEnv(t *testing.T, feeder core.Feeder, options ...Option) *testEnv {
	t.Helper()

	log, err := zerologger.New("disabled", false)
	require.NoError(t, err)

	settings := &core.Settings{Pair: "BTCUSDT", Mode: core.ModePaper}
	sim := exchange.NewSim(feeder, log)

	calc, err := indicator.NewCalculator(2, 2)
	require.NoError(t, err)

	th := strategy.Thresholds{RSIPeriod: 2, Oversold: 50, Overbought: 80, EMAPeriod: 2}

	led, err := ledger.New("BTCUSDT", core.ModePaper, 1000, 100)
	require.NoError(t, err)

	store, err := storage.FromMemory()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	notifier := &recordingNotifier{}
	exec := executor.New(sim, core.ModePaper, log)

	options = append([]Option{
		WithStore(store),
		WithNotifier(notifier),
		WithMaxFetchRetries(0),
	}, options...)

	b, err := New(settings, sim, calc, th, led, exec, log, "1h", "1h", options...)
	require.NoError(t, err)

	return &testEnv{bot: b, ledger: led, notifier: notifier, store: store}
}

func TestTick_InsufficientHistoryHolds(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{window(5, 5)}})

	env.bot.tick(context.Background())

	require.False(t, env.ledger.Position().IsLong())
	require.Empty(t, env.notifier.opens)
	require.Empty(t, env.notifier.errs)
}

func TestTick_FlatMarketHoldsIndefinitely(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{flatWindow}})

	for i := 0; i < 5; i++ {
		env.bot.tick(context.Background())
	}

	require.False(t, env.ledger.Position().IsLong())
	require.Equal(t, 1000.0, env.ledger.Cash())
	require.Empty(t, env.notifier.opens)
	require.Empty(t, env.notifier.closes)
}

func TestTick_BuySignalOpensPosition(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow}})

	env.bot.tick(context.Background())

	pos := env.ledger.Position()
	require.True(t, pos.IsLong())
	require.InDelta(t, 9.8, pos.EntryPrice, 1e-9)
	require.InDelta(t, 100.0/9.8, pos.Quantity, 1e-9)
	require.InDelta(t, 900.0, env.ledger.Cash(), 1e-9)
	require.Len(t, env.notifier.opens, 1)
}

func TestTick_DuplicateTickIsIdempotent(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow}})

	env.bot.tick(context.Background())
	env.bot.tick(context.Background())

	require.Len(t, env.notifier.opens, 1)
	require.InDelta(t, 900.0, env.ledger.Cash(), 1e-9)
}

func TestTick_SellClosesWithProfit(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow, rallyWindow}})

	env.bot.tick(context.Background())
	env.bot.tick(context.Background())

	require.False(t, env.ledger.Position().IsLong())
	require.Len(t, env.notifier.closes, 1)

	trade := env.notifier.closes[0]
	require.InDelta(t, 9.8, trade.EntryPrice, 1e-9)
	require.InDelta(t, 10.5, trade.ExitPrice, 1e-9)
	require.Greater(t, trade.ProfitValue, 0.0)
	require.Equal(t, core.ModePaper, trade.Mode)

	// State persisted after the closed trade.
	state, found, err := env.store.LoadState()
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, state.Trades, 1)
}

func TestTick_PriceBelowEMAClosesPosition(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow, slideWindow}})

	env.bot.tick(context.Background())
	env.bot.tick(context.Background())

	require.False(t, env.ledger.Position().IsLong())
	require.Len(t, env.notifier.closes, 1)
	require.Less(t, env.notifier.closes[0].ProfitValue, 0.0)
}

func TestTick_RejectedOrderLeavesLedgerUntouched(t *testing.T) {
	rejecting := &failingExecutor{err: &exchange.OrderError{
		Err: exchange.ErrOrderRejected, Pair: "BTCUSDT", Quantity: 10,
	}}
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow}})
	env.bot.executor = rejecting

	env.bot.tick(context.Background())

	require.Equal(t, 1, rejecting.calls)
	require.False(t, env.ledger.Position().IsLong())
	require.Equal(t, 1000.0, env.ledger.Cash())
	require.Empty(t, env.ledger.State().Trades)
	require.Len(t, env.notifier.errs, 1)
	require.ErrorIs(t, env.notifier.errs[0], exchange.ErrOrderRejected)
}

func TestTick_FetchFailureSkipsTick(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{err: errors.New("exchange unreachable")})

	env.bot.tick(context.Background())

	require.False(t, env.ledger.Position().IsLong())
	require.Equal(t, 1000.0, env.ledger.Cash())
}

func TestRun_CancellationCompletesTick(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The initial tick runs before cancellation is observed; shutdown then
	// persists state and returns cleanly.
	require.NoError(t, env.bot.Run(ctx))
	require.True(t, env.ledger.Position().IsLong())

	state, found, err := env.store.LoadState()
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, state.Position.IsLong())
}

func TestBot_StatusSource(t *testing.T) {
	env := newTestEnv(t, &scriptedFeeder{windows: [][]core.Candle{buyWindow, rallyWindow}})

	require.Equal(t, core.ModePaper, env.bot.Mode())
	require.Empty(t, env.bot.ProfitSummary())

	env.bot.tick(context.Background())
	env.bot.tick(context.Background())

	require.Contains(t, env.bot.ProfitSummary(), "BTCUSDT")
	require.InDelta(t, env.ledger.Cash(), env.bot.Cash(), 1e-9)
}
