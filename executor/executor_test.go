package executor

import (
	"context"
	"testing"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	zerologger "github.com/mkaraca/swingbot/logger/zerolog"
	"github.com/stretchr/testify/require"
)

type stubBroker struct {
	fill  core.Fill
	err   error
	calls int

	lastSide core.SideType
	lastQty  float64
}

func (b *stubBroker) CreateOrderMarket(_ context.Context, side core.SideType, _ string, quantity float64) (core.Fill, error) {
	b.calls++
	b.lastSide = side
	b.lastQty = quantity
	if b.err != nil {
		return core.Fill{}, b.err
	}
	return b.fill, nil
}

func testLogger(t *testing.T) *zerologger.Adapter {
	t.Helper()
	log, err := zerologger.New("disabled", false)
	require.NoError(t, err)
	return log
}

func testAction() core.Action {
	return core.Action{
		Type:     core.ActionOpenLong,
		Pair:     "BTCUSDT",
		Quantity: 2,
		Price:    100,
		Time:     time.Now(),
	}
}

func TestExecute_SubmitsMarketOrder(t *testing.T) {
	broker := &stubBroker{fill: core.Fill{Pair: "BTCUSDT", Price: 100, Quantity: 2}}
	exec := New(broker, core.ModePaper, testLogger(t))

	fill, err := exec.Execute(context.Background(), testAction())
	require.NoError(t, err)
	require.Equal(t, 1, broker.calls)
	require.Equal(t, core.SideTypeBuy, broker.lastSide)
	require.Equal(t, 2.0, broker.lastQty)
	require.Equal(t, 100.0, fill.Price)
}

func TestExecute_CloseActionSells(t *testing.T) {
	broker := &stubBroker{fill: core.Fill{Pair: "BTCUSDT", Price: 100, Quantity: 2}}
	exec := New(broker, core.ModePaper, testLogger(t))

	action := testAction()
	action.Type = core.ActionCloseLong
	_, err := exec.Execute(context.Background(), action)
	require.NoError(t, err)
	require.Equal(t, core.SideTypeSell, broker.lastSide)
}

func TestExecute_RejectsNoOp(t *testing.T) {
	broker := &stubBroker{}
	exec := New(broker, core.ModePaper, testLogger(t))

	action := testAction()
	action.Type = core.ActionNoOp
	_, err := exec.Execute(context.Background(), action)
	require.Error(t, err)
	require.Zero(t, broker.calls)
}

func TestExecute_RejectsZeroQuantity(t *testing.T) {
	broker := &stubBroker{}
	exec := New(broker, core.ModePaper, testLogger(t))

	action := testAction()
	action.Quantity = 0
	_, err := exec.Execute(context.Background(), action)
	require.ErrorIs(t, err, exchange.ErrInvalidQuantity)
	require.Zero(t, broker.calls)
}

// A broker failure surfaces unchanged; the executor never retries.
func TestExecute_BrokerFailureNotRetried(t *testing.T) {
	broker := &stubBroker{err: &exchange.OrderError{
		Err: exchange.ErrOrderRejected, Pair: "BTCUSDT", Quantity: 2,
	}}
	exec := New(broker, core.ModeLive, testLogger(t))

	_, err := exec.Execute(context.Background(), testAction())
	require.ErrorIs(t, err, exchange.ErrOrderRejected)
	require.Equal(t, 1, broker.calls)
}
