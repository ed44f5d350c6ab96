// Package executor translates ledger actions into broker orders.
package executor

import (
	"context"
	"fmt"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/exchange"
	"github.com/mkaraca/swingbot/logger"
)

// Executor submits one market order per non-NoOp action. It never retries a
// failed submission; a rejected or timed-out order is reported and the tick
// moves on, leaving the next signal evaluation to decide again.
type Executor struct {
	broker core.Broker
	mode   core.Mode
	log    logger.Logger
}

func New(broker core.Broker, mode core.Mode, log logger.Logger) *Executor {
	return &Executor{broker: broker, mode: mode, log: log}
}

// Execute places the market order described by the action and returns the
// fill. Calling it with a NoOp action is a programming error.
func (e *Executor) Execute(ctx context.Context, action core.Action) (core.Fill, error) {
	if action.IsNoOp() {
		return core.Fill{}, fmt.Errorf("cannot execute a no-op action")
	}
	if action.Quantity <= 0 {
		return core.Fill{}, &exchange.OrderError{
			Err:      exchange.ErrInvalidQuantity,
			Pair:     action.Pair,
			Quantity: action.Quantity,
		}
	}

	e.log.Infof("%s submitting %s %s qty=%f ref_price=%f",
		e.mode.Tag(), action.Side(), action.Pair, action.Quantity, action.Price)

	fill, err := e.broker.CreateOrderMarket(ctx, action.Side(), action.Pair, action.Quantity)
	if err != nil {
		return core.Fill{}, err
	}

	if fill.Partial {
		e.log.Warnf("%s partial fill on %s: executed %f of %f",
			e.mode.Tag(), action.Pair, fill.Quantity, action.Quantity)
	}
	return fill, nil
}
