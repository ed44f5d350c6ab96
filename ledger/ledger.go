// Package ledger owns position and balance state. Every mutation goes through
// Propose and ApplyFill; no other component writes ledger state directly.
package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/oklog/ulid/v2"
)

// Ledger tracks the current holding, the cash balance and the closed trade
// history for a single trading pair. It is the single source of truth for
// "am I currently in a position".
type Ledger struct {
	mu          sync.Mutex
	pair        string
	mode        core.Mode
	tradeAmount float64
	state       core.LedgerState
}

func New(pair string, mode core.Mode, startingBalance, tradeAmount float64) (*Ledger, error) {
	if startingBalance <= 0 {
		return nil, fmt.Errorf("starting balance must be positive, got %f", startingBalance)
	}
	if tradeAmount <= 0 {
		return nil, fmt.Errorf("trade amount must be positive, got %f", tradeAmount)
	}

	return &Ledger{
		pair:        pair,
		mode:        mode,
		tradeAmount: tradeAmount,
		state: core.LedgerState{
			Cash:        startingBalance,
			InitialCash: startingBalance,
			Position:    core.Position{Side: core.PositionFlat},
		},
	}, nil
}

// Restore replaces the ledger state with a previously persisted one. Used at
// startup only, before the scheduling loop begins.
func (l *Ledger) Restore(state core.LedgerState) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if state.Position.Side == "" {
		state.Position.Side = core.PositionFlat
	}
	l.state = state
}

// Propose decides what order, if any, follows from a signal given the current
// position. The decision table is fixed:
//
//	BUY  while FLAT -> OpenLong (quantity from configured trade amount)
//	SELL while LONG -> CloseLong (full exit)
//	anything else   -> NoOp (no pyramiding, no shorting)
//
// An OpenLong is refused when the cash balance cannot cover the trade amount;
// the balance never goes negative through a ledger-initiated action.
func (l *Ledger) Propose(sig core.Signal, price float64, t time.Time) core.Action {
	l.mu.Lock()
	defer l.mu.Unlock()

	noop := core.Action{Type: core.ActionNoOp, Pair: l.pair, Price: price, Time: t}
	if price <= 0 {
		return noop
	}

	switch sig {
	case core.SignalBuy:
		if l.state.Position.IsLong() {
			return noop
		}
		if l.state.Cash < l.tradeAmount {
			return noop
		}
		return core.Action{
			Type:     core.ActionOpenLong,
			Pair:     l.pair,
			Quantity: l.tradeAmount / price,
			Price:    price,
			Time:     t,
		}

	case core.SignalSell:
		if !l.state.Position.IsLong() {
			return noop
		}
		return core.Action{
			Type:     core.ActionCloseLong,
			Pair:     l.pair,
			Quantity: l.state.Position.Quantity,
			Price:    price,
			Time:     t,
		}
	}

	return noop
}

// ApplyFill records a confirmed fill. An OpenLong fill creates the position
// and debits cash; a CloseLong fill books realized P&L, appends a trade record
// and credits cash. The returned trade is non-nil only when a round trip
// closed (fully or partially).
func (l *Ledger) ApplyFill(action core.Action, fill core.Fill) (*core.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if fill.Quantity <= 0 || fill.Price <= 0 {
		return nil, fmt.Errorf("invalid fill: quantity=%f price=%f", fill.Quantity, fill.Price)
	}

	switch action.Type {
	case core.ActionOpenLong:
		return nil, l.applyOpen(fill)
	case core.ActionCloseLong:
		return l.applyClose(fill)
	default:
		return nil, fmt.Errorf("cannot apply fill for action %s", action.Type)
	}
}

func (l *Ledger) applyOpen(fill core.Fill) error {
	if l.state.Position.IsLong() {
		return fmt.Errorf("position already open for %s", l.pair)
	}

	cost := fill.Price*fill.Quantity + fill.Fee
	if cost > l.state.Cash {
		return fmt.Errorf("fill cost %.4f exceeds cash balance %.4f", cost, l.state.Cash)
	}

	l.state.Cash -= cost
	l.state.Position = core.Position{
		Side:       core.PositionLong,
		EntryPrice: fill.Price,
		Quantity:   fill.Quantity,
		OpenedAt:   fill.Time,
	}
	return nil
}

func (l *Ledger) applyClose(fill core.Fill) (*core.Trade, error) {
	pos := l.state.Position
	if !pos.IsLong() {
		return nil, fmt.Errorf("no open position for %s", l.pair)
	}

	// A partial live fill closes only the executed quantity; the remainder
	// stays on the books for the next tick.
	quantity := min(fill.Quantity, pos.Quantity)
	proceeds := quantity*fill.Price - fill.Fee
	profit := quantity*(fill.Price-pos.EntryPrice) - fill.Fee

	trade := core.Trade{
		ID:            ulid.Make().String(),
		Pair:          l.pair,
		OpenTime:      pos.OpenedAt,
		CloseTime:     fill.Time,
		EntryPrice:    pos.EntryPrice,
		ExitPrice:     fill.Price,
		Quantity:      quantity,
		Fee:           fill.Fee,
		ProfitValue:   profit,
		ProfitPercent: (fill.Price - pos.EntryPrice) / pos.EntryPrice,
		Mode:          l.mode,
	}

	l.state.Cash += proceeds
	if quantity >= pos.Quantity {
		l.state.Position = core.Position{Side: core.PositionFlat}
	} else {
		l.state.Position.Quantity -= quantity
	}
	l.state.Trades = append(l.state.Trades, trade)

	return &trade, nil
}

// Position returns a copy of the active position.
func (l *Ledger) Position() core.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Position
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Cash
}

// State returns a deep copy of the ledger state for persistence or reporting.
func (l *Ledger) State() core.LedgerState {
	l.mu.Lock()
	defer l.mu.Unlock()

	state := l.state
	state.Trades = make([]core.Trade, len(l.state.Trades))
	copy(state.Trades, l.state.Trades)
	return state
}
