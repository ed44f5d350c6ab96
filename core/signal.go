package core

import "time"

// SideType represents the direction of an order (BUY or SELL).
type SideType string

const (
	SideTypeBuy  SideType = "BUY"
	SideTypeSell SideType = "SELL"
)

// Signal is the discrete decision emitted by the strategy for one observation.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// ActionType is the ledger's answer to a signal given the current position.
type ActionType string

const (
	ActionOpenLong  ActionType = "OPEN_LONG"
	ActionCloseLong ActionType = "CLOSE_LONG"
	ActionNoOp      ActionType = "NO_OP"
)

// Action describes the order the execution adapter should place. A NoOp action
// carries no quantity and must never reach a broker.
type Action struct {
	Type     ActionType
	Pair     string
	Quantity float64
	Price    float64
	Time     time.Time
}

// IsNoOp reports whether the action requires no execution.
func (a Action) IsNoOp() bool { return a.Type == ActionNoOp }

// Side maps the action to an order side.
func (a Action) Side() SideType {
	if a.Type == ActionCloseLong {
		return SideTypeSell
	}
	return SideTypeBuy
}
