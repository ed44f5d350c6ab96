package core

import "time"

// Mode distinguishes simulated execution from real capital at risk.
type Mode string

const (
	ModePaper Mode = "paper"
	ModeLive  Mode = "live"
)

// Tag returns the marker carried by every trade log line and notification.
func (m Mode) Tag() string {
	if m == ModeLive {
		return "[LIVE]"
	}
	return "[PAPER]"
}

// PositionSide is FLAT or LONG. The ledger never opens short positions.
type PositionSide string

const (
	PositionFlat PositionSide = "FLAT"
	PositionLong PositionSide = "LONG"
)

// Position is the single active holding tracked by the ledger.
type Position struct {
	Side       PositionSide `json:"side"`
	EntryPrice float64      `json:"entry_price"`
	Quantity   float64      `json:"quantity"`
	OpenedAt   time.Time    `json:"opened_at"`
}

// IsLong reports whether a position is currently open.
func (p Position) IsLong() bool { return p.Side == PositionLong }

// Trade is one closed round trip. Records are append-only and immutable once
// written; they form the audit trail.
type Trade struct {
	ID            string    `json:"id"`
	Pair          string    `json:"pair"`
	OpenTime      time.Time `json:"open_time"`
	CloseTime     time.Time `json:"close_time"`
	EntryPrice    float64   `json:"entry_price"`
	ExitPrice     float64   `json:"exit_price"`
	Quantity      float64   `json:"quantity"`
	Fee           float64   `json:"fee"`
	ProfitValue   float64   `json:"profit_value"`
	ProfitPercent float64   `json:"profit_percent"`
	Mode          Mode      `json:"mode"`
}

// Fill confirms that an order executed, at a given price and quantity.
type Fill struct {
	OrderID  int64     `json:"order_id"`
	Pair     string    `json:"pair"`
	Side     SideType  `json:"side"`
	Price    float64   `json:"price"`
	Quantity float64   `json:"quantity"`
	Fee      float64   `json:"fee"`
	Time     time.Time `json:"time"`
	Partial  bool      `json:"partial"`
}

// LedgerState is the full persistent state of the position ledger. All
// mutation goes through the ledger's transition functions.
type LedgerState struct {
	Cash        float64  `json:"cash"`
	InitialCash float64  `json:"initial_cash"`
	Position    Position `json:"position"`
	Trades      []Trade  `json:"trades"`
}

// Equity values the state at the given price.
func (s LedgerState) Equity(price float64) float64 {
	if s.Position.IsLong() {
		return s.Cash + s.Position.Quantity*price
	}
	return s.Cash
}
