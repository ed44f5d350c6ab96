// Package core holds the domain types and collaborator interfaces shared by
// every component of the bot.
package core

import "context"

// Feeder provides market data for a trading pair.
type Feeder interface {
	LastQuote(ctx context.Context, pair string) (float64, error)
	CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]Candle, error)
}

// Broker places orders and reports fills.
type Broker interface {
	CreateOrderMarket(ctx context.Context, side SideType, pair string, quantity float64) (Fill, error)
}

type Exchange interface {
	Feeder
	Broker
}

// Notifier receives trade and error events. Implementations are fire-and-forget:
// a failed delivery must never surface back into the trading loop.
type Notifier interface {
	Notify(message string)
	OnOpen(pair string, position Position)
	OnClose(pair string, trade Trade)
	OnError(err error)
}

type NotifierWithStart interface {
	Notifier
	Start()
}
