package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/logger"
)

// Sim is the paper trading broker. It passes market data through a real
// feeder and fills every order instantly at the last observed price, with
// optional slippage and fee to keep the simulation honest.
type Sim struct {
	mu         sync.Mutex
	feeder     core.Feeder
	log        logger.Logger
	lastPrices map[string]float64
	orderID    int64
	slippage   float64
	feeRate    float64
}

type SimOption func(*Sim)

// WithSlippage worsens simulated fill prices by the given fraction, e.g.
// 0.0005 for five basis points.
func WithSlippage(fraction float64) SimOption {
	return func(s *Sim) {
		s.slippage = fraction
	}
}

// WithFee charges the given fraction of each fill's notional as commission.
func WithFee(rate float64) SimOption {
	return func(s *Sim) {
		s.feeRate = rate
	}
}

func NewSim(feeder core.Feeder, log logger.Logger, options ...SimOption) *Sim {
	sim := &Sim{
		feeder:     feeder,
		log:        log,
		lastPrices: make(map[string]float64),
	}
	for _, option := range options {
		option(sim)
	}
	return sim
}

func (s *Sim) LastQuote(ctx context.Context, pair string) (float64, error) {
	price, err := s.feeder.LastQuote(ctx, pair)
	if err != nil {
		return 0, err
	}
	s.observe(pair, price)
	return price, nil
}

func (s *Sim) CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]core.Candle, error) {
	candles, err := s.feeder.CandlesByLimit(ctx, pair, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if len(candles) > 0 {
		s.observe(pair, candles[len(candles)-1].Close)
	}
	return candles, nil
}

// CreateOrderMarket fills the order against the last observed price. It fails
// only when no price has been seen yet for the pair.
func (s *Sim) CreateOrderMarket(_ context.Context, side core.SideType, pair string, quantity float64) (core.Fill, error) {
	if quantity <= 0 {
		return core.Fill{}, &OrderError{Err: ErrInvalidQuantity, Pair: pair, Quantity: quantity}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.lastPrices[pair]
	if !ok {
		return core.Fill{}, &OrderError{
			Err:      fmt.Errorf("no price observed yet for %s", pair),
			Pair:     pair,
			Quantity: quantity,
		}
	}

	if side == core.SideTypeBuy {
		price *= 1 + s.slippage
	} else {
		price *= 1 - s.slippage
	}

	s.orderID++
	fill := core.Fill{
		OrderID:  s.orderID,
		Pair:     pair,
		Side:     side,
		Price:    price,
		Quantity: quantity,
		Fee:      price * quantity * s.feeRate,
		Time:     time.Now(),
	}

	s.log.Debugf("simulated fill: %s %s qty=%f price=%f", side, pair, quantity, price)
	return fill, nil
}

func (s *Sim) observe(pair string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if price > 0 {
		s.lastPrices[pair] = price
	}
}
