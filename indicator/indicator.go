// Package indicator derives RSI and EMA values from a candle history window.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/mkaraca/swingbot/core"
)

// Calculator computes one snapshot per closed candle. It holds no state beyond
// its parameters; the caller supplies the trailing window on every call.
type Calculator struct {
	RSIPeriod int
	EMAPeriod int
}

func NewCalculator(rsiPeriod, emaPeriod int) (*Calculator, error) {
	if rsiPeriod <= 1 {
		return nil, fmt.Errorf("rsi period must be greater than 1, got %d", rsiPeriod)
	}
	if emaPeriod <= 0 {
		return nil, fmt.Errorf("ema period must be positive, got %d", emaPeriod)
	}
	return &Calculator{RSIPeriod: rsiPeriod, EMAPeriod: emaPeriod}, nil
}

// Warmup returns the number of candles required before Snapshot can produce a
// value. RSI needs period+1 closes to form its first delta window.
func (c *Calculator) Warmup() int {
	return max(c.RSIPeriod+1, c.EMAPeriod)
}

// Snapshot derives the indicator values for the most recent candle. It returns
// core.ErrInsufficientHistory while the window is still warming up and
// core.ErrMalformedCandle when the input cannot be trusted.
func (c *Calculator) Snapshot(candles []core.Candle) (core.Snapshot, error) {
	if len(candles) < c.Warmup() {
		return core.Snapshot{}, fmt.Errorf("%w: have %d candles, need %d",
			core.ErrInsufficientHistory, len(candles), c.Warmup())
	}

	closes := make([]float64, len(candles))
	for i, candle := range candles {
		if !candle.Valid() {
			return core.Snapshot{}, fmt.Errorf("%w: candle %d (%s)",
				core.ErrMalformedCandle, i, candle.Time)
		}
		closes[i] = candle.Close
	}

	rsi := talib.Rsi(closes, c.RSIPeriod)
	ema := talib.Ema(closes, c.EMAPeriod)

	last := candles[len(candles)-1]
	snapshot := core.Snapshot{
		Time:  last.Time,
		Price: last.Close,
		RSI:   rsi[len(rsi)-1],
		EMA:   ema[len(ema)-1],
	}

	if math.IsNaN(snapshot.RSI) || math.IsNaN(snapshot.EMA) {
		return core.Snapshot{}, fmt.Errorf("%w: indicator produced NaN", core.ErrMalformedCandle)
	}
	return snapshot, nil
}
