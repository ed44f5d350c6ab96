package indicator

import (
	"testing"
	"time"

	"github.com/mkaraca/swingbot/core"
	"github.com/stretchr/testify/require"
)

func candlesFromCloses(closes ...float64) []core.Candle {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]core.Candle, len(closes))
	for i, c := range closes {
		candles[i] = core.Candle{
			Pair:     "BTCUSDT",
			Time:     base.Add(time.Duration(i) * time.Hour),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Complete: true,
		}
	}
	return candles
}

func TestNewCalculator_InvalidPeriods(t *testing.T) {
	_, err := NewCalculator(1, 10)
	require.Error(t, err)

	_, err = NewCalculator(14, 0)
	require.Error(t, err)
}

func TestCalculator_Warmup(t *testing.T) {
	calc, err := NewCalculator(14, 50)
	require.NoError(t, err)
	require.Equal(t, 50, calc.Warmup())

	calc, err = NewCalculator(14, 10)
	require.NoError(t, err)
	require.Equal(t, 15, calc.Warmup())
}

func TestSnapshot_InsufficientHistory(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	_, err = calc.Snapshot(candlesFromCloses(10, 11))
	require.ErrorIs(t, err, core.ErrInsufficientHistory)
}

func TestSnapshot_MalformedCandle(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	candles := candlesFromCloses(10, 11, 12)
	candles[1].Close = 0

	_, err = calc.Snapshot(candles)
	require.ErrorIs(t, err, core.ErrMalformedCandle)
}

func TestSnapshot_AllGainsMaxRSI(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	snap, err := calc.Snapshot(candlesFromCloses(1, 2, 3, 4))
	require.NoError(t, err)
	require.InDelta(t, 100.0, snap.RSI, 1e-9)
	require.Equal(t, 4.0, snap.Price)
}

func TestSnapshot_AllLossesMinRSI(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	snap, err := calc.Snapshot(candlesFromCloses(4, 3, 2, 1))
	require.NoError(t, err)
	require.InDelta(t, 0.0, snap.RSI, 1e-9)
}

func TestSnapshot_EMASeededFromSMA(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	// EMA(2): seed = SMA(2,4) = 3, then 3 + (6-3)*2/3 = 5.
	snap, err := calc.Snapshot(candlesFromCloses(2, 4, 6))
	require.NoError(t, err)
	require.InDelta(t, 5.0, snap.EMA, 1e-9)
}

func TestSnapshot_ReportsLastCandle(t *testing.T) {
	calc, err := NewCalculator(2, 2)
	require.NoError(t, err)

	candles := candlesFromCloses(10, 11, 12, 13)
	snap, err := calc.Snapshot(candles)
	require.NoError(t, err)
	require.Equal(t, candles[len(candles)-1].Time, snap.Time)
	require.Equal(t, 13.0, snap.Price)
}
