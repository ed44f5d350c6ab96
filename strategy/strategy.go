// Package strategy turns an indicator snapshot into a discrete trading signal.
// The rule set is a pure function: it knows nothing about the current position.
package strategy

import (
	"fmt"

	"github.com/mkaraca/swingbot/core"
)

// Thresholds are the tunable parameters of the RSI+EMA rule set.
type Thresholds struct {
	RSIPeriod  int
	Oversold   float64
	Overbought float64
	EMAPeriod  int
}

func (t Thresholds) Validate() error {
	if t.RSIPeriod <= 1 {
		return fmt.Errorf("rsi_period must be greater than 1, got %d", t.RSIPeriod)
	}
	if t.EMAPeriod <= 0 {
		return fmt.Errorf("ema_period must be positive, got %d", t.EMAPeriod)
	}
	if t.Oversold <= 0 || t.Overbought <= 0 {
		return fmt.Errorf("rsi thresholds must be positive")
	}
	if t.Oversold >= t.Overbought {
		return fmt.Errorf("rsi_oversold (%.1f) must be below rsi_overbought (%.1f)",
			t.Oversold, t.Overbought)
	}
	return nil
}

// Evaluate applies the fixed rule set to one snapshot.
//
// SELL fires when RSI is overbought OR price is below the EMA; BUY fires when
// RSI is oversold AND price is above the EMA. The SELL branch is checked first:
// when both sides could fire, exiting wins (exit bias protects capital).
func Evaluate(snap core.Snapshot, th Thresholds) core.Signal {
	if snap.RSI > th.Overbought || snap.Price < snap.EMA {
		return core.SignalSell
	}
	if snap.RSI < th.Oversold && snap.Price > snap.EMA {
		return core.SignalBuy
	}
	return core.SignalHold
}

// Explain renders the decision inputs for logs and notifications.
func Explain(snap core.Snapshot, th Thresholds, sig core.Signal) string {
	return fmt.Sprintf("signal=%s price=%.4f rsi=%.1f (os=%.0f ob=%.0f) ema=%.4f",
		sig, snap.Price, snap.RSI, th.Oversold, th.Overbought, snap.EMA)
}
