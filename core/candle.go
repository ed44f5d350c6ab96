package core

import "time"

// Candle represents one OHLCV observation for a trading pair. Candles arrive in
// ascending time order; the close price is the observation the strategy acts on.
type Candle struct {
	Pair     string    `json:"pair"`
	Time     time.Time `json:"time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   float64   `json:"volume"`
	Complete bool      `json:"complete"`
}

// IsEmpty checks if the candle contains no significant data.
func (c Candle) IsEmpty() bool {
	return c.Pair == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0
}

// Valid reports whether the candle can be fed to the indicator calculator.
func (c Candle) Valid() bool {
	return !c.Time.IsZero() && c.Close > 0
}
