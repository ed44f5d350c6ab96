package core

import "time"

// Snapshot carries the indicator values derived from one closed candle.
// A Snapshot only exists once enough history has accumulated; the calculator
// returns ErrInsufficientHistory instead of a half-filled value.
type Snapshot struct {
	Time  time.Time
	Price float64
	RSI   float64
	EMA   float64
}
