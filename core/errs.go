package core

import "errors"

var (
	// ErrInsufficientHistory is returned while the indicator window is still
	// warming up. Callers treat it as HOLD, never as a guessed value.
	ErrInsufficientHistory = errors.New("insufficient price history")

	// ErrMalformedCandle marks a candle that cannot be trusted as input.
	ErrMalformedCandle = errors.New("malformed candle")

	// ErrStateCorrupted means the persisted ledger could not be decoded. The
	// process must refuse to trade with unknown position state.
	ErrStateCorrupted = errors.New("persisted ledger state is corrupted")
)
