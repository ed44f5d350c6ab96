package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/adshao/go-binance/v2/common"
	"github.com/stretchr/testify/require"
)

func TestSplitAssetQuote(t *testing.T) {
	tests := []struct {
		pair  string
		asset string
		quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"SOLBUSD", "SOL", "BUSD"},
		{"btcusdt", "BTC", "USDT"},
		{"UNKNOWN1", "UNKNOWN1", ""},
	}

	for _, tt := range tests {
		asset, quote := SplitAssetQuote(tt.pair)
		require.Equal(t, tt.asset, asset, tt.pair)
		require.Equal(t, tt.quote, quote, tt.pair)
	}
}

func TestOrderError_Unwrap(t *testing.T) {
	err := &OrderError{Err: ErrOrderRejected, Pair: "BTCUSDT", Quantity: 1.5}

	require.ErrorIs(t, err, ErrOrderRejected)
	require.Contains(t, err.Error(), "BTCUSDT")
}

func TestClassifyOrderErr(t *testing.T) {
	err := classifyOrderErr(context.DeadlineExceeded)
	require.ErrorIs(t, err, ErrOrderTimeout)

	err = classifyOrderErr(&common.APIError{Code: -2010, Message: "insufficient balance"})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	err = classifyOrderErr(&common.APIError{Code: -1013, Message: "filter failure"})
	require.ErrorIs(t, err, ErrOrderRejected)

	plain := errors.New("connection reset")
	require.Equal(t, plain, classifyOrderErr(plain))

	wrapped := fmt.Errorf("request: %w", context.DeadlineExceeded)
	require.ErrorIs(t, classifyOrderErr(wrapped), ErrOrderTimeout)
}
