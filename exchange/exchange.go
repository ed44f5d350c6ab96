// Package exchange provides market access for the bot: a live Binance spot
// adapter and an in-process simulator for paper trading. Both satisfy
// core.Exchange.
package exchange

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInsufficientFunds = errors.New("insufficient funds or locked")
	ErrOrderRejected     = errors.New("order rejected by exchange")
	ErrOrderTimeout      = errors.New("order submission timed out")
)

// OrderError wraps an order failure with the context needed for a useful
// notification.
type OrderError struct {
	Err      error
	Pair     string
	Quantity float64
}

func (o *OrderError) Error() string {
	return fmt.Sprintf("order error on %s (qty %f): %v", o.Pair, o.Quantity, o.Err)
}

func (o *OrderError) Unwrap() error {
	return o.Err
}

// quoteCurrencies ordered longest first so that e.g. IDRT wins over IDR.
var quoteCurrencies = []string{
	"USDT", "BUSD", "USDC", "TUSD", "FDUSD", "BIDR", "IDRT",
	"BRL", "EUR", "GBP", "TRY", "BTC", "ETH", "BNB", "DAI",
}

// SplitAssetQuote splits a concatenated pair symbol such as BTCUSDT into its
// base asset and quote currency. Unknown quotes return the pair unchanged with
// an empty quote.
func SplitAssetQuote(pair string) (asset, quote string) {
	pair = strings.ToUpper(pair)
	for _, q := range quoteCurrencies {
		if strings.HasSuffix(pair, q) && len(pair) > len(q) {
			return strings.TrimSuffix(pair, q), q
		}
	}
	return pair, ""
}
