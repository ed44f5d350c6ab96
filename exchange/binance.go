package exchange

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/mkaraca/swingbot/core"
	"github.com/mkaraca/swingbot/logger"
)

// assetInfo carries the order size constraints published by the exchange for
// one symbol.
type assetInfo struct {
	baseAssetPrecision int
	minQuantity        float64
	maxQuantity        float64
	stepSize           float64
}

// Binance is the live spot market client. It implements core.Exchange.
type Binance struct {
	client     *binance.Client
	assetsInfo map[string]assetInfo
	log        logger.Logger
}

type BinanceOption func(*Binance)

// WithCredentials sets the API key pair used for order placement. Market data
// endpoints work without credentials.
func WithCredentials(key, secret string) BinanceOption {
	return func(b *Binance) {
		b.client = binance.NewClient(key, secret)
	}
}

// WithTestNet routes all requests to the Binance spot testnet.
func WithTestNet() BinanceOption {
	return func(_ *Binance) {
		binance.UseTestnet = true
	}
}

// NewBinance connects to Binance, verifies reachability with a ping and loads
// the symbol filters needed to format order quantities.
func NewBinance(ctx context.Context, log logger.Logger, options ...BinanceOption) (*Binance, error) {
	b := &Binance{
		client:     binance.NewClient("", ""),
		assetsInfo: make(map[string]assetInfo),
		log:        log,
	}
	for _, option := range options {
		option(b)
	}

	if err := b.client.NewPingService().Do(ctx); err != nil {
		return nil, fmt.Errorf("binance ping fail: %w", err)
	}

	exchangeInfo, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info: %w", err)
	}

	for _, info := range exchangeInfo.Symbols {
		ai := assetInfo{baseAssetPrecision: info.BaseAssetPrecision}
		for _, filter := range info.Filters {
			if typ, ok := filter["filterType"]; ok && typ == string(binance.SymbolFilterTypeLotSize) {
				ai.minQuantity, _ = strconv.ParseFloat(filter["minQty"].(string), 64)
				ai.maxQuantity, _ = strconv.ParseFloat(filter["maxQty"].(string), 64)
				ai.stepSize, _ = strconv.ParseFloat(filter["stepSize"].(string), 64)
			}
		}
		b.assetsInfo[info.Symbol] = ai
	}

	log.Info("connected to binance spot")
	return b, nil
}

// LastQuote returns the close of the most recent 1m candle.
func (b *Binance) LastQuote(ctx context.Context, pair string) (float64, error) {
	candles, err := b.candles(ctx, pair, "1m", 1, false)
	if err != nil {
		return 0, err
	}
	if len(candles) < 1 {
		return 0, fmt.Errorf("no quote available for %s", pair)
	}
	return candles[len(candles)-1].Close, nil
}

// CandlesByLimit fetches the trailing window of closed candles. The last kline
// returned by the API is still forming and is dropped.
func (b *Binance) CandlesByLimit(ctx context.Context, pair, timeframe string, limit int) ([]core.Candle, error) {
	return b.candles(ctx, pair, timeframe, limit, true)
}

func (b *Binance) candles(ctx context.Context, pair, timeframe string, limit int, dropLast bool) ([]core.Candle, error) {
	data, err := b.client.NewKlinesService().
		Symbol(pair).
		Interval(timeframe).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, err
	}

	candles := make([]core.Candle, 0, len(data))
	for i, d := range data {
		if dropLast && i == len(data)-1 {
			break
		}
		candles = append(candles, convertKlineToCandle(pair, *d))
	}
	return candles, nil
}

// CreateOrderMarket submits a market order and returns the resulting fill.
// Rejections and timeouts are classified so the caller can decide whether to
// alert; orders are never resubmitted here.
func (b *Binance) CreateOrderMarket(ctx context.Context, side core.SideType, pair string, quantity float64) (core.Fill, error) {
	if err := b.validate(pair, quantity); err != nil {
		return core.Fill{}, &OrderError{Err: err, Pair: pair, Quantity: quantity}
	}

	order, err := b.client.NewCreateOrderService().
		Symbol(pair).
		Type(binance.OrderTypeMarket).
		Side(binance.SideType(side)).
		Quantity(b.formatQuantity(pair, quantity)).
		NewOrderRespType(binance.NewOrderRespTypeFULL).
		Do(ctx)
	if err != nil {
		return core.Fill{}, &OrderError{Err: classifyOrderErr(err), Pair: pair, Quantity: quantity}
	}

	executed, err := strconv.ParseFloat(order.ExecutedQuantity, 64)
	if err != nil || executed <= 0 {
		return core.Fill{}, &OrderError{Err: ErrOrderRejected, Pair: pair, Quantity: quantity}
	}
	cost, err := strconv.ParseFloat(order.CummulativeQuoteQuantity, 64)
	if err != nil {
		return core.Fill{}, &OrderError{Err: err, Pair: pair, Quantity: quantity}
	}

	var fee float64
	for _, f := range order.Fills {
		commission, _ := strconv.ParseFloat(f.Commission, 64)
		fee += commission
	}

	return core.Fill{
		OrderID:  order.OrderID,
		Pair:     order.Symbol,
		Side:     side,
		Price:    cost / executed,
		Quantity: executed,
		Fee:      fee,
		Time:     time.Unix(0, order.TransactTime*int64(time.Millisecond)),
		Partial:  order.Status == binance.OrderStatusTypePartiallyFilled,
	}, nil
}

func classifyOrderErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrOrderTimeout, err)
	}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		// -2010 covers insufficient balance and most filter violations.
		if apiErr.Code == -2010 {
			return fmt.Errorf("%w: %s", ErrInsufficientFunds, apiErr.Message)
		}
		return fmt.Errorf("%w: code=%d %s", ErrOrderRejected, apiErr.Code, apiErr.Message)
	}
	return err
}

func (b *Binance) validate(pair string, quantity float64) error {
	info, ok := b.assetsInfo[pair]
	if !ok {
		return fmt.Errorf("%w: unknown pair %s", ErrInvalidQuantity, pair)
	}
	if quantity < info.minQuantity || (info.maxQuantity > 0 && quantity > info.maxQuantity) {
		return fmt.Errorf("%w: %f is outside [%f, %f]",
			ErrInvalidQuantity, quantity, info.minQuantity, info.maxQuantity)
	}
	return nil
}

// formatQuantity rounds the quantity down to the symbol's lot step so that the
// exchange never rejects on LOT_SIZE.
func (b *Binance) formatQuantity(pair string, value float64) string {
	precision := 8
	if info, ok := b.assetsInfo[pair]; ok {
		if info.stepSize > 0 {
			value = math.Floor(value/info.stepSize) * info.stepSize
		}
		precision = info.baseAssetPrecision
	}
	return strconv.FormatFloat(value, 'f', precision, 64)
}

func convertKlineToCandle(pair string, k binance.Kline) core.Candle {
	candle := core.Candle{
		Pair:     pair,
		Time:     time.Unix(0, k.OpenTime*int64(time.Millisecond)),
		Complete: true,
	}

	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)

	return candle
}
