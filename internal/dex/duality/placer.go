package duality

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/token"
)

// Side is the taker direction against the base token.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType mirrors neutron.dex.LimitOrderType.
type OrderType int32

const (
	OrderTypeGoodTilCancelled  OrderType = 0
	OrderTypeFillOrKill        OrderType = 1
	OrderTypeImmediateOrCancel OrderType = 2
	OrderTypeJustInTime        OrderType = 3
)

// MsgPlaceLimitOrder is a neutron.dex.MsgPlaceLimitOrder.
type MsgPlaceLimitOrder struct {
	Creator          string
	Receiver         string
	TokenIn          string
	TokenOut         string
	TickIndexInToOut int64
	AmountIn         string
	OrderType        OrderType
	MaxAmountOut     string
	LimitSellPrice   string
}

func (m MsgPlaceLimitOrder) TypeURL() string { return "/neutron.dex.MsgPlaceLimitOrder" }

func (m MsgPlaceLimitOrder) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Creator)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.Receiver)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, m.TokenIn)
	b = protowire.AppendTag(b, 4, protowire.BytesType)
	b = protowire.AppendString(b, m.TokenOut)
	if m.TickIndexInToOut != 0 {
		b = protowire.AppendTag(b, 5, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.TickIndexInToOut))
	}
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendString(b, m.AmountIn)
	if m.OrderType != 0 {
		b = protowire.AppendTag(b, 7, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.OrderType))
	}
	if m.MaxAmountOut != "" {
		b = protowire.AppendTag(b, 9, protowire.BytesType)
		b = protowire.AppendString(b, m.MaxAmountOut)
	}
	if m.LimitSellPrice != "" {
		b = protowire.AppendTag(b, 10, protowire.BytesType)
		b = protowire.AppendString(b, m.LimitSellPrice)
	}
	return b
}

// limitPriceDecimals is the dex module's fixed-point precision for
// limit_sell_price.
const limitPriceDecimals = 27

// PlaceLimitOrderParams describes one limit order against a pair.
// AmountIn is the human-readable quote amount to spend for a BUY and
// the base quantity to convert for a SELL; see the placer notes on
// the SELL amount derivation.
type PlaceLimitOrderParams struct {
	Address         string
	Base            token.Token
	Quote           token.Token
	Side            Side
	AmountIn        float64
	LimitPrice      float64
	OrderType       OrderType
	MaxRetries      int
	PriceAdjustment float64
}

// placeState is the bounded placement state machine.
type placeState int

const (
	stateAttempting placeState = iota
	stateRejectedRetryable
	stateRejectedFatal
	stateSucceeded
)

// Placer places limit orders with a bounded price-walk retry: only the
// dex module's unfillable-at-price rejection is retried, BUY walking
// the price up and SELL walking it down by the adjustment factor.
type Placer struct {
	tx            cosmos.Broadcaster
	gasPrice      float64
	gasDenom      string
	gasAdjustment float64
	log           *zap.Logger
}

func NewPlacer(tx cosmos.Broadcaster, gasPrice float64, gasDenom string, gasAdjustment float64, log *zap.Logger) *Placer {
	if gasAdjustment <= 0 {
		gasAdjustment = 1.3
	}
	return &Placer{
		tx:            tx,
		gasPrice:      gasPrice,
		gasDenom:      gasDenom,
		gasAdjustment: gasAdjustment,
		log:           log,
	}
}

// PlaceLimitOrder simulates, signs and broadcasts a limit order,
// retrying at adjusted prices while the chain reports the order
// unfillable. Each retry re-simulates gas at the new price.
func (pl *Placer) PlaceLimitOrder(ctx context.Context, p PlaceLimitOrderParams) (*cosmos.TxResult, error) {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.PriceAdjustment <= 0 {
		p.PriceAdjustment = 1.01
	}
	if p.OrderType == OrderTypeGoodTilCancelled {
		// GOOD_TIL_CANCELLED is the proto zero value; an unset order
		// type must not leave a resting order on the book.
		p.OrderType = OrderTypeImmediateOrCancel
	}

	price := p.LimitPrice
	attempts := 0
	state := stateAttempting
	var lastErr error
	var result *cosmos.TxResult

	for state == stateAttempting {
		attempts++
		res, err := pl.attempt(ctx, p, price)
		if err == nil {
			result = res
			state = stateSucceeded
			break
		}
		lastErr = err
		switch {
		case !IsUnfillable(err):
			state = stateRejectedFatal
		case attempts >= p.MaxRetries:
			state = stateRejectedFatal
			lastErr = &OrderError{Attempts: attempts, LastPrice: price, Err: err}
		default:
			state = stateRejectedRetryable
		}

		if state == stateRejectedRetryable {
			if p.Side == SideBuy {
				price *= p.PriceAdjustment
			} else {
				price /= p.PriceAdjustment
			}
			pl.log.Info("order unfillable, retrying at adjusted price",
				zap.String("side", string(p.Side)),
				zap.Float64("price", price),
				zap.Int("attempt", attempts),
				zap.Int("max_retries", p.MaxRetries),
			)
			state = stateAttempting
		}
	}

	if state != stateSucceeded {
		if _, ok := lastErr.(*OrderError); ok {
			return nil, lastErr
		}
		return nil, fmt.Errorf("place limit order: %w", lastErr)
	}
	pl.log.Info("limit order placed",
		zap.String("side", string(p.Side)),
		zap.Float64("price", price),
		zap.Int("attempts", attempts),
		zap.String("tx_hash", result.TxHash),
	)
	return result, nil
}

func (pl *Placer) attempt(ctx context.Context, p PlaceLimitOrderParams, price float64) (*cosmos.TxResult, error) {
	msg := pl.buildMsg(p, price)
	gas, err := pl.tx.Simulate(ctx, []cosmos.Msg{msg})
	if err != nil {
		return nil, err
	}
	adjusted := uint64(math.Ceil(float64(gas) * pl.gasAdjustment))
	fee := cosmos.Fee{
		Amount:   []cosmos.Coin{{Denom: pl.gasDenom, Amount: pl.feeAmount(adjusted)}},
		GasLimit: adjusted,
	}
	return pl.tx.BroadcastSync(ctx, []cosmos.Msg{msg}, fee)
}

func (pl *Placer) buildMsg(p PlaceLimitOrderParams, price float64) MsgPlaceLimitOrder {
	var tokenIn, tokenOut token.Token
	var amount float64
	if p.Side == SideBuy {
		tokenIn, tokenOut = p.Quote, p.Base
		amount = p.AmountIn
	} else {
		tokenIn, tokenOut = p.Base, p.Quote
		// the sold quantity derives from the order's initial limit
		// price, not the walked one, rounded to whole units
		amount = math.Round(p.AmountIn * p.LimitPrice)
	}
	return MsgPlaceLimitOrder{
		Creator:        p.Address,
		Receiver:       p.Address,
		TokenIn:        tokenIn.Denom,
		TokenOut:       tokenOut.Denom,
		AmountIn:       token.ScaleAmount(amount, tokenIn.Decimals),
		OrderType:      p.OrderType,
		LimitSellPrice: token.ScaleAmount(price, limitPriceDecimals),
	}
}

func (pl *Placer) feeAmount(gas uint64) string {
	return strconv.FormatInt(int64(math.Ceil(float64(gas)*pl.gasPrice)), 10)
}
