// Package execution turns detected opportunities into venue orders,
// dispatching both legs in parallel.
package execution

import (
	"context"
	"math"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/connectors/cex/binance"
	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	imetrics "github.com/ziptalk/proton-arb/internal/metrics"
	"github.com/ziptalk/proton-arb/internal/token"
	"github.com/ziptalk/proton-arb/internal/types"
)

type cexIface interface {
	PlaceMarket(ctx context.Context, symbol, side string, qty float64) (*binance.Order, error)
}

type dexIface interface {
	PlaceLimitOrder(ctx context.Context, p duality.PlaceLimitOrderParams) (*cosmos.TxResult, error)
}

type ammIface interface {
	Swap(ctx context.Context, offer token.Token, amount float64, fee cosmos.Fee) (string, error)
}

type Risk interface {
	AllowTrade(spread float64) bool
}

type Executor struct {
	cfg     *config.Config
	base    token.Token
	quote   token.Token
	address string
	cex     cexIface
	dex     dexIface
	amm     ammIface
	risk    Risk
	log     *zap.Logger
}

func NewExecutor(cfg *config.Config, base, quote token.Token, address string, cex cexIface, dex dexIface, amm ammIface, risk Risk, log *zap.Logger) *Executor {
	return &Executor{
		cfg:     cfg,
		base:    base,
		quote:   quote,
		address: address,
		cex:     cex,
		dex:     dex,
		amm:     amm,
		risk:    risk,
		log:     log,
	}
}

func (e *Executor) Run(ctx context.Context, in <-chan types.Opportunity) {
	for {
		select {
		case <-ctx.Done():
			return
		case opp := <-in:
			if !e.risk.AllowTrade(opp.Spread) {
				continue
			}
			if e.cfg.DryRun {
				e.log.Info("dry run: skipping execution",
					zap.String("direction", string(opp.Direction)),
					zap.Float64("spread", opp.Spread),
				)
				continue
			}
			e.execute(ctx, opp)
		}
	}
}

// execute dispatches both legs concurrently and joins them. A failed
// leg leaves an open position; it is logged loudly, never rolled back.
func (e *Executor) execute(ctx context.Context, opp types.Opportunity) {
	imetrics.TradesExecuted.Inc()

	legs := e.legsFor(ctx, opp)
	if legs == nil {
		return
	}

	var wg sync.WaitGroup
	errs := make([]error, len(legs))
	for i, leg := range legs {
		wg.Add(1)
		go func(i int, leg func() error) {
			defer wg.Done()
			errs[i] = leg()
		}(i, leg)
	}
	wg.Wait()

	var failed int
	for _, err := range errs {
		if err != nil {
			failed++
			imetrics.TradeErrors.Inc()
			e.log.Error("trade leg failed", zap.String("direction", string(opp.Direction)), zap.Error(err))
		}
	}
	if failed > 0 && failed < len(legs) {
		e.log.Error("partial execution: one leg filled without its hedge",
			zap.String("direction", string(opp.Direction)),
			zap.Float64("qty", opp.QtyBase),
		)
		return
	}
	if failed == 0 {
		e.log.Info("executed",
			zap.String("direction", string(opp.Direction)),
			zap.Float64("qty", opp.QtyBase),
			zap.Float64("spread", opp.Spread),
		)
	}
}

func (e *Executor) legsFor(ctx context.Context, opp types.Opportunity) []func() error {
	switch opp.Direction {
	case types.BuyDexSellCex:
		return []func() error{
			func() error { return e.dexLeg(ctx, duality.SideBuy, opp.QtyBase*opp.BuyPx, opp.BuyPx) },
			func() error { return e.cexLeg(ctx, "SELL", opp.QtyBase) },
		}
	case types.BuyCexSellDex:
		return []func() error{
			func() error { return e.cexLeg(ctx, "BUY", opp.QtyBase) },
			func() error { return e.dexLeg(ctx, duality.SideSell, opp.QtyBase, opp.SellPx) },
		}
	case types.BuyDexSellAmm:
		return []func() error{
			func() error {
				return e.dexLeg(ctx, duality.SideBuy, opp.QtyBase*opp.BuyPx*e.cfg.Trade.DualityAmountFactor, opp.BuyPx)
			},
			func() error { return e.ammLeg(ctx, e.base, opp.QtyBase) },
		}
	case types.BuyAmmSellDex:
		return []func() error{
			func() error { return e.ammLeg(ctx, e.quote, opp.QtyBase*opp.BuyPx) },
			func() error {
				return e.dexLeg(ctx, duality.SideSell, opp.QtyBase*e.cfg.Trade.DualityAmountFactor, opp.SellPx)
			},
		}
	default:
		e.log.Error("unknown opportunity direction", zap.String("direction", string(opp.Direction)))
		return nil
	}
}

func (e *Executor) cexLeg(ctx context.Context, side string, qty float64) error {
	_, err := e.cex.PlaceMarket(ctx, e.cfg.Pair, side, qty)
	return err
}

func (e *Executor) dexLeg(ctx context.Context, side duality.Side, amount, price float64) error {
	_, err := e.dex.PlaceLimitOrder(ctx, duality.PlaceLimitOrderParams{
		Address:         e.address,
		Base:            e.base,
		Quote:           e.quote,
		Side:            side,
		AmountIn:        amount,
		LimitPrice:      price,
		OrderType:       duality.OrderTypeImmediateOrCancel,
		MaxRetries:      e.cfg.Duality.MaxRetries,
		PriceAdjustment: e.cfg.Duality.PriceAdjustment,
	})
	return err
}

func (e *Executor) ammLeg(ctx context.Context, offer token.Token, amount float64) error {
	_, err := e.amm.Swap(ctx, offer, amount, e.swapFee())
	return err
}

// swapFee is a fixed-gas fee for wasm swaps; limit orders are priced
// through simulation, execute-contract swaps use a flat limit.
func (e *Executor) swapFee() cosmos.Fee {
	const gas = 400000
	amount := strconv.FormatInt(int64(math.Ceil(gas*e.cfg.Chain.GasPrice)), 10)
	return cosmos.Fee{
		Amount:   []cosmos.Coin{{Denom: e.cfg.Chain.GasDenom, Amount: amount}},
		GasLimit: gas,
	}
}
