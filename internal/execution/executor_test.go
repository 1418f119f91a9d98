package execution

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/connectors/cex/binance"
	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	"github.com/ziptalk/proton-arb/internal/token"
	"github.com/ziptalk/proton-arb/internal/types"
)

type cexCall struct {
	side string
	qty  float64
}

type mockCexPlacer struct {
	mu    sync.Mutex
	calls []cexCall
	err   error
}

func (m *mockCexPlacer) PlaceMarket(ctx context.Context, symbol, side string, qty float64) (*binance.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, cexCall{side: side, qty: qty})
	if m.err != nil {
		return nil, m.err
	}
	return &binance.Order{OrderID: 1, Status: "FILLED", Side: side}, nil
}

type mockDexPlacer struct {
	mu    sync.Mutex
	calls []duality.PlaceLimitOrderParams
	err   error
}

func (m *mockDexPlacer) PlaceLimitOrder(ctx context.Context, p duality.PlaceLimitOrderParams) (*cosmos.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, p)
	if m.err != nil {
		return nil, m.err
	}
	return &cosmos.TxResult{TxHash: "HASH"}, nil
}

type ammCall struct {
	offer  token.Symbol
	amount float64
}

type mockAmm struct {
	mu    sync.Mutex
	calls []ammCall
}

func (m *mockAmm) Swap(ctx context.Context, offer token.Token, amount float64, fee cosmos.Fee) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, ammCall{offer: offer.Symbol, amount: amount})
	return "SWAPHASH", nil
}

type allowAll struct{}

func (allowAll) AllowTrade(float64) bool { return true }

func execCfg() *config.Config {
	cfg := &config.Config{Pair: "NTRNUSDT"}
	cfg.Duality.MaxRetries = 3
	cfg.Duality.PriceAdjustment = 1.01
	cfg.Trade.DualityAmountFactor = 0.195604
	cfg.Chain.GasPrice = 0.025
	cfg.Chain.GasDenom = "untrn"
	return cfg
}

func newTestExecutor(cfg *config.Config, cex *mockCexPlacer, dex *mockDexPlacer, amm *mockAmm) *Executor {
	return NewExecutor(cfg, token.MustBySymbol(token.NTRN), token.MustBySymbol(token.USDC),
		"neutron1trader", cex, dex, amm, allowAll{}, zap.NewNop())
}

func TestExecuteBuyDexSellCex(t *testing.T) {
	cex, dex := &mockCexPlacer{}, &mockDexPlacer{}
	e := newTestExecutor(execCfg(), cex, dex, nil)

	e.execute(context.Background(), types.Opportunity{
		Direction: types.BuyDexSellCex,
		QtyBase:   10,
		BuyPx:     0.45,
		SellPx:    0.47,
		Spread:    0.02,
	})

	require.Len(t, cex.calls, 1)
	assert.Equal(t, "SELL", cex.calls[0].side)
	assert.Equal(t, 10.0, cex.calls[0].qty)

	require.Len(t, dex.calls, 1)
	assert.Equal(t, duality.SideBuy, dex.calls[0].Side)
	assert.InDelta(t, 4.5, dex.calls[0].AmountIn, 1e-12, "buy spends quote")
	assert.Equal(t, 0.45, dex.calls[0].LimitPrice)
	assert.Equal(t, duality.OrderTypeImmediateOrCancel, dex.calls[0].OrderType)
}

func TestExecuteBuyCexSellDex(t *testing.T) {
	cex, dex := &mockCexPlacer{}, &mockDexPlacer{}
	e := newTestExecutor(execCfg(), cex, dex, nil)

	e.execute(context.Background(), types.Opportunity{
		Direction: types.BuyCexSellDex,
		QtyBase:   10,
		BuyPx:     0.45,
		SellPx:    0.47,
	})

	require.Len(t, cex.calls, 1)
	assert.Equal(t, "BUY", cex.calls[0].side)
	require.Len(t, dex.calls, 1)
	assert.Equal(t, duality.SideSell, dex.calls[0].Side)
	assert.Equal(t, 10.0, dex.calls[0].AmountIn)
	assert.Equal(t, 0.47, dex.calls[0].LimitPrice)
}

func TestExecuteAstroportLegs(t *testing.T) {
	dex, amm := &mockDexPlacer{}, &mockAmm{}
	cfg := execCfg()
	e := newTestExecutor(cfg, nil, dex, amm)

	e.execute(context.Background(), types.Opportunity{
		Direction: types.BuyDexSellAmm,
		QtyBase:   10,
		BuyPx:     0.45,
		SellPx:    0.47,
	})

	require.Len(t, dex.calls, 1)
	assert.Equal(t, duality.SideBuy, dex.calls[0].Side)
	assert.InDelta(t, 10*0.45*0.195604, dex.calls[0].AmountIn, 1e-12)

	require.Len(t, amm.calls, 1)
	assert.Equal(t, token.NTRN, amm.calls[0].offer)
	assert.Equal(t, 10.0, amm.calls[0].amount)
}

func TestExecutePartialFailureIsLoggedNotRolledBack(t *testing.T) {
	cex := &mockCexPlacer{err: errors.New("binance rejected")}
	dex := &mockDexPlacer{}
	e := newTestExecutor(execCfg(), cex, dex, nil)

	e.execute(context.Background(), types.Opportunity{
		Direction: types.BuyDexSellCex,
		QtyBase:   10,
		BuyPx:     0.45,
	})

	// dex leg still went through; nothing was cancelled
	require.Len(t, dex.calls, 1)
	require.Len(t, cex.calls, 1)
}

func TestRunRiskGateAndDryRun(t *testing.T) {
	cex, dex := &mockCexPlacer{}, &mockDexPlacer{}
	cfg := execCfg()
	cfg.DryRun = true
	e := newTestExecutor(cfg, cex, dex, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	in := make(chan types.Opportunity, 1)
	go e.Run(ctx, in)

	in <- types.Opportunity{Direction: types.BuyDexSellCex, QtyBase: 10, BuyPx: 0.45, Spread: 0.02}
	time.Sleep(50 * time.Millisecond)

	assert.Empty(t, cex.calls)
	assert.Empty(t, dex.calls)
}
