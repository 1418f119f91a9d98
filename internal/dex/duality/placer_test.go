package duality

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/token"
)

// mockBroadcaster rejects the first rejectN broadcasts with rejectErr,
// recording every order it sees.
type mockBroadcaster struct {
	rejectN   int
	rejectErr error
	simErr    error

	simulates  int
	broadcasts int
	orders     []MsgPlaceLimitOrder
	fees       []cosmos.Fee
}

func (m *mockBroadcaster) Simulate(ctx context.Context, msgs []cosmos.Msg) (uint64, error) {
	m.simulates++
	if m.simErr != nil {
		return 0, m.simErr
	}
	return 200000, nil
}

func (m *mockBroadcaster) BroadcastSync(ctx context.Context, msgs []cosmos.Msg, fee cosmos.Fee) (*cosmos.TxResult, error) {
	m.broadcasts++
	m.orders = append(m.orders, msgs[0].(MsgPlaceLimitOrder))
	m.fees = append(m.fees, fee)
	if m.broadcasts <= m.rejectN {
		return nil, m.rejectErr
	}
	return &cosmos.TxResult{TxHash: "HASH", Code: 0}, nil
}

var errUnfillable = errors.New("tx rejected with code 1: Trade cannot be filled at the specified LimitPrice: 123")

func baseParams() PlaceLimitOrderParams {
	return PlaceLimitOrderParams{
		Address:         "neutron1tester",
		Base:            token.MustBySymbol(token.NTRN),
		Quote:           token.MustBySymbol(token.USDC),
		Side:            SideBuy,
		AmountIn:        10,
		LimitPrice:      0.5,
		OrderType:       OrderTypeImmediateOrCancel,
		MaxRetries:      3,
		PriceAdjustment: 1.01,
	}
}

func newTestPlacer(m *mockBroadcaster) *Placer {
	return NewPlacer(m, 0.025, "untrn", 1.3, zap.NewNop())
}

func TestPlaceLimitOrderFirstAttemptSucceeds(t *testing.T) {
	m := &mockBroadcaster{}
	res, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	require.NoError(t, err)
	assert.Equal(t, "HASH", res.TxHash)
	assert.Equal(t, 1, m.broadcasts)
	assert.Equal(t, 1, m.simulates)

	order := m.orders[0]
	assert.Equal(t, "neutron1tester", order.Creator)
	assert.Equal(t, token.MustBySymbol(token.USDC).Denom, order.TokenIn)
	assert.Equal(t, token.MustBySymbol(token.NTRN).Denom, order.TokenOut)
	assert.Equal(t, "10000000", order.AmountIn)
	assert.Equal(t, token.ScaleAmount(0.5, 27), order.LimitSellPrice)
	assert.Equal(t, OrderTypeImmediateOrCancel, order.OrderType)

	// gas 200000 * 1.3 = 260000; fee = ceil(260000 * 0.025)
	require.Len(t, m.fees, 1)
	assert.Equal(t, uint64(260000), m.fees[0].GasLimit)
	assert.Equal(t, "6500", m.fees[0].Amount[0].Amount)
}

func TestPlaceLimitOrderRetriesUnfillableWithPriceWalk(t *testing.T) {
	m := &mockBroadcaster{rejectN: 2, rejectErr: errUnfillable}
	res, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	require.NoError(t, err)
	assert.Equal(t, "HASH", res.TxHash)
	assert.Equal(t, 3, m.broadcasts)
	assert.Equal(t, 3, m.simulates, "each retry re-simulates")

	// BUY walks the price up monotonically
	require.Len(t, m.orders, 3)
	assert.Equal(t, token.ScaleAmount(0.5, 27), m.orders[0].LimitSellPrice)
	assert.Equal(t, token.ScaleAmount(0.5*1.01, 27), m.orders[1].LimitSellPrice)
	assert.Equal(t, token.ScaleAmount(0.5*1.01*1.01, 27), m.orders[2].LimitSellPrice)
}

func TestPlaceLimitOrderSellWalksDownAndDerivesAmount(t *testing.T) {
	m := &mockBroadcaster{rejectN: 1, rejectErr: errUnfillable}
	p := baseParams()
	p.Side = SideSell
	p.AmountIn = 10
	p.LimitPrice = 0.5
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), p)
	require.NoError(t, err)

	require.Len(t, m.orders, 2)
	assert.Equal(t, token.MustBySymbol(token.NTRN).Denom, m.orders[0].TokenIn)
	// sold amount = round(10 * 0.5) from the initial price, on both attempts
	assert.Equal(t, "5000000", m.orders[0].AmountIn)
	assert.Equal(t, "5000000", m.orders[1].AmountIn)
	assert.Equal(t, token.ScaleAmount(0.5/1.01, 27), m.orders[1].LimitSellPrice)
}

func TestPlaceLimitOrderExhaustsRetries(t *testing.T) {
	m := &mockBroadcaster{rejectN: 99, rejectErr: errUnfillable}
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	require.Error(t, err)
	assert.Equal(t, 3, m.broadcasts, "exactly max_retries broadcasts")

	var oerr *OrderError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, 3, oerr.Attempts)
	assert.InDelta(t, 0.5*1.01*1.01, oerr.LastPrice, 1e-12)
}

func TestPlaceLimitOrderFatalErrorNotRetried(t *testing.T) {
	m := &mockBroadcaster{rejectN: 99, rejectErr: errors.New("tx rejected with code 5: insufficient funds")}
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	require.Error(t, err)
	assert.Equal(t, 1, m.broadcasts)
	var oerr *OrderError
	assert.False(t, errors.As(err, &oerr))
}

func TestPlaceLimitOrderSimulateFailureFatal(t *testing.T) {
	m := &mockBroadcaster{simErr: cosmos.ErrNotConnected}
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	require.ErrorIs(t, err, cosmos.ErrNotConnected)
	assert.Equal(t, 0, m.broadcasts)
}

func TestPlaceLimitOrderSimulateUnfillableRetried(t *testing.T) {
	// the chain can reject at simulation too; same classification
	m := &mockBroadcaster{simErr: errUnfillable}
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), baseParams())
	var oerr *OrderError
	require.ErrorAs(t, err, &oerr)
	assert.Equal(t, 3, oerr.Attempts)
	assert.Equal(t, 3, m.simulates)
}

func TestPlaceLimitOrderDefaultsToImmediateOrCancel(t *testing.T) {
	// zero-valued params must not fall through to a resting
	// GOOD_TIL_CANCELLED order
	m := &mockBroadcaster{}
	p := baseParams()
	p.OrderType = OrderTypeGoodTilCancelled
	_, err := newTestPlacer(m).PlaceLimitOrder(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, m.orders, 1)
	assert.Equal(t, OrderTypeImmediateOrCancel, m.orders[0].OrderType)

	m = &mockBroadcaster{}
	p.OrderType = OrderTypeFillOrKill
	_, err = newTestPlacer(m).PlaceLimitOrder(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, m.orders, 1)
	assert.Equal(t, OrderTypeFillOrKill, m.orders[0].OrderType)
}

func TestIsUnfillable(t *testing.T) {
	assert.True(t, IsUnfillable(errUnfillable))
	assert.False(t, IsUnfillable(errors.New("out of gas")))
	assert.False(t, IsUnfillable(nil))
}

func TestMsgPlaceLimitOrderMarshalStable(t *testing.T) {
	msg := MsgPlaceLimitOrder{
		Creator:        "a",
		Receiver:       "a",
		TokenIn:        "untrn",
		TokenOut:       "uusdc",
		AmountIn:       "1000000",
		OrderType:      OrderTypeImmediateOrCancel,
		LimitSellPrice: "5" + "00000000000000000000000000",
	}
	assert.Equal(t, "/neutron.dex.MsgPlaceLimitOrder", msg.TypeURL())
	assert.Equal(t, msg.Marshal(), msg.Marshal())
	assert.NotEmpty(t, msg.Marshal())
}
