package redisfeed

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/types"
)

func newTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	return NewPublisher(cfg), mr
}

func TestPublishSnapshot(t *testing.T) {
	p, mr := newTestPublisher(t)
	defer p.Close()

	ts := time.Now()
	snap := types.Snapshot{
		Pair:       "NTRNUSDT",
		BinanceBid: 0.4512,
		BinanceAsk: 0.4515,
		DexBid:     0.4498,
		DexAsk:     0.4531,
		Ts:         ts,
	}
	require.NoError(t, p.PublishSnapshot(context.Background(), snap))

	assert.Equal(t, "0.4512", mr.HGet("pair:snap:NTRNUSDT", "binance_bid"))
	assert.Equal(t, "0.4531", mr.HGet("pair:snap:NTRNUSDT", "dex_ask"))

	pairs, err := p.RecentPairs(context.Background(), ts.UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, []string{"NTRNUSDT"}, pairs)
}

func TestPublishSnapshotLastWriteWins(t *testing.T) {
	p, mr := newTestPublisher(t)
	defer p.Close()

	s := types.Snapshot{Pair: "NTRNUSDT", BinanceBid: 0.45, Ts: time.Now()}
	require.NoError(t, p.PublishSnapshot(context.Background(), s))
	s.BinanceBid = 0.46
	s.Ts = s.Ts.Add(time.Second)
	require.NoError(t, p.PublishSnapshot(context.Background(), s))

	assert.Equal(t, "0.46", mr.HGet("pair:snap:NTRNUSDT", "binance_bid"))
}

func TestRecentPairsFiltersStale(t *testing.T) {
	p, _ := newTestPublisher(t)
	defer p.Close()

	old := types.Snapshot{Pair: "OLDPAIR", Ts: time.Now().Add(-time.Hour)}
	fresh := types.Snapshot{Pair: "NTRNUSDT", Ts: time.Now()}
	require.NoError(t, p.PublishSnapshot(context.Background(), old))
	require.NoError(t, p.PublishSnapshot(context.Background(), fresh))

	pairs, err := p.RecentPairs(context.Background(), time.Now().Add(-time.Minute).UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, []string{"NTRNUSDT"}, pairs)
}
