// Package marketdata assembles per-cycle cross-venue snapshots and
// fans them out to the detector, telemetry storage and the Redis feed.
package marketdata

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	imetrics "github.com/ziptalk/proton-arb/internal/metrics"
	"github.com/ziptalk/proton-arb/internal/storage"
	"github.com/ziptalk/proton-arb/internal/token"
	"github.com/ziptalk/proton-arb/internal/types"
)

// CexSource yields the futures top of book for a symbol.
type CexSource interface {
	BestBidAsk(ctx context.Context, symbol string) (bid, ask float64, err error)
}

// BookSource yields the aggregated dex order book for a pair.
type BookSource interface {
	FetchOrderBook(ctx context.Context, base, quote token.Token, depth int) (duality.OrderBook, error)
}

// AmmSource yields simulated AMM prices for an offer size.
type AmmSource interface {
	GetPrice(ctx context.Context, offer token.Token, amount float64) (sellPx, buyPx float64, err error)
}

// SnapshotSink receives the latest snapshot for external consumers.
type SnapshotSink interface {
	PublishSnapshot(ctx context.Context, s types.Snapshot) error
}

// Runner polls every configured venue on a fixed interval. cex, amm,
// sink and store may be nil; book is required.
type Runner struct {
	cfg   *config.Config
	base  token.Token
	quote token.Token
	cex   CexSource
	book  BookSource
	amm   AmmSource
	store storage.Storage
	sink  SnapshotSink
	log   *zap.Logger
}

func NewRunner(cfg *config.Config, base, quote token.Token, cex CexSource, book BookSource, amm AmmSource, store storage.Storage, sink SnapshotSink, log *zap.Logger) *Runner {
	if store == nil {
		store = storage.Nop{}
	}
	return &Runner{
		cfg:   cfg,
		base:  base,
		quote: quote,
		cex:   cex,
		book:  book,
		amm:   amm,
		store: store,
		sink:  sink,
		log:   log,
	}
}

// Run polls until ctx is cancelled, sending one snapshot per cycle.
// A cycle with no usable dex book is skipped, not an error.
func (r *Runner) Run(ctx context.Context, out chan<- types.Snapshot) {
	t := time.NewTicker(r.cfg.PollInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			snap, ok := r.collect(ctx)
			if !ok {
				continue
			}
			r.record(ctx, snap)
			select {
			case out <- snap:
			default:
				r.log.Warn("marketdata: snapshot channel full; dropping")
			}
		}
	}
}

func (r *Runner) collect(ctx context.Context) (types.Snapshot, bool) {
	started := time.Now()
	snap := types.Snapshot{Pair: r.cfg.Pair}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		bookErr error
		book    duality.OrderBook
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		b, err := r.book.FetchOrderBook(ctx, r.base, r.quote, r.cfg.Duality.Depth)
		mu.Lock()
		book, bookErr = b, err
		mu.Unlock()
	}()

	if r.cex != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bid, ask, err := r.cex.BestBidAsk(ctx, r.cfg.Pair)
			if err != nil {
				imetrics.BookFetchErrors.Inc()
				r.log.Warn("marketdata: cex top of book failed", zap.Error(err))
				return
			}
			mu.Lock()
			snap.BinanceBid, snap.BinanceAsk = bid, ask
			mu.Unlock()
		}()
	}

	if r.amm != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sellPx, buyPx, err := r.amm.GetPrice(ctx, r.base, r.cfg.Trade.BaseQty)
			if err != nil {
				imetrics.BookFetchErrors.Inc()
				r.log.Warn("marketdata: amm price failed", zap.Error(err))
				return
			}
			mu.Lock()
			snap.AmmSellPx, snap.AmmBuyPx = sellPx, buyPx
			mu.Unlock()
		}()
	}

	wg.Wait()
	imetrics.BookFetchLatency.Observe(time.Since(started).Seconds())

	if bookErr != nil {
		imetrics.BookFetchErrors.Inc()
		r.log.Warn("marketdata: dex book fetch failed", zap.Error(bookErr))
		return types.Snapshot{}, false
	}
	if book.Empty() {
		r.log.Debug("marketdata: dex book empty; skipping cycle")
		return types.Snapshot{}, false
	}

	if bid, ok := book.BestBid(); ok {
		snap.DexBid, snap.DexBidQty = bid.Price, bid.Quantity
	}
	if ask, ok := book.BestAsk(); ok {
		snap.DexAsk, snap.DexAskQty = ask.Price, ask.Quantity
	}
	snap.Ts = time.Now()

	imetrics.BinanceBid.Set(snap.BinanceBid)
	imetrics.BinanceAsk.Set(snap.BinanceAsk)
	imetrics.DexBid.Set(snap.DexBid)
	imetrics.DexAsk.Set(snap.DexAsk)
	imetrics.AmmSellPx.Set(snap.AmmSellPx)
	return snap, true
}

func (r *Runner) record(ctx context.Context, snap types.Snapshot) {
	rec := storage.PriceRecord{
		Pair:       snap.Pair,
		BinanceBid: snap.BinanceBid,
		BinanceAsk: snap.BinanceAsk,
		DexBid:     snap.DexBid,
		DexAsk:     snap.DexAsk,
		AmmSellPx:  snap.AmmSellPx,
		AmmBuyPx:   snap.AmmBuyPx,
		Qty:        r.cfg.Trade.BaseQty,
		Ts:         snap.Ts,
	}
	if err := r.store.PutPriceBatch(ctx, []storage.PriceRecord{rec}); err != nil {
		r.log.Warn("marketdata: telemetry write failed", zap.Error(err))
	}
	if r.sink != nil {
		if err := r.sink.PublishSnapshot(ctx, snap); err != nil {
			r.log.Warn("marketdata: redis publish failed", zap.Error(err))
		}
	}
}
