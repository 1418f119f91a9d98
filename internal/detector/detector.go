// Package detector compares the latest cross-venue snapshot on a fixed
// tick and emits opportunities when a spread clears the threshold.
package detector

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	imetrics "github.com/ziptalk/proton-arb/internal/metrics"
	"github.com/ziptalk/proton-arb/internal/types"
)

func Run(ctx context.Context, cfg *config.Config, in <-chan types.Snapshot, out chan<- types.Opportunity, log *zap.Logger) {
	t := time.NewTicker(cfg.DetectorTick())
	defer t.Stop()
	var last types.Snapshot

	for {
		select {
		case <-ctx.Done():
			return
		case s := <-in:
			last = s
		case <-t.C:
			switch cfg.Strategy {
			case "astroport_duality":
				evaluateAstroportDuality(cfg, last, out, log)
			default:
				evaluateBinanceDuality(cfg, last, out, log)
			}
		}
	}
}

// evaluateBinanceDuality compares Binance futures against the Duality
// book top in both directions. Missing data on either venue means the
// tick is silently skipped.
func evaluateBinanceDuality(cfg *config.Config, snap types.Snapshot, out chan<- types.Opportunity, log *zap.Logger) {
	q := cfg.Trade.BaseQty
	threshold := cfg.Trade.Threshold

	// buy on the dex, sell the Binance bid
	if snap.DexAsk > 0 && snap.BinanceBid > 0 {
		spread := snap.BinanceBid - snap.DexAsk
		if spread > threshold {
			emit(out, log, types.Opportunity{
				Direction: types.BuyDexSellCex,
				BuyVenue:  types.VenueDuality,
				SellVenue: types.VenueBinance,
				QtyBase:   q,
				BuyPx:     snap.DexAsk,
				SellPx:    snap.BinanceBid,
				Spread:    spread,
			})
		}
	}

	// buy the Binance ask, sell into the dex bid
	if snap.DexBid > 0 && snap.BinanceAsk > 0 {
		spread := snap.DexBid - snap.BinanceAsk
		if spread > threshold {
			emit(out, log, types.Opportunity{
				Direction: types.BuyCexSellDex,
				BuyVenue:  types.VenueBinance,
				SellVenue: types.VenueDuality,
				QtyBase:   q,
				BuyPx:     snap.BinanceAsk,
				SellPx:    snap.DexBid,
				Spread:    spread,
			})
		}
	}
}

// evaluateAstroportDuality compares the Astroport simulation prices
// against the Duality book top.
func evaluateAstroportDuality(cfg *config.Config, snap types.Snapshot, out chan<- types.Opportunity, log *zap.Logger) {
	q := cfg.Trade.BaseQty
	threshold := cfg.Trade.Threshold

	if snap.DexAsk > 0 && snap.AmmSellPx > 0 {
		spread := snap.AmmSellPx - snap.DexAsk
		if spread > threshold {
			emit(out, log, types.Opportunity{
				Direction: types.BuyDexSellAmm,
				BuyVenue:  types.VenueDuality,
				SellVenue: types.VenueAstroport,
				QtyBase:   q,
				BuyPx:     snap.DexAsk,
				SellPx:    snap.AmmSellPx,
				Spread:    spread,
			})
		}
	}

	if snap.DexBid > 0 && snap.AmmBuyPx > 0 {
		spread := snap.DexBid - snap.AmmBuyPx
		if spread > threshold {
			emit(out, log, types.Opportunity{
				Direction: types.BuyAmmSellDex,
				BuyVenue:  types.VenueAstroport,
				SellVenue: types.VenueDuality,
				QtyBase:   q,
				BuyPx:     snap.AmmBuyPx,
				SellPx:    snap.DexBid,
				Spread:    spread,
			})
		}
	}
}

func emit(out chan<- types.Opportunity, log *zap.Logger, opp types.Opportunity) {
	opp.Ts = time.Now()
	imetrics.Opportunities.Inc()
	log.Info("opportunity found",
		zap.String("direction", string(opp.Direction)),
		zap.Float64("buy_px", opp.BuyPx),
		zap.Float64("sell_px", opp.SellPx),
		zap.Float64("spread", opp.Spread),
	)
	select {
	case out <- opp:
	default:
		log.Warn("detector: opportunity channel full; dropping")
	}
}
