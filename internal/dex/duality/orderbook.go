package duality

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"

	"github.com/ziptalk/proton-arb/internal/token"
)

// OrderBookLevel is one aggregated price level, base-token quantity.
type OrderBookLevel struct {
	Price    float64
	Quantity float64
}

// OrderBook holds asks ascending and bids descending, both truncated
// to the requested depth.
type OrderBook struct {
	Asks []OrderBookLevel
	Bids []OrderBookLevel
}

// BestAsk returns the lowest ask, or false when the side is empty.
func (b OrderBook) BestAsk() (OrderBookLevel, bool) {
	if len(b.Asks) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Asks[0], true
}

// BestBid returns the highest bid, or false when the side is empty.
func (b OrderBook) BestBid() (OrderBookLevel, bool) {
	if len(b.Bids) == 0 {
		return OrderBookLevel{}, false
	}
	return b.Bids[0], true
}

// Empty reports whether both sides are empty.
func (b OrderBook) Empty() bool { return len(b.Asks) == 0 && len(b.Bids) == 0 }

type levelKey struct {
	price float64
	ask   bool
}

// BuildOrderBook aggregates raw tranche-user records into a depth-capped
// order book for the base/quote pair.
//
// Tranches whose active shares (owned minus withdrawn minus cancelled)
// are not positive are dead and excluded. A record whose maker is the
// quote token quotes the reciprocal price. Prices are grouped at six
// decimals. Maker-side shares are quote-denominated on the bid side, so
// bid quantity is divided by price to express base units. Bids at or
// above the lowest ask are dropped; with no asks present the cutoff
// is zero and the bid side comes back empty.
func BuildOrderBook(records []TrancheRecord, base, quote token.Token, depth int) (OrderBook, error) {
	if depth <= 0 {
		depth = 5
	}
	levels := make(map[levelKey]float64)

	for _, rec := range records {
		pair := rec.TradePairID
		match := (pair.MakerDenom == base.Denom && pair.TakerDenom == quote.Denom) ||
			(pair.MakerDenom == quote.Denom && pair.TakerDenom == base.Denom)
		if !match {
			continue
		}

		active, err := activeShares(rec)
		if err != nil {
			return OrderBook{}, err
		}
		if active.Sign() <= 0 {
			continue
		}

		tick, err := rec.TickIndex()
		if err != nil {
			return OrderBook{}, fmt.Errorf("tranche %s: %w", rec.TrancheKey, err)
		}

		isAsk := pair.MakerDenom == base.Denom
		price := TickToPrice(tick)
		if !isAsk {
			price = 1 / price
		}
		price = roundPrice(price)

		makerDecimals := base.Decimals
		if !isAsk {
			makerDecimals = quote.Decimals
		}
		qty, err := token.UnscaleAmount(active.String(), makerDecimals)
		if err != nil {
			return OrderBook{}, fmt.Errorf("tranche %s: %w", rec.TrancheKey, err)
		}
		levels[levelKey{price: price, ask: isAsk}] += qty
	}

	var book OrderBook
	for key, qty := range levels {
		lvl := OrderBookLevel{Price: key.price, Quantity: qty}
		if key.ask {
			book.Asks = append(book.Asks, lvl)
		} else {
			// maker shares on the bid side are quote units
			lvl.Quantity /= lvl.Price
			book.Bids = append(book.Bids, lvl)
		}
	}

	sort.Slice(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	sort.Slice(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })

	if len(book.Asks) > depth {
		book.Asks = book.Asks[:depth]
	}
	// with no asks the cutoff is zero, so every bid is discarded
	lowestAsk := 0.0
	if len(book.Asks) > 0 {
		lowestAsk = book.Asks[0].Price
	}
	kept := book.Bids[:0]
	for _, bid := range book.Bids {
		if bid.Price < lowestAsk {
			kept = append(kept, bid)
		}
	}
	book.Bids = kept
	if len(book.Bids) > depth {
		book.Bids = book.Bids[:depth]
	}
	return book, nil
}

func activeShares(rec TrancheRecord) (*big.Int, error) {
	owned, err := parseShares(rec.SharesOwned, "shares_owned", rec.TrancheKey)
	if err != nil {
		return nil, err
	}
	withdrawn, err := parseShares(rec.SharesWithdrawn, "shares_withdrawn", rec.TrancheKey)
	if err != nil {
		return nil, err
	}
	cancelled, err := parseShares(rec.SharesCancelled, "shares_cancelled", rec.TrancheKey)
	if err != nil {
		return nil, err
	}
	owned.Sub(owned, withdrawn)
	return owned.Sub(owned, cancelled), nil
}

// parseShares treats an omitted field as zero; the LCD drops
// zero-valued strings on some node versions.
func parseShares(s, field, tranche string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("tranche %s: bad %s %q", tranche, field, s)
	}
	return v, nil
}

// roundPrice matches the aggregator's six-decimal price buckets.
func roundPrice(p float64) float64 {
	out, _ := strconv.ParseFloat(strconv.FormatFloat(p, 'f', 6, 64), 64)
	return out
}

// FetchOrderBook pulls every tranche-user record and aggregates the
// book for the pair. One failed page fails the whole build; a stale
// half-book is worse than no book.
func (a *API) FetchOrderBook(ctx context.Context, base, quote token.Token, depth int) (OrderBook, error) {
	records, err := a.AllLimitOrderTrancheUsers(ctx)
	if err != nil {
		return OrderBook{}, err
	}
	return BuildOrderBook(records, base, quote, depth)
}
