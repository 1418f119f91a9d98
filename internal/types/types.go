package types

import "time"

// Venue identifies one of the three trading surfaces.
type Venue string

const (
	VenueBinance   Venue = "binance"
	VenueDuality   Venue = "duality"
	VenueAstroport Venue = "astroport"
)

type Direction string

const (
	BuyDexSellCex Direction = "BUY_DEX_SELL_CEX"
	BuyCexSellDex Direction = "BUY_CEX_SELL_DEX"
	BuyAmmSellDex Direction = "BUY_AMM_SELL_DEX"
	BuyDexSellAmm Direction = "BUY_DEX_SELL_AMM"
)

// Snapshot is one polling cycle's view of every venue for a pair.
// Zero prices mean the venue had no data this cycle.
type Snapshot struct {
	Pair       string
	BinanceBid float64
	BinanceAsk float64
	DexBid     float64
	DexAsk     float64
	DexBidQty  float64
	DexAskQty  float64
	AmmSellPx  float64
	AmmBuyPx   float64
	Ts         time.Time
}

// Opportunity is a detected cross-venue spread. QtyBase is the fixed
// configured trade size in base token units; there is no position sizing.
type Opportunity struct {
	Direction Direction
	BuyVenue  Venue
	SellVenue Venue
	QtyBase   float64
	BuyPx     float64
	SellPx    float64
	Spread    float64
	Ts        time.Time
}
