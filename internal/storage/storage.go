// Package storage persists price telemetry. The bot only ever appends;
// nothing is read back at runtime.
package storage

import (
	"context"
	"time"
)

// PriceRecord is one polling cycle's prices across venues.
type PriceRecord struct {
	Pair       string    `json:"pair"`
	BinanceBid float64   `json:"binance_bid"`
	BinanceAsk float64   `json:"binance_ask"`
	DexBid     float64   `json:"dex_bid"`
	DexAsk     float64   `json:"dex_ask"`
	AmmSellPx  float64   `json:"amm_sell_px,omitempty"`
	AmmBuyPx   float64   `json:"amm_buy_px,omitempty"`
	Qty        float64   `json:"qty"`
	Ts         time.Time `json:"ts"`
}

// Storage is an append-only telemetry sink.
type Storage interface {
	PutPriceBatch(ctx context.Context, records []PriceRecord) error
	Close()
}

// Nop discards every record. Used when no sink is configured.
type Nop struct{}

func (Nop) PutPriceBatch(context.Context, []PriceRecord) error { return nil }
func (Nop) Close()                                             {}
