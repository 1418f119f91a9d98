// Package postgres persists price telemetry in Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ziptalk/proton-arb/internal/storage"
)

// Store appends price records into the price_snapshots table.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutPriceBatch appends records. Append-only: no conflict handling,
// every cycle is its own row.
func (s *Store) PutPriceBatch(ctx context.Context, records []storage.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO price_snapshots (
				pair, binance_bid, binance_ask, dex_bid, dex_ask, amm_sell_px, amm_buy_px, qty, ts
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			rec.Pair,
			rec.BinanceBid,
			rec.BinanceAsk,
			rec.DexBid,
			rec.DexAsk,
			rec.AmmSellPx,
			rec.AmmBuyPx,
			rec.Qty,
			rec.Ts,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
