// Package redisfeed publishes the bot's latest per-pair price view to
// Redis so external dashboards can read it without touching the bot.
package redisfeed

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/types"
)

type Publisher struct {
	rdb    *redis.Client
	active string // ZSET of recently updated pairs
	snapNS string // HASH per pair: snap:<PAIR>
}

func NewPublisher(cfg *config.Config) *Publisher {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
	})
	active := cfg.Redis.ActiveKey
	if active == "" {
		active = "pair:active"
	}
	snapNS := cfg.Redis.SnapNS
	if snapNS == "" {
		snapNS = "pair:snap:"
	}
	return &Publisher{rdb: rdb, active: active, snapNS: snapNS}
}

// PublishSnapshot upserts the pair's snapshot hash and bumps it in the
// active-pair index. Last write wins; nothing is read back.
func (p *Publisher) PublishSnapshot(ctx context.Context, s types.Snapshot) error {
	tsMs := s.Ts.UnixMilli()
	key := p.snapNS + s.Pair
	if err := p.rdb.HSet(ctx, key, map[string]interface{}{
		"pair":        s.Pair,
		"binance_bid": s.BinanceBid,
		"binance_ask": s.BinanceAsk,
		"dex_bid":     s.DexBid,
		"dex_ask":     s.DexAsk,
		"amm_sell_px": s.AmmSellPx,
		"amm_buy_px":  s.AmmBuyPx,
		"ts_ms":       tsMs,
	}).Err(); err != nil {
		return err
	}
	return p.rdb.ZAdd(ctx, p.active, redis.Z{
		Score: float64(tsMs), Member: s.Pair,
	}).Err()
}

// RecentPairs returns pairs updated at or after sinceMs.
func (p *Publisher) RecentPairs(ctx context.Context, sinceMs int64) ([]string, error) {
	return p.rdb.ZRangeByScore(ctx, p.active, &redis.ZRangeBy{
		Min: strconv.FormatInt(sinceMs, 10),
		Max: "+inf",
	}).Result()
}

func (p *Publisher) Close() error { return p.rdb.Close() }
