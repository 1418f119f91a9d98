package bot

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/connectors/cex/binance"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	"github.com/ziptalk/proton-arb/internal/token"
)

// TradeState tracks the single resting futures order the maker loop
// keeps on the book and the dex prices it is pegged to.
type TradeState struct {
	mu      sync.Mutex
	orderID int64
	side    string
	dexAsk  float64
	dexBid  float64
}

func NewTradeState() *TradeState {
	return &TradeState{orderID: -1, side: "BUY"}
}

func (s *TradeState) Snapshot() (orderID int64, side string, dexAsk, dexBid float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderID, s.side, s.dexAsk, s.dexBid
}

func (s *TradeState) SetOrder(id int64, side string) {
	s.mu.Lock()
	s.orderID = id
	s.side = side
	s.mu.Unlock()
}

func (s *TradeState) SetPrices(ask, bid float64) {
	s.mu.Lock()
	s.dexAsk = ask
	s.dexBid = bid
	s.mu.Unlock()
}

// ToggleSide flips BUY<->SELL and returns the new side.
func (s *TradeState) ToggleSide() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.side == "BUY" {
		s.side = "SELL"
	} else {
		s.side = "BUY"
	}
	return s.side
}

// Maker keeps one pegged limit order on Binance futures, repriced off
// the Duality top of book. A fill flips the side and re-quotes.
type Maker struct {
	cfg   *config.Config
	cex   *binance.Client
	ws    *binance.WS
	api   *duality.API
	base  token.Token
	quote token.Token
	state *TradeState
	log   *zap.Logger
}

func NewMaker(cfg *config.Config, cex *binance.Client, ws *binance.WS, api *duality.API, base, quote token.Token, log *zap.Logger) *Maker {
	return &Maker{
		cfg:   cfg,
		cex:   cex,
		ws:    ws,
		api:   api,
		base:  base,
		quote: quote,
		state: NewTradeState(),
		log:   log,
	}
}

func (m *Maker) Run(ctx context.Context) {
	defer m.cleanup()

	if err := m.cex.CancelAllOpenOrders(ctx, m.cfg.Pair); err != nil {
		m.log.Fatal("initial cancel failed", zap.Error(err))
	}

	if !m.waitForBook(ctx) {
		return
	}

	_, _, ask, bid := m.state.Snapshot()
	order, err := m.cex.PlaceLimit(ctx, m.cfg.Pair, "BUY", m.cfg.Trade.BaseQty, ask+m.cfg.Trade.BuyAdjustment)
	if err != nil {
		m.log.Fatal("initial order failed", zap.Error(err))
	}
	m.state.SetOrder(order.OrderID, "BUY")
	m.log.Info("initial order placed",
		zap.Int64("order_id", order.OrderID),
		zap.Float64("dex_ask", ask),
		zap.Float64("dex_bid", bid),
	)

	listenKey, err := m.cex.CreateListenKey(ctx)
	if err != nil {
		m.log.Fatal("listen key failed", zap.Error(err))
	}
	fills, err := m.ws.SubscribeUserData(ctx, listenKey, m.cex)
	if err != nil {
		m.log.Fatal("user data stream failed", zap.Error(err))
	}

	t := time.NewTicker(m.cfg.PollInterval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-fills:
			m.onOrderUpdate(ctx, u)
		case <-t.C:
			m.repegOnBookMove(ctx)
		}
	}
}

// waitForBook blocks until the dex book has both sides, feeding the
// state as it goes.
func (m *Maker) waitForBook(ctx context.Context) bool {
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
			book, err := m.api.FetchOrderBook(ctx, m.base, m.quote, m.cfg.Duality.Depth)
			if err != nil {
				m.log.Warn("order book fetch failed", zap.Error(err))
				continue
			}
			ask, okA := book.BestAsk()
			bid, okB := book.BestBid()
			if !okA || !okB {
				continue
			}
			m.state.SetPrices(ask.Price, bid.Price)
			return true
		}
	}
}

func (m *Maker) repegOnBookMove(ctx context.Context) {
	book, err := m.api.FetchOrderBook(ctx, m.base, m.quote, m.cfg.Duality.Depth)
	if err != nil {
		m.log.Warn("order book fetch failed", zap.Error(err))
		return
	}
	ask, okA := book.BestAsk()
	bid, okB := book.BestBid()
	if !okA || !okB {
		return
	}

	orderID, side, prevAsk, prevBid := m.state.Snapshot()
	if ask.Price == prevAsk && bid.Price == prevBid {
		return
	}
	m.state.SetPrices(ask.Price, bid.Price)
	if orderID < 0 {
		return
	}

	price := ask.Price + m.cfg.Trade.BuyAdjustment
	if side == "SELL" {
		price = bid.Price + m.cfg.Trade.SellAdjustment
	}
	if _, err := m.cex.ModifyOrder(ctx, m.cfg.Pair, orderID, side, m.cfg.Trade.BaseQty, price); err != nil {
		if strings.Contains(err.Error(), "No need to modify") {
			return
		}
		m.log.Warn("order modify failed", zap.Int64("order_id", orderID), zap.Error(err))
		return
	}
	m.log.Info("price changed, modified order",
		zap.String("side", side),
		zap.Float64("price", price),
	)
}

// onOrderUpdate flips the quoting side once our resting order fills and
// immediately re-quotes on the opposite side.
func (m *Maker) onOrderUpdate(ctx context.Context, u binance.OrderUpdate) {
	orderID, _, ask, bid := m.state.Snapshot()
	if u.Status != "FILLED" || u.OrderID != orderID {
		return
	}
	m.log.Info("order filled",
		zap.String("side", u.Side),
		zap.Float64("filled_qty", u.FilledQty),
		zap.Float64("avg_price", u.AvgPrice),
	)

	next := m.state.ToggleSide()
	price := ask + m.cfg.Trade.BuyAdjustment
	if next == "SELL" {
		price = bid + m.cfg.Trade.SellAdjustment
	}
	order, err := m.cex.PlaceLimit(ctx, m.cfg.Pair, next, m.cfg.Trade.BaseQty, price)
	if err != nil {
		m.log.Error("re-quote failed", zap.String("side", next), zap.Error(err))
		m.state.SetOrder(-1, next)
		return
	}
	m.state.SetOrder(order.OrderID, next)
	m.log.Info("re-quoted", zap.String("side", next), zap.Int64("order_id", order.OrderID))
}

func (m *Maker) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.cex.CancelAllOpenOrders(ctx, m.cfg.Pair); err != nil {
		m.log.Warn("cleanup cancel failed", zap.Error(err))
		return
	}
	m.log.Info("open orders cancelled")
}
