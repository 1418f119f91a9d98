package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// listenKeyTTL is how often the private stream's key gets refreshed.
// Binance expires keys after 60 minutes.
const listenKeyTTL = 57 * time.Minute

type Ticker struct {
	Symbol string
	Bid    float64
	Ask    float64
	TS     time.Time
}

// OrderUpdate is one ORDER_TRADE_UPDATE event from the user-data stream.
type OrderUpdate struct {
	Symbol    string
	Side      string
	Status    string
	OrderID   int64
	FilledQty float64
	AvgPrice  float64
	TS        time.Time
}

type WS struct {
	URL    string
	Dialer *websocket.Dialer
	log    *zap.Logger

	mu    sync.Mutex
	conns []*websocket.Conn
}

func NewWS(url string, log *zap.Logger) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		log: log,
	}
}

// connect dials a dedicated connection for one subscription. Gorilla
// conns allow only one concurrent reader, so streams never share one.
func (w *WS) connect(ctx context.Context, url string) (*websocket.Conn, error) {
	c, _, err := w.Dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	_ = c.SetReadDeadline(time.Now().Add(90 * time.Second))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	w.mu.Lock()
	w.conns = append(w.conns, c)
	w.mu.Unlock()
	return c, nil
}

// Close shuts down every open subscription connection.
func (w *WS) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var first error
	for _, c := range w.conns {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	w.conns = nil
	return first
}

type bookTickerEvent struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Bid    string `json:"b"`
	Ask    string `json:"a"`
	TS     int64  `json:"E"`
}

// SubscribeBookTicker streams top-of-book updates for the symbols. The
// channel closes when the connection drops or ctx is cancelled.
func (w *WS) SubscribeBookTicker(ctx context.Context, symbols []string) (<-chan Ticker, error) {
	conn, err := w.connect(ctx, w.URL+"/ws")
	if err != nil {
		return nil, err
	}

	params := make([]string, 0, len(symbols))
	for _, s := range symbols {
		params = append(params, strings.ToLower(s)+"@bookTicker")
	}
	sub := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int      `json:"id"`
	}{Method: "SUBSCRIBE", Params: params, ID: 1}
	if err := conn.WriteJSON(sub); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan Ticker, 1024)
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

			var ev bookTickerEvent
			if json.Unmarshal(data, &ev) != nil || ev.Symbol == "" {
				continue
			}
			bid, _ := strconv.ParseFloat(ev.Bid, 64)
			ask, _ := strconv.ParseFloat(ev.Ask, 64)
			if bid == 0 && ask == 0 {
				continue
			}
			ts := time.Now()
			if ev.TS > 0 {
				ts = time.UnixMilli(ev.TS)
			}
			out <- Ticker{Symbol: ev.Symbol, Bid: bid, Ask: ask, TS: ts}
		}
	}()
	return out, nil
}

type orderTradeUpdate struct {
	Event string `json:"e"`
	TS    int64  `json:"E"`
	Order struct {
		Symbol    string `json:"s"`
		Side      string `json:"S"`
		Status    string `json:"X"`
		OrderID   int64  `json:"i"`
		FilledQty string `json:"z"`
		AvgPrice  string `json:"ap"`
	} `json:"o"`
}

// keepAliver refreshes a listen key; satisfied by *Client.
type keepAliver interface {
	KeepAliveListenKey(ctx context.Context) error
}

// SubscribeUserData streams order updates from the private listen-key
// stream, refreshing the key in the background until ctx is cancelled.
func (w *WS) SubscribeUserData(ctx context.Context, listenKey string, ka keepAliver) (<-chan OrderUpdate, error) {
	conn, err := w.connect(ctx, w.URL+"/ws/"+listenKey)
	if err != nil {
		return nil, err
	}

	out := make(chan OrderUpdate, 256)
	go func() {
		t := time.NewTicker(listenKeyTTL)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := ka.KeepAliveListenKey(ctx); err != nil {
					w.log.Warn("listen key keepalive failed", zap.Error(err))
				}
			}
		}
	}()

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))

			var ev orderTradeUpdate
			if json.Unmarshal(data, &ev) != nil || ev.Event != "ORDER_TRADE_UPDATE" {
				continue
			}
			filled, _ := strconv.ParseFloat(ev.Order.FilledQty, 64)
			avg, _ := strconv.ParseFloat(ev.Order.AvgPrice, 64)
			ts := time.Now()
			if ev.TS > 0 {
				ts = time.UnixMilli(ev.TS)
			}
			out <- OrderUpdate{
				Symbol:    ev.Order.Symbol,
				Side:      ev.Order.Side,
				Status:    ev.Order.Status,
				OrderID:   ev.Order.OrderID,
				FilledQty: filled,
				AvgPrice:  avg,
				TS:        ts,
			}
		}
	}()
	return out, nil
}
