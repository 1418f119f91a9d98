// Package binance is a USDM futures connector: signed REST for orders
// and listen keys, websocket for the public book ticker and the private
// user-data stream.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
)

type Client struct {
	cfg  *config.Config
	log  *zap.Logger
	http *http.Client
}

func NewClient(cfg *config.Config, log *zap.Logger) (*Client, error) {
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: 6 * time.Second}}, nil
}

type bookTickerResp struct {
	Symbol   string `json:"symbol"`
	BidPrice string `json:"bidPrice"`
	AskPrice string `json:"askPrice"`
}

// BestBidAsk returns the futures top of book for a symbol.
func (c *Client) BestBidAsk(ctx context.Context, symbol string) (bid, ask float64, err error) {
	endpoint := c.cfg.Binance.RestURL + "/fapi/v1/ticker/bookTicker?symbol=" + url.QueryEscape(symbol)
	req, _ := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return 0, 0, fmt.Errorf("bookTicker %d: %s", resp.StatusCode, string(b))
	}
	var br bookTickerResp
	if err := json.NewDecoder(resp.Body).Decode(&br); err != nil {
		return 0, 0, err
	}
	bid, _ = strconv.ParseFloat(br.BidPrice, 64)
	ask, _ = strconv.ParseFloat(br.AskPrice, 64)
	return bid, ask, nil
}

// Order is the subset of the futures order response the bot reads.
type Order struct {
	OrderID     int64   `json:"orderId"`
	Symbol      string `json:"symbol"`
	Status      string `json:"status"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	ExecutedQty string `json:"executedQty"`
	AvgPrice    string `json:"avgPrice"`
}

// FilledQty parses the executed quantity.
func (o Order) FilledQty() float64 {
	v, _ := strconv.ParseFloat(o.ExecutedQty, 64)
	return v
}

// PlaceMarket submits a MARKET order for qty base units.
func (c *Client) PlaceMarket(ctx context.Context, symbol, side string, qty float64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "MARKET")
	params.Set("quantity", trim(qty))
	return c.orderCall(ctx, "POST", "/fapi/v1/order", params)
}

// PlaceLimit submits a GTC LIMIT order.
func (c *Client) PlaceLimit(ctx context.Context, symbol, side string, qty, price float64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", "LIMIT")
	params.Set("timeInForce", "GTC")
	params.Set("quantity", trim(qty))
	params.Set("price", trim(price))
	return c.orderCall(ctx, "POST", "/fapi/v1/order", params)
}

// ModifyOrder reprices a resting limit order in place.
func (c *Client) ModifyOrder(ctx context.Context, symbol string, orderID int64, side string, qty, price float64) (*Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	params.Set("side", side)
	params.Set("quantity", trim(qty))
	params.Set("price", trim(price))
	return c.orderCall(ctx, "PUT", "/fapi/v1/order", params)
}

func (c *Client) orderCall(ctx context.Context, method, path string, params url.Values) (*Order, error) {
	body, err := c.signedCall(ctx, method, path, params)
	if err != nil {
		return nil, err
	}
	var ord Order
	if err := json.Unmarshal(body, &ord); err != nil {
		return nil, err
	}
	c.log.Info("binance order",
		zap.String("symbol", ord.Symbol),
		zap.Int64("order_id", ord.OrderID),
		zap.String("side", ord.Side),
		zap.String("status", ord.Status),
	)
	return &ord, nil
}

// CancelAllOpenOrders cancels every open futures order on the symbol.
func (c *Client) CancelAllOpenOrders(ctx context.Context, symbol string) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	_, err := c.signedCall(ctx, "DELETE", "/fapi/v1/allOpenOrders", params)
	return err
}

type listenKeyResp struct {
	ListenKey string `json:"listenKey"`
}

// CreateListenKey opens a user-data stream and returns its key.
func (c *Client) CreateListenKey(ctx context.Context) (string, error) {
	body, err := c.apiKeyCall(ctx, "POST", "/fapi/v1/listenKey")
	if err != nil {
		return "", err
	}
	var lk listenKeyResp
	if err := json.Unmarshal(body, &lk); err != nil {
		return "", err
	}
	if lk.ListenKey == "" {
		return "", fmt.Errorf("listenKey: empty response")
	}
	return lk.ListenKey, nil
}

// KeepAliveListenKey extends the user-data stream validity.
func (c *Client) KeepAliveListenKey(ctx context.Context) error {
	_, err := c.apiKeyCall(ctx, "PUT", "/fapi/v1/listenKey")
	return err
}

// signedCall sends a timestamped, HMAC-signed request.
func (c *Client) signedCall(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", "5000")
	qs := params.Encode()
	qs += "&signature=" + c.sign(qs)

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Binance.RestURL+path+"?"+qs, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.Binance.ApiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%s %s %d: %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

// apiKeyCall sends a request that needs the API key header but no
// signature (listen-key endpoints).
func (c *Client) apiKeyCall(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.Binance.RestURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.Binance.ApiKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("%s %s %d: %s", method, path, resp.StatusCode, string(body))
	}
	return body, nil
}

func (c *Client) sign(q string) string {
	mac := hmac.New(sha256.New, []byte(c.cfg.Binance.ApiSecret))
	mac.Write([]byte(q))
	return hex.EncodeToString(mac.Sum(nil))
}

func trim(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.8f", v), "0"), ".")
}
