// Package astroport talks to Astroport pair contracts on Neutron:
// price discovery through simulation smart queries and swaps through
// the wasm execute message.
package astroport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/token"
)

// Client queries and swaps against a single pair contract.
type Client struct {
	lcdURL   string
	contract string
	tx       cosmos.Broadcaster
	address  string
	http     *http.Client
	log      *zap.Logger
}

// NewClient builds an Astroport client for one pair contract. tx may
// be nil for a read-only client.
func NewClient(lcdURL, contract string, tx cosmos.Broadcaster, address string, log *zap.Logger) *Client {
	return &Client{
		lcdURL:   lcdURL,
		contract: contract,
		tx:       tx,
		address:  address,
		http:     &http.Client{Timeout: 6 * time.Second},
		log:      log,
	}
}

type assetInfo struct {
	NativeToken struct {
		Denom string `json:"denom"`
	} `json:"native_token"`
}

type asset struct {
	Info   assetInfo `json:"info"`
	Amount string    `json:"amount"`
}

func nativeAsset(t token.Token, amount float64) asset {
	var a asset
	a.Info.NativeToken.Denom = t.Denom
	a.Amount = token.ScaleAmount(amount, t.Decimals)
	return a
}

type simulationResp struct {
	ReturnAmount string `json:"return_amount"`
}

type reverseSimulationResp struct {
	OfferAmount string `json:"offer_amount"`
}

// GetPrice runs the pair's simulation both ways for the given offer
// size and returns the per-unit sell and buy prices of the offer
// token, rounded to four decimals.
func (c *Client) GetPrice(ctx context.Context, offer token.Token, amount float64) (sellPx, buyPx float64, err error) {
	a := nativeAsset(offer, amount)

	simQuery, _ := json.Marshal(map[string]any{
		"simulation": map[string]any{"offer_asset": a},
	})
	revQuery, _ := json.Marshal(map[string]any{
		"reverse_simulation": map[string]any{"ask_asset": a},
	})

	var sim simulationResp
	if err := c.smartQuery(ctx, simQuery, &sim); err != nil {
		return 0, 0, fmt.Errorf("simulation: %w", err)
	}
	var rev reverseSimulationResp
	if err := c.smartQuery(ctx, revQuery, &rev); err != nil {
		return 0, 0, fmt.Errorf("reverse simulation: %w", err)
	}

	ret, err := token.UnscaleAmount(sim.ReturnAmount, offer.Decimals)
	if err != nil {
		return 0, 0, fmt.Errorf("simulation return_amount: %w", err)
	}
	off, err := token.UnscaleAmount(rev.OfferAmount, offer.Decimals)
	if err != nil {
		return 0, 0, fmt.Errorf("reverse simulation offer_amount: %w", err)
	}
	return round4(ret / amount), round4(off / amount), nil
}

// Swap executes the pair's swap with the offered amount as funds and
// returns the tx hash.
func (c *Client) Swap(ctx context.Context, offer token.Token, amount float64, fee cosmos.Fee) (string, error) {
	if c.tx == nil {
		return "", fmt.Errorf("astroport: client is read-only")
	}
	a := nativeAsset(offer, amount)
	execMsg, _ := json.Marshal(map[string]any{
		"swap": map[string]any{"offer_asset": a},
	})
	msg := cosmos.MsgExecuteContract{
		Sender:   c.address,
		Contract: c.contract,
		Msg:      execMsg,
		Funds:    []cosmos.Coin{{Denom: offer.Denom, Amount: a.Amount}},
	}
	res, err := c.tx.BroadcastSync(ctx, []cosmos.Msg{msg}, fee)
	if err != nil {
		return "", fmt.Errorf("swap: %w", err)
	}
	c.log.Info("astroport swap broadcast",
		zap.String("offer", string(offer.Symbol)),
		zap.Float64("amount", amount),
		zap.String("tx_hash", res.TxHash),
	)
	return res.TxHash, nil
}

type smartQueryResp struct {
	Data json.RawMessage `json:"data"`
}

func (c *Client) smartQuery(ctx context.Context, query []byte, out any) error {
	endpoint := c.lcdURL + "/cosmwasm/wasm/v1/contract/" + c.contract + "/smart/" +
		url.PathEscape(base64.StdEncoding.EncodeToString(query))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("smart query %d: %s", resp.StatusCode, string(b))
	}
	var sq smartQueryResp
	if err := json.NewDecoder(resp.Body).Decode(&sq); err != nil {
		return err
	}
	return json.Unmarshal(sq.Data, out)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
