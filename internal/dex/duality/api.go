package duality

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// TradePairID identifies a dex trade pair from the maker's side.
type TradePairID struct {
	MakerDenom string `json:"maker_denom"`
	TakerDenom string `json:"taker_denom"`
}

// TrancheRecord is one user's stake in a limit-order tranche as the LCD
// returns it. Tick index and shares are string-encoded integers.
type TrancheRecord struct {
	TradePairID          TradePairID `json:"trade_pair_id"`
	TickIndexTakerToMaker string     `json:"tick_index_taker_to_maker"`
	TrancheKey           string      `json:"tranche_key"`
	Address              string      `json:"address"`
	SharesOwned          string      `json:"shares_owned"`
	SharesWithdrawn      string      `json:"shares_withdrawn"`
	SharesCancelled      string      `json:"shares_cancelled"`
	OrderType            string      `json:"order_type"`
}

// TickIndex parses the string-encoded tick index.
func (r TrancheRecord) TickIndex() (int64, error) {
	return strconv.ParseInt(r.TickIndexTakerToMaker, 10, 64)
}

// API is a read-only client for the chain's /neutron/dex LCD endpoints.
type API struct {
	baseURL   string
	pageLimit int
	http      *http.Client
	log       *zap.Logger
}

func NewAPI(baseURL string, pageLimit int, log *zap.Logger) *API {
	if pageLimit <= 0 {
		pageLimit = 100
	}
	return &API{
		baseURL:   baseURL,
		pageLimit: pageLimit,
		http:      &http.Client{Timeout: 6 * time.Second},
		log:       log,
	}
}

type trancheUsersResp struct {
	LimitOrderTrancheUser []TrancheRecord `json:"limit_order_tranche_user"`
	Pagination            struct {
		NextKey string `json:"next_key"`
	} `json:"pagination"`
}

// LimitOrderTrancheUsers fetches one page of tranche-user records.
// pageKey is the opaque cursor from the previous page, empty for the
// first page. Returns the records and the next cursor (empty at end).
func (a *API) LimitOrderTrancheUsers(ctx context.Context, pageKey string) ([]TrancheRecord, string, error) {
	q := url.Values{}
	q.Set("pagination.limit", strconv.Itoa(a.pageLimit))
	q.Set("pagination.count_total", "false")
	if pageKey != "" {
		q.Set("pagination.key", pageKey)
	}
	endpoint := a.baseURL + "/neutron/dex/limit_order_tranche_user?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("tranche user query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return nil, "", fmt.Errorf("tranche user query %d: %s", resp.StatusCode, string(b))
	}
	var tr trancheUsersResp
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, "", fmt.Errorf("decode tranche users: %w", err)
	}
	return tr.LimitOrderTrancheUser, tr.Pagination.NextKey, nil
}

// AllLimitOrderTrancheUsers walks the pagination cursor and returns the
// full result set. Any page failure aborts the walk.
func (a *API) AllLimitOrderTrancheUsers(ctx context.Context) ([]TrancheRecord, error) {
	var all []TrancheRecord
	key := ""
	for {
		page, next, err := a.LimitOrderTrancheUsers(ctx, key)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == "" {
			return all, nil
		}
		key = next
	}
}
