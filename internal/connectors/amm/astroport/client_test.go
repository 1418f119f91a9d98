package astroport

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/token"
)

const testContract = "neutron1pairxyz"

func decodeQuery(t *testing.T, path string) map[string]any {
	t.Helper()
	parts := strings.Split(path, "/smart/")
	require.Len(t, parts, 2)
	raw, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var q map[string]any
	require.NoError(t, json.Unmarshal(raw, &q))
	return q
}

func TestGetPrice(t *testing.T) {
	ntrn := token.MustBySymbol(token.NTRN)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasPrefix(r.URL.Path, "/cosmwasm/wasm/v1/contract/"+testContract+"/smart/"))
		q := decodeQuery(t, r.URL.Path)
		if _, ok := q["simulation"]; ok {
			// 10 NTRN in, 4.5 USDC out
			json.NewEncoder(w).Encode(map[string]any{"data": simulationResp{ReturnAmount: "4500000"}})
			return
		}
		require.Contains(t, q, "reverse_simulation")
		json.NewEncoder(w).Encode(map[string]any{"data": reverseSimulationResp{OfferAmount: "4600000"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testContract, nil, "", zap.NewNop())
	sellPx, buyPx, err := c.GetPrice(context.Background(), ntrn, 10)
	require.NoError(t, err)
	assert.Equal(t, 0.45, sellPx)
	assert.Equal(t, 0.46, buyPx)
}

func TestGetPriceQueryFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
		w.Write([]byte("contract panicked"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testContract, nil, "", zap.NewNop())
	_, _, err := c.GetPrice(context.Background(), token.MustBySymbol(token.NTRN), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract panicked")
}

type recordingBroadcaster struct {
	msgs []cosmos.Msg
}

func (r *recordingBroadcaster) Simulate(ctx context.Context, msgs []cosmos.Msg) (uint64, error) {
	return 200000, nil
}

func (r *recordingBroadcaster) BroadcastSync(ctx context.Context, msgs []cosmos.Msg, fee cosmos.Fee) (*cosmos.TxResult, error) {
	r.msgs = append(r.msgs, msgs...)
	return &cosmos.TxResult{TxHash: "SWAPHASH"}, nil
}

func TestSwap(t *testing.T) {
	ntrn := token.MustBySymbol(token.NTRN)
	b := &recordingBroadcaster{}
	c := NewClient("http://unused", testContract, b, "neutron1trader", zap.NewNop())

	hash, err := c.Swap(context.Background(), ntrn, 10, cosmos.Fee{GasLimit: 300000})
	require.NoError(t, err)
	assert.Equal(t, "SWAPHASH", hash)

	require.Len(t, b.msgs, 1)
	exec := b.msgs[0].(cosmos.MsgExecuteContract)
	assert.Equal(t, "neutron1trader", exec.Sender)
	assert.Equal(t, testContract, exec.Contract)
	require.Len(t, exec.Funds, 1)
	assert.Equal(t, "untrn", exec.Funds[0].Denom)
	assert.Equal(t, "10000000", exec.Funds[0].Amount)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(exec.Msg, &payload))
	assert.Contains(t, payload, "swap")
}

func TestSwapReadOnlyClient(t *testing.T) {
	c := NewClient("http://unused", testContract, nil, "", zap.NewNop())
	_, err := c.Swap(context.Background(), token.MustBySymbol(token.NTRN), 1, cosmos.Fee{})
	assert.Error(t, err)
}

func TestSmartQueryEscapesPath(t *testing.T) {
	// base64 of multibyte payloads can contain '/', which must not be
	// read as a path separator by the LCD
	query := []byte(`{"pad":"ÿÿÿ"}`)
	encoded := base64.StdEncoding.EncodeToString(query)
	require.Contains(t, encoded, "/")

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testContract, nil, "", zap.NewNop())
	var out map[string]any
	require.NoError(t, c.smartQuery(context.Background(), query, &out))
	assert.True(t, strings.HasSuffix(gotPath, "/smart/"+url.PathEscape(encoded)))
}
