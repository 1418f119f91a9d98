package cosmos

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"go.uber.org/zap"
)

// ErrNotConnected is returned when an operation needs account state the
// client has not fetched yet. Callers must Connect first.
var ErrNotConnected = errors.New("cosmos: client not connected")

// TxResult is the broadcast acknowledgement from the node.
type TxResult struct {
	TxHash string
	Code   uint32
	RawLog string
}

// Broadcaster is the boundary the order-placement path depends on.
type Broadcaster interface {
	Simulate(ctx context.Context, msgs []Msg) (gasUsed uint64, err error)
	BroadcastSync(ctx context.Context, msgs []Msg, fee Fee) (*TxResult, error)
}

// TxClient signs and broadcasts transactions for a single account
// through a chain node's LCD endpoint. Construct once and pass down;
// it is not a process-wide singleton.
type TxClient struct {
	baseURL string
	chainID string
	priv    *secp256k1.PrivateKey
	address string
	http    *http.Client
	log     *zap.Logger

	connected     bool
	accountNumber uint64
	sequence      uint64
}

func NewTxClient(baseURL, chainID, address string, priv *secp256k1.PrivateKey, log *zap.Logger) *TxClient {
	return &TxClient{
		baseURL: baseURL,
		chainID: chainID,
		priv:    priv,
		address: address,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Address returns the signer's bech32 account address.
func (c *TxClient) Address() string { return c.address }

// Connect fetches the account number and sequence. Reconnection is not
// automatic; a failed operation leaves the client connected with its
// last known sequence.
func (c *TxClient) Connect(ctx context.Context) error {
	accNum, seq, err := c.fetchAccount(ctx)
	if err != nil {
		c.connected = false
		return fmt.Errorf("connect: %w", err)
	}
	c.accountNumber = accNum
	c.sequence = seq
	c.connected = true
	c.log.Info("connected to chain",
		zap.String("address", c.address),
		zap.Uint64("account_number", accNum),
		zap.Uint64("sequence", seq),
	)
	return nil
}

type accountResp struct {
	Account struct {
		AccountNumber string `json:"account_number"`
		Sequence      string `json:"sequence"`
	} `json:"account"`
}

func (c *TxClient) fetchAccount(ctx context.Context) (uint64, uint64, error) {
	endpoint := c.baseURL + "/cosmos/auth/v1beta1/accounts/" + c.address
	req, _ := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		b, _ := io.ReadAll(resp.Body)
		return 0, 0, fmt.Errorf("account query %d: %s", resp.StatusCode, string(b))
	}
	var ar accountResp
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return 0, 0, err
	}
	accNum, err := strconv.ParseUint(ar.Account.AccountNumber, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse account_number: %w", err)
	}
	seq, err := strconv.ParseUint(ar.Account.Sequence, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse sequence: %w", err)
	}
	return accNum, seq, nil
}

func (c *TxClient) buildSignedTx(msgs []Msg, fee Fee) []byte {
	body := EncodeTxBody(msgs, "")
	auth := EncodeAuthInfo(c.priv.PubKey().SerializeCompressed(), c.sequence, fee)
	doc := EncodeSignDoc(body, auth, c.chainID, c.accountNumber)
	digest := sha256.Sum256(doc)
	// SignCompact yields [header || r || s]; the chain wants r||s.
	sig := ecdsa.SignCompact(c.priv, digest[:], true)[1:]
	return EncodeTxRaw(body, auth, [][]byte{sig})
}

type simulateResp struct {
	GasInfo struct {
		GasUsed string `json:"gas_used"`
	} `json:"gas_info"`
}

// Simulate runs the tx through the node's simulation endpoint and
// returns the gas estimate.
func (c *TxClient) Simulate(ctx context.Context, msgs []Msg) (uint64, error) {
	if !c.connected {
		return 0, ErrNotConnected
	}
	txBytes := c.buildSignedTx(msgs, Fee{})
	payload, _ := json.Marshal(map[string]string{
		"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
	})
	var sr simulateResp
	if err := c.post(ctx, "/cosmos/tx/v1beta1/simulate", payload, &sr); err != nil {
		return 0, err
	}
	gas, err := strconv.ParseUint(sr.GasInfo.GasUsed, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse gas_used: %w", err)
	}
	return gas, nil
}

type broadcastResp struct {
	TxResponse struct {
		TxHash string `json:"txhash"`
		Code   uint32 `json:"code"`
		RawLog string `json:"raw_log"`
	} `json:"tx_response"`
}

// BroadcastSync signs and broadcasts in sync mode. A non-zero result
// code is surfaced as an error carrying the node's raw log so callers
// can classify the rejection.
func (c *TxClient) BroadcastSync(ctx context.Context, msgs []Msg, fee Fee) (*TxResult, error) {
	if !c.connected {
		return nil, ErrNotConnected
	}
	txBytes := c.buildSignedTx(msgs, fee)
	payload, _ := json.Marshal(map[string]string{
		"tx_bytes": base64.StdEncoding.EncodeToString(txBytes),
		"mode":     "BROADCAST_MODE_SYNC",
	})
	var br broadcastResp
	if err := c.post(ctx, "/cosmos/tx/v1beta1/txs", payload, &br); err != nil {
		return nil, err
	}
	res := &TxResult{
		TxHash: br.TxResponse.TxHash,
		Code:   br.TxResponse.Code,
		RawLog: br.TxResponse.RawLog,
	}
	if res.Code != 0 {
		return res, fmt.Errorf("tx rejected with code %d: %s", res.Code, res.RawLog)
	}
	c.sequence++
	return res, nil
}

func (c *TxClient) post(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 {
		return fmt.Errorf("%s %d: %s", path, resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
