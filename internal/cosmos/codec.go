// Package cosmos implements the minimal Cosmos SDK transaction surface
// this bot needs: protobuf wire encoding of the tx envelope, direct-mode
// signing, and the LCD simulate/broadcast round-trip.
package cosmos

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Msg is a transaction message that knows its Any type URL and its
// protobuf wire encoding.
type Msg interface {
	TypeURL() string
	Marshal() []byte
}

// Coin is a cosmos.base.v1beta1.Coin.
type Coin struct {
	Denom  string
	Amount string
}

// Fee carries the fee coins and gas limit for a tx.
type Fee struct {
	Amount   []Coin
	GasLimit uint64
}

func (c Coin) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, c.Denom)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, c.Amount)
	return b
}

func appendAny(b []byte, field protowire.Number, typeURL string, value []byte) []byte {
	var any []byte
	any = protowire.AppendTag(any, 1, protowire.BytesType)
	any = protowire.AppendString(any, typeURL)
	any = protowire.AppendTag(any, 2, protowire.BytesType)
	any = protowire.AppendBytes(any, value)

	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, any)
}

// EncodeTxBody builds a cosmos.tx.v1beta1.TxBody with the given messages.
func EncodeTxBody(msgs []Msg, memo string) []byte {
	var b []byte
	for _, m := range msgs {
		b = appendAny(b, 1, m.TypeURL(), m.Marshal())
	}
	if memo != "" {
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendString(b, memo)
	}
	return b
}

const signModeDirect = 1

// EncodeAuthInfo builds a cosmos.tx.v1beta1.AuthInfo for a single
// secp256k1 signer in direct sign mode.
func EncodeAuthInfo(compressedPubKey []byte, sequence uint64, fee Fee) []byte {
	var pk []byte
	pk = protowire.AppendTag(pk, 1, protowire.BytesType)
	pk = protowire.AppendBytes(pk, compressedPubKey)

	var single []byte
	single = protowire.AppendTag(single, 1, protowire.VarintType)
	single = protowire.AppendVarint(single, signModeDirect)

	var mode []byte
	mode = protowire.AppendTag(mode, 1, protowire.BytesType)
	mode = protowire.AppendBytes(mode, single)

	var signer []byte
	signer = appendAny(signer, 1, "/cosmos.crypto.secp256k1.PubKey", pk)
	signer = protowire.AppendTag(signer, 2, protowire.BytesType)
	signer = protowire.AppendBytes(signer, mode)
	if sequence != 0 {
		signer = protowire.AppendTag(signer, 3, protowire.VarintType)
		signer = protowire.AppendVarint(signer, sequence)
	}

	var feeB []byte
	for _, c := range fee.Amount {
		feeB = protowire.AppendTag(feeB, 1, protowire.BytesType)
		feeB = protowire.AppendBytes(feeB, c.marshal())
	}
	if fee.GasLimit != 0 {
		feeB = protowire.AppendTag(feeB, 2, protowire.VarintType)
		feeB = protowire.AppendVarint(feeB, fee.GasLimit)
	}

	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, signer)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, feeB)
	return b
}

// EncodeSignDoc builds the cosmos.tx.v1beta1.SignDoc whose SHA-256 is
// signed in direct mode.
func EncodeSignDoc(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, bodyBytes)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, authInfoBytes)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendString(b, chainID)
	if accountNumber != 0 {
		b = protowire.AppendTag(b, 4, protowire.VarintType)
		b = protowire.AppendVarint(b, accountNumber)
	}
	return b
}

// EncodeTxRaw builds the broadcastable cosmos.tx.v1beta1.TxRaw.
func EncodeTxRaw(bodyBytes, authInfoBytes []byte, signatures [][]byte) []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, bodyBytes)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, authInfoBytes)
	for _, sig := range signatures {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}
	return b
}

// MsgExecuteContract is a cosmwasm.wasm.v1.MsgExecuteContract.
type MsgExecuteContract struct {
	Sender   string
	Contract string
	Msg      []byte // JSON execute payload
	Funds    []Coin
}

func (m MsgExecuteContract) TypeURL() string { return "/cosmwasm.wasm.v1.MsgExecuteContract" }

func (m MsgExecuteContract) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Sender)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.Contract)
	b = protowire.AppendTag(b, 3, protowire.BytesType)
	b = protowire.AppendBytes(b, m.Msg)
	for _, c := range m.Funds {
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendBytes(b, c.marshal())
	}
	return b
}
