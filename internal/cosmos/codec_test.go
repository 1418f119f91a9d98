package cosmos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// consumeFields flattens one level of a wire message into fieldnum->raw values.
func consumeFields(t *testing.T, b []byte) map[protowire.Number][][]byte {
	t.Helper()
	out := make(map[protowire.Number][][]byte)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		require.Positive(t, n)
		b = b[n:]
		switch typ {
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			require.Positive(t, n)
			out[num] = append(out[num], v)
			b = b[n:]
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			require.Positive(t, n)
			out[num] = append(out[num], protowire.AppendVarint(nil, v))
			b = b[n:]
		default:
			t.Fatalf("unexpected wire type %v", typ)
		}
	}
	return out
}

func TestEncodeTxBody(t *testing.T) {
	msg := MsgExecuteContract{
		Sender:   "neutron1sender",
		Contract: "neutron1contract",
		Msg:      []byte(`{"swap":{}}`),
		Funds:    []Coin{{Denom: "untrn", Amount: "1000000"}},
	}
	body := EncodeTxBody([]Msg{msg}, "memo!")

	fields := consumeFields(t, body)
	require.Len(t, fields[1], 1, "one Any message")
	assert.Equal(t, "memo!", string(fields[2][0]))

	any := consumeFields(t, fields[1][0])
	assert.Equal(t, "/cosmwasm.wasm.v1.MsgExecuteContract", string(any[1][0]))

	inner := consumeFields(t, any[2][0])
	assert.Equal(t, "neutron1sender", string(inner[1][0]))
	assert.Equal(t, "neutron1contract", string(inner[2][0]))
	assert.Equal(t, `{"swap":{}}`, string(inner[3][0]))
	require.Len(t, inner[5], 1)
	coin := consumeFields(t, inner[5][0])
	assert.Equal(t, "untrn", string(coin[1][0]))
	assert.Equal(t, "1000000", string(coin[2][0]))
}

func TestEncodeAuthInfo(t *testing.T) {
	pub := []byte{0x02, 0x01, 0x02, 0x03}
	auth := EncodeAuthInfo(pub, 7, Fee{Amount: []Coin{{Denom: "untrn", Amount: "2103"}}, GasLimit: 520000})

	fields := consumeFields(t, auth)
	require.Len(t, fields[1], 1)
	require.Len(t, fields[2], 1)

	signer := consumeFields(t, fields[1][0])
	seq, _ := protowire.ConsumeVarint(signer[3][0])
	assert.Equal(t, uint64(7), seq)

	pkAny := consumeFields(t, signer[1][0])
	assert.Equal(t, "/cosmos.crypto.secp256k1.PubKey", string(pkAny[1][0]))

	fee := consumeFields(t, fields[2][0])
	gas, _ := protowire.ConsumeVarint(fee[2][0])
	assert.Equal(t, uint64(520000), gas)
}

func TestEncodeSignDocAndTxRaw(t *testing.T) {
	body := []byte{0xde, 0xad}
	auth := []byte{0xbe, 0xef}

	doc := consumeFields(t, EncodeSignDoc(body, auth, "neutron-1", 42))
	assert.Equal(t, body, doc[1][0])
	assert.Equal(t, auth, doc[2][0])
	assert.Equal(t, "neutron-1", string(doc[3][0]))
	accNum, _ := protowire.ConsumeVarint(doc[4][0])
	assert.Equal(t, uint64(42), accNum)

	sig := []byte{0x01, 0x02}
	raw := consumeFields(t, EncodeTxRaw(body, auth, [][]byte{sig}))
	assert.Equal(t, body, raw[1][0])
	assert.Equal(t, auth, raw[2][0])
	require.Len(t, raw[3], 1)
	assert.Equal(t, sig, raw[3][0])
}
