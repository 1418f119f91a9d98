package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBySymbol(t *testing.T) {
	ntrn, ok := BySymbol(NTRN)
	require.True(t, ok)
	assert.Equal(t, "untrn", ntrn.Denom)
	assert.Equal(t, 6, ntrn.Decimals)

	_, ok = BySymbol("DOGE")
	assert.False(t, ok)
}

func TestPairByTokensUnordered(t *testing.T) {
	p1, ok := PairByTokens(USDC, NTRN)
	require.True(t, ok)
	p2, ok := PairByTokens(NTRN, USDC)
	require.True(t, ok)
	assert.Equal(t, p1.PairID, p2.PairID)
	assert.Contains(t, p1.PairID, "<>")

	_, ok = PairByTokens(NTRN, TIA)
	assert.False(t, ok)
}

func TestScaleAmount(t *testing.T) {
	assert.Equal(t, "1000000", ScaleAmount(1, 6))
	assert.Equal(t, "1", ScaleAmount(0.000001, 6))
	assert.Equal(t, "1000000000000000000", ScaleAmount(1e12, 6))
	assert.Equal(t, "1500000", ScaleAmount(1.5, 6))
	assert.Equal(t, "0", ScaleAmount(0, 6))
}

func TestAmountRoundTrip(t *testing.T) {
	for _, raw := range []string{"1", "42", "1000000", "999999999999", "1000000000000000000"} {
		v, err := UnscaleAmount(raw, 6)
		require.NoError(t, err)
		assert.Equal(t, raw, ScaleAmount(v, 6), "round-trip of %s", raw)
	}
}

func TestUnscaleAmountInvalid(t *testing.T) {
	_, err := UnscaleAmount("12.5", 6)
	assert.Error(t, err)
	_, err = UnscaleAmount("", 6)
	assert.Error(t, err)
}
