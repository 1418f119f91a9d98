// Package token holds the static token and pair registry for the venues
// the bot trades on, plus fixed-point amount helpers for chain queries.
package token

import (
	"fmt"
	"math/big"
	"strings"
)

// Symbol is a ticker symbol known to the registry.
type Symbol string

const (
	NTRN    Symbol = "NTRN"
	USDC    Symbol = "USDC"
	AXLUSDT Symbol = "AXLUSDT"
	ATOM    Symbol = "ATOM"
	DATOM   Symbol = "DATOM"
	TIA     Symbol = "TIA"
)

// Token is an immutable registry entry. Denom is the on-chain
// denomination used in Duality and bank queries.
type Token struct {
	Symbol   Symbol
	Name     string
	Denom    string
	Decimals int
}

// Pair is a tradable pair on Duality. PairID is the chain's canonical
// "<denom0><>denom1" pair identifier.
type Pair struct {
	Name   string
	Token0 Token
	Token1 Token
	PairID string
	Fee    int64
}

var tokens = []Token{
	{Symbol: NTRN, Name: "Neutron", Denom: "untrn", Decimals: 6},
	{Symbol: USDC, Name: "USD Coin", Denom: "ibc/B559A80D62249C8AA07A380E2A2BEA6E5CA9A6F079C912C3A9E9B494105E4F81", Decimals: 6},
	{Symbol: AXLUSDT, Name: "Axelar USDT", Denom: "ibc/57503D7852EF4E1899FE6D71C5E81D7C839F76580F86F21E39348FC2BC9D7CE2", Decimals: 6},
	{Symbol: ATOM, Name: "Cosmos Hub Atom", Denom: "ibc/C4CFF46FD6DE35CA4CF4CE031E643C8FDC9BA4B99AE598E9B0ED98FE3A2319F9", Decimals: 6},
	{Symbol: DATOM, Name: "Drop Atom", Denom: "factory/neutron1k6hr0f83e7un2wjf29cspk7j69jrnskk65k3ek2nj9dztrlzpj6q00rtsa/udatom", Decimals: 6},
	{Symbol: TIA, Name: "Celestia", Denom: "ibc/773B4D0A3CD667B2275D5A4A7A2F0909C0BA0F4059C0B9181E680DDF4965DCC7", Decimals: 6},
}

var pairs = buildPairs()

func buildPairs() []Pair {
	mk := func(a, b Symbol, fee int64) Pair {
		t0 := MustBySymbol(a)
		t1 := MustBySymbol(b)
		return Pair{
			Name:   string(a) + "-" + string(b),
			Token0: t0,
			Token1: t1,
			PairID: t0.Denom + "<>" + t1.Denom,
			Fee:    fee,
		}
	}
	return []Pair{
		mk(USDC, NTRN, 100),
		mk(ATOM, DATOM, 100),
		mk(TIA, USDC, 100),
	}
}

// BySymbol looks up a token by its symbol.
func BySymbol(s Symbol) (Token, bool) {
	for _, t := range tokens {
		if t.Symbol == s {
			return t, true
		}
	}
	return Token{}, false
}

// MustBySymbol panics on an unknown symbol. Use only for registry
// construction and config validation paths.
func MustBySymbol(s Symbol) Token {
	t, ok := BySymbol(s)
	if !ok {
		panic(fmt.Sprintf("token: unknown symbol %q", s))
	}
	return t
}

// PairByTokens finds a registered pair regardless of argument order.
func PairByTokens(a, b Symbol) (Pair, bool) {
	for _, p := range pairs {
		if (p.Token0.Symbol == a && p.Token1.Symbol == b) ||
			(p.Token0.Symbol == b && p.Token1.Symbol == a) {
			return p, true
		}
	}
	return Pair{}, false
}

// Pairs returns a copy of the pair registry.
func Pairs() []Pair {
	out := make([]Pair, len(pairs))
	copy(out, pairs)
	return out
}

// ScaleAmount converts a human-readable amount into a base-unit integer
// string, rounding half up at the last place.
func ScaleAmount(v float64, decimals int) string {
	f := new(big.Float).SetPrec(128).SetFloat64(v)
	mul := new(big.Float).SetPrec(128).SetInt(pow10(decimals))
	f.Mul(f, mul)
	f.Add(f, big.NewFloat(0.5))
	i, _ := f.Int(nil)
	return i.String()
}

// UnscaleAmount converts a base-unit integer string back into a float.
func UnscaleAmount(s string, decimals int) (float64, error) {
	s = strings.TrimSpace(s)
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, fmt.Errorf("token: invalid integer amount %q", s)
	}
	f := new(big.Float).SetPrec(128).SetInt(i)
	f.Quo(f, new(big.Float).SetPrec(128).SetInt(pow10(decimals)))
	out, _ := f.Float64()
	return out, nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
