package duality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickToPrice(t *testing.T) {
	assert.Equal(t, 1.0, TickToPrice(0))
	assert.InDelta(t, 1.0001, TickToPrice(1), 1e-12)
	assert.InDelta(t, math.Pow(1.0001, 100), TickToPrice(100), 1e-9)
}

func TestTickToPriceReciprocity(t *testing.T) {
	for _, tick := range []int64{1, 17, 230, 50000} {
		p := TickToPrice(tick)
		q := TickToPrice(-tick)
		assert.InEpsilon(t, 1/p, q, 1e-9, "tick %d", tick)
	}
}

func TestTickToPriceExtremes(t *testing.T) {
	assert.True(t, math.IsInf(TickToPrice(math.MaxInt64), 1))
	assert.Equal(t, 0.0, TickToPrice(math.MinInt64))
}
