// Package duality speaks to the Neutron Duality dex module: order-book
// aggregation from limit-order tranches and limit-order placement with
// bounded price-walk retries.
package duality

import "math"

// tickBase is the dex price lattice base: p(i) = 1.0001^i.
const tickBase = 1.0001

// TickToPrice converts a tick index into a price. The full int64 range
// is accepted; values beyond float64's exponent range come back as +Inf
// or 0 and flow through the aggregator unmodified.
func TickToPrice(tick int64) float64 {
	return math.Pow(tickBase, float64(tick))
}
