package duality

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyBook signals a cycle with no usable liquidity on the pair.
// Callers skip the cycle rather than abort.
var ErrEmptyBook = errors.New("duality: order book empty")

// unfillableMarker is the dex module's rejection text when a limit
// order cannot execute at the requested price. Matching on the raw log
// is the only classification the chain offers.
const unfillableMarker = "cannot be filled at the specified LimitPrice"

// IsUnfillable reports whether an error is the dex module's
// unfillable-at-price rejection, the only retryable order failure.
func IsUnfillable(err error) bool {
	return err != nil && strings.Contains(err.Error(), unfillableMarker)
}

// OrderError is a terminal order-placement failure. Attempts counts
// broadcasts actually made; LastPrice is the limit price of the final
// attempt after any adjustments.
type OrderError struct {
	Attempts  int
	LastPrice float64
	Err       error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("duality: order failed after %d attempts (last price %v): %v",
		e.Attempts, e.LastPrice, e.Err)
}

func (e *OrderError) Unwrap() error { return e.Err }
