// Package risk holds the single gate trades pass before execution.
package risk

import (
	"github.com/ziptalk/proton-arb/internal/config"
)

type Engine struct{ cfg *config.Config }

func NewEngine(cfg *config.Config) *Engine { return &Engine{cfg: cfg} }

// AllowTrade applies the spread threshold once more at execution time;
// the snapshot may be stale by the time the opportunity arrives.
func (e *Engine) AllowTrade(spread float64) bool {
	return spread > e.cfg.Trade.Threshold
}
