package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	BinanceBid = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_binance_bid",
		Help: "Binance futures best bid for the current pair",
	})

	BinanceAsk = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_binance_ask",
		Help: "Binance futures best ask for the current pair",
	})

	DexBid = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_dex_bid",
		Help: "Duality best bid for the current pair",
	})

	DexAsk = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_dex_ask",
		Help: "Duality best ask for the current pair",
	})

	AmmSellPx = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "arb_amm_sell_px",
		Help: "Astroport simulated sell price of the base token",
	})

	Opportunities = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_opportunities_total",
		Help: "Number of detected cross-venue opportunities",
	})

	TradesExecuted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_trades_executed_total",
		Help: "Number of opportunity executions attempted",
	})

	TradeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_trade_errors_total",
		Help: "Number of failed trade legs",
	})

	BookFetchErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_book_fetch_errors_total",
		Help: "Number of failed venue data fetches",
	})

	BookFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_book_fetch_latency_seconds",
		Help:    "Time to assemble one cross-venue snapshot",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		BinanceBid,
		BinanceAsk,
		DexBid,
		DexAsk,
		AmmSellPx,
		Opportunities,
		TradesExecuted,
		TradeErrors,
		BookFetchErrors,
		BookFetchLatency,
	)
}
