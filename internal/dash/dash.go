package dash

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ziptalk/proton-arb/internal/types"
)

// Row is one dashboard line per pair.
type Row struct {
	Pair string `json:"pair"`

	BinanceBid float64 `json:"binanceBid"`
	BinanceAsk float64 `json:"binanceAsk"`

	DexBid float64 `json:"dexBid"`
	DexAsk float64 `json:"dexAsk"`

	AmmSellPx float64 `json:"ammSellPx"`
	AmmBuyPx  float64 `json:"ammBuyPx"`

	// Relative edges: positive means the named direction is in profit
	// before fees.
	SpreadDexToCex float64 `json:"spreadDexToCex"`
	SpreadCexToDex float64 `json:"spreadCexToDex"`

	TS int64 `json:"ts"`
}

type Store struct {
	mu   sync.RWMutex
	rows map[string]Row
}

func NewStore() *Store { return &Store{rows: make(map[string]Row, 16)} }

func (s *Store) Update(snap types.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[snap.Pair] = Row{
		Pair:           snap.Pair,
		BinanceBid:     snap.BinanceBid,
		BinanceAsk:     snap.BinanceAsk,
		DexBid:         snap.DexBid,
		DexAsk:         snap.DexAsk,
		AmmSellPx:      snap.AmmSellPx,
		AmmBuyPx:       snap.AmmBuyPx,
		SpreadDexToCex: spreadDexToCex(snap.BinanceBid, snap.DexAsk),
		SpreadCexToDex: spreadCexToDex(snap.DexBid, snap.BinanceAsk),
		TS:             time.Now().UnixMilli(),
	}
}

func spreadDexToCex(cexBid, dexAsk float64) float64 {
	if cexBid > 0 && dexAsk > 0 {
		return cexBid/dexAsk - 1
	}
	return 0
}

func spreadCexToDex(dexBid, cexAsk float64) float64 {
	if dexBid > 0 && cexAsk > 0 {
		return dexBid/cexAsk - 1
	}
	return 0
}

func (s *Store) List() []Row {
	s.mu.RLock()
	out := make([]Row, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Pair < out[j].Pair })
	return out
}

func StartHTTP(ctx context.Context, s *Store, addr string) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/dash", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.List())
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexHTML)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           withCORS(mux),
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() { <-ctx.Done(); _ = srv.Close() }()

	log.Printf("[dash] listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !strings.Contains(err.Error(), "Server closed") {
		log.Printf("[dash] http server error: %v", err)
	}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const indexHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1"/>
  <title>Binance ↔ Duality Monitor</title>
  <style>
    :root { --bg:#f8fafc; --card:#fff; --muted:#6b7280; --chip:#e5e7eb; }
    body{margin:0;background:var(--bg);font:14px/1.4 ui-sans-serif,system-ui,-apple-system,Segoe UI,Roboto,Ubuntu; color:#111827;}
    .wrap{max-width:1080px;margin:24px auto;padding:0 16px;}
    .hdr{display:flex;align-items:flex-end;justify-content:space-between;margin-bottom:12px;}
    .state{font-size:12px;padding:2px 8px;border-radius:999px;background:#d1fae5;color:#065f46;}
    table{width:100%;border-collapse:collapse;background:var(--card);border-radius:16px;overflow:hidden;box-shadow:0 10px 30px rgba(0,0,0,.06);}
    thead{background:#f3f4f6;} th,td{padding:12px 14px;text-align:left;} tbody tr{border-top:1px solid #f3f4f6;}
    .chip{display:inline-block;font-size:12px;padding:2px 8px;background:var(--chip);border-radius:999px;color:#374151;}
    .pct{padding:2px 8px;border-radius:8px;font-size:12px;}
    .pct.ok{background:#dcfce7;color:#166534;} .pct.bad{background:#fee2e2;color:#991b1b;} .pct.dim{background:#f3f4f6;color:#6b7280;}
    .sub{color:var(--muted);font-size:12px;margin:0;}
  </style>
</head>
<body>
<div class="wrap">
  <div class="hdr">
    <div>
      <h1 style="margin:0;font-size:22px;font-weight:600">Binance ↔ Duality Monitor</h1>
      <p class="sub">Binance USDM futures vs Neutron Duality / Astroport</p>
    </div>
    <div id="state" class="state">live</div>
  </div>
  <table>
    <thead>
      <tr>
        <th>Pair</th>
        <th>Binance (bid/ask)</th><th>Duality (bid/ask)</th><th>Astroport (sell/buy px)</th>
        <th>Spread DEX→CEX</th><th>Spread CEX→DEX</th>
        <th style="text-align:right">Updated</th>
      </tr>
    </thead>
    <tbody id="rows"></tbody>
  </table>
  <p class="sub" style="margin-top:8px">Spreads: DEX→CEX = (Binance bid / Duality ask) − 1, CEX→DEX = (Duality bid / Binance ask) − 1.</p>
</div>
<script>
  function px(x){ return (x==null||isNaN(x)||x===0) ? '—' : Number(x).toLocaleString(undefined,{maximumFractionDigits:6}); }
  function pct(x){ return (x==null||isNaN(x)||x===0) ? '—' : ((x*100).toFixed(3)+'%'); }
  function rowHTML(r){
    var bestD2C = Math.abs(r.spreadDexToCex||0) >= Math.abs(r.spreadCexToDex||0);
    var d2cPos = (r.spreadDexToCex||0) > 0;
    var c2dPos = (r.spreadCexToDex||0) > 0;
    return '<tr>'
      + '<td><strong>' + (r.pair||'') + '</strong></td>'
      + '<td>' + px(r.binanceBid) + ' <span style="color:#9CA3AF">/</span> ' + px(r.binanceAsk) + '</td>'
      + '<td>' + px(r.dexBid) + ' <span style="color:#9CA3AF">/</span> ' + px(r.dexAsk) + '</td>'
      + '<td>' + px(r.ammSellPx) + ' <span style="color:#9CA3AF">/</span> ' + px(r.ammBuyPx) + '</td>'
      + '<td><span class="pct ' + (bestD2C ? (d2cPos?'ok':'bad'):'dim') + '">' + pct(r.spreadDexToCex) + '</span></td>'
      + '<td><span class="pct ' + (!bestD2C ? (c2dPos?'ok':'bad'):'dim') + '">' + pct(r.spreadCexToDex) + '</span></td>'
      + '<td style="text-align:right;color:#6B7280;font-size:12px">' + new Date(r.ts||Date.now()).toLocaleTimeString() + '</td>'
      + '</tr>';
  }
  async function tick(){
    try{
      var res = await fetch('/api/dash', {cache:'no-store'});
      if(!res.ok) throw new Error('status '+res.status);
      var data = await res.json();
      document.getElementById('state').textContent = 'live';
      document.getElementById('rows').innerHTML = data.map(rowHTML).join('');
    }catch(e){
      document.getElementById('state').textContent = 'demo';
    }
  }
  tick(); setInterval(tick, 1000);
</script>
</body>
</html>`
