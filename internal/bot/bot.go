package bot

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/connectors/amm/astroport"
	"github.com/ziptalk/proton-arb/internal/connectors/cex/binance"
	"github.com/ziptalk/proton-arb/internal/connectors/redisfeed"
	"github.com/ziptalk/proton-arb/internal/connectors/streams"
	"github.com/ziptalk/proton-arb/internal/cosmos"
	"github.com/ziptalk/proton-arb/internal/dash"
	"github.com/ziptalk/proton-arb/internal/detector"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	"github.com/ziptalk/proton-arb/internal/execution"
	"github.com/ziptalk/proton-arb/internal/keys"
	"github.com/ziptalk/proton-arb/internal/marketdata"
	"github.com/ziptalk/proton-arb/internal/metrics"
	"github.com/ziptalk/proton-arb/internal/risk"
	"github.com/ziptalk/proton-arb/internal/storage"
	"github.com/ziptalk/proton-arb/internal/storage/postgres"
	"github.com/ziptalk/proton-arb/internal/token"
	"github.com/ziptalk/proton-arb/internal/types"
)

// Bot manages the application's lifecycle and components.
type Bot struct {
	cfg     *config.Config
	log     *zap.Logger
	streams *streams.Registry
}

func New(cfg *config.Config, log *zap.Logger) *Bot {
	return &Bot{
		cfg:     cfg,
		log:     log,
		streams: streams.NewRegistry(),
	}
}

func (b *Bot) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// graceful shutdown
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigs
		b.log.Warn("received signal, shutting down...")
		cancel()
	}()

	metrics.Serve(ctx, b.cfg.Metrics.ListenAddr, nil, b.log)

	base, ok := token.BySymbol(token.Symbol(b.cfg.Base))
	if !ok {
		b.log.Fatal("unknown base token", zap.String("symbol", b.cfg.Base))
	}
	quote, ok := token.BySymbol(token.Symbol(b.cfg.Quote))
	if !ok {
		b.log.Fatal("unknown quote token", zap.String("symbol", b.cfg.Quote))
	}

	cexREST, err := binance.NewClient(b.cfg, b.log)
	if err != nil {
		b.log.Fatal("binance client init failed", zap.Error(err))
	}

	book := NewBookCache()
	ws := binance.NewWS(b.cfg.Binance.WsURL, b.log)
	tickers, err := ws.SubscribeBookTicker(ctx, []string{b.cfg.Pair})
	if err != nil {
		b.log.Fatal("failed to subscribe to book ticker", zap.Error(err))
	}
	b.streams.Register(streams.StreamKey{
		Venue:  types.VenueBinance,
		Symbol: b.cfg.Pair,
		Kind:   streams.KindBookTicker,
	}, ws)
	defer func() {
		if err := b.streams.CloseAll(); err != nil {
			b.log.Warn("stream shutdown", zap.Error(err))
		}
	}()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-tickers:
				book.Set(t.Symbol, t.Bid, t.Ask)
			}
		}
	}()
	b.log.Info("subscribed to WS book ticker", zap.String("symbol", b.cfg.Pair))

	missing := waitWSBootstrap(ctx, book, []string{b.cfg.Pair}, 5*time.Second, b.log)
	if len(missing) > 0 {
		b.log.Warn("WS bootstrap timeout, continue without CEX top of book",
			zap.Strings("symbols_missing", missing))
	} else {
		b.log.Info("WS book ready")
	}
	cex := &wsCEX{book: book}

	api := duality.NewAPI(b.cfg.Chain.LCDURL, b.cfg.Duality.PageLimit, b.log)

	var (
		tx      *cosmos.TxClient
		address = b.cfg.Chain.AccountAddress
	)
	if b.cfg.Chain.Mnemonic != "" {
		priv, err := keys.FromMnemonic(b.cfg.Chain.Mnemonic)
		if err != nil {
			b.log.Fatal("mnemonic derivation failed", zap.Error(err))
		}
		if address == "" {
			address, err = keys.Address(priv.PubKey(), b.cfg.Chain.Bech32Prefix)
			if err != nil {
				b.log.Fatal("address derivation failed", zap.Error(err))
			}
		}
		tx = cosmos.NewTxClient(b.cfg.Chain.LCDURL, b.cfg.Chain.ChainID, address, priv, b.log)
		if err := tx.Connect(ctx); err != nil {
			b.log.Fatal("chain account lookup failed", zap.Error(err))
		}
		b.log.Info("signer ready", zap.String("address", address))
	} else if !b.cfg.DryRun && b.cfg.Strategy != "maker" {
		b.log.Fatal("MNEMONIC is required for live on-chain execution")
	}

	var amm *astroport.Client
	if contract := b.astroportContract(); contract != "" {
		var bc cosmos.Broadcaster
		if tx != nil {
			bc = tx
		}
		amm = astroport.NewClient(b.cfg.Chain.LCDURL, contract, bc, address, b.log)
		b.log.Info("astroport pair wired", zap.String("contract", contract))
	}

	store := b.openStorage(ctx)
	defer store.Close()

	var sink marketdata.SnapshotSink
	if b.cfg.Redis.Addr != "" {
		pub := redisfeed.NewPublisher(b.cfg)
		defer pub.Close()
		sink = pub
	}

	var board *dash.Store
	if b.cfg.Dash.ListenAddr != "" {
		board = dash.NewStore()
		go dash.StartHTTP(ctx, board, b.cfg.Dash.ListenAddr)
	}

	if b.cfg.Strategy == "maker" {
		maker := NewMaker(b.cfg, cexREST, ws, api, base, quote, b.log)
		maker.Run(ctx)
		return
	}

	b.runPipeline(ctx, base, quote, address, cexREST, cex, api, amm, tx, store, sink, board)

	<-ctx.Done()
	b.log.Info("arb-bot finished")
}

func (b *Bot) runPipeline(
	ctx context.Context,
	base, quote token.Token,
	address string,
	cexREST *binance.Client,
	cex marketdata.CexSource,
	api *duality.API,
	amm *astroport.Client,
	tx *cosmos.TxClient,
	store storage.Storage,
	sink marketdata.SnapshotSink,
	board *dash.Store,
) {
	var ammSrc marketdata.AmmSource
	if amm != nil {
		ammSrc = amm
	}
	runner := marketdata.NewRunner(b.cfg, base, quote, cex, api, ammSrc, store, sink, b.log)

	mdCh := make(chan types.Snapshot, 64)
	detCh := make(chan types.Snapshot, 64)
	oppCh := make(chan types.Opportunity, 64)

	go runner.Run(ctx, mdCh)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-mdCh:
				if board != nil {
					board.Update(snap)
				}
				select {
				case detCh <- snap:
				default:
					b.log.Warn("detector channel full; dropping snapshot")
				}
			}
		}
	}()
	go detector.Run(ctx, b.cfg, detCh, oppCh, b.log)

	placer := duality.NewPlacer(tx, b.cfg.Chain.GasPrice, b.cfg.Chain.GasDenom, b.cfg.Chain.GasAdjustment, b.log)
	riskEng := risk.NewEngine(b.cfg)
	exec := execution.NewExecutor(b.cfg, base, quote, address, cexREST, placer, amm, riskEng, b.log)
	go exec.Run(ctx, oppCh)

	b.log.Info("pipeline started",
		zap.String("pair", b.cfg.Pair),
		zap.String("strategy", b.cfg.Strategy),
		zap.Bool("dry_run", b.cfg.DryRun),
	)
}

// astroportContract resolves the pair contract for the configured pair,
// accepting either token order in the config key.
func (b *Bot) astroportContract() string {
	if c := b.cfg.Astroport.Contracts[b.cfg.Base+"-"+b.cfg.Quote]; c != "" {
		return c
	}
	return b.cfg.Astroport.Contracts[b.cfg.Quote+"-"+b.cfg.Base]
}

func (b *Bot) openStorage(ctx context.Context) storage.Storage {
	if dsn := b.cfg.Storage.PostgresDSN; dsn != "" {
		st, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			b.log.Fatal("postgres init failed", zap.Error(err))
		}
		b.log.Info("price history: postgres")
		return st
	}
	if path := b.cfg.Storage.JSONLPath; path != "" {
		b.log.Info("price history: jsonl", zap.String("path", path))
		return storage.NewJsonlStorage(path)
	}
	return storage.Nop{}
}

type BookCache struct {
	mu   sync.RWMutex
	bids map[string]float64
	asks map[string]float64
}

func NewBookCache() *BookCache {
	return &BookCache{
		bids: make(map[string]float64, 8),
		asks: make(map[string]float64, 8),
	}
}

func (bc *BookCache) Set(symbol string, bid, ask float64) {
	bc.mu.Lock()
	bc.bids[symbol] = bid
	bc.asks[symbol] = ask
	bc.mu.Unlock()
}

func (bc *BookCache) BestBidAsk(symbol string) (float64, float64, error) {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	bid := bc.bids[symbol]
	ask := bc.asks[symbol]
	if bid == 0 || ask == 0 {
		return 0, 0, fmt.Errorf("empty book for %s", symbol)
	}
	return bid, ask, nil
}

func (bc *BookCache) Has(symbol string) bool {
	bc.mu.RLock()
	_, ok1 := bc.bids[symbol]
	_, ok2 := bc.asks[symbol]
	bc.mu.RUnlock()
	return ok1 && ok2
}

func waitWSBootstrap(ctx context.Context, book *BookCache, symbols []string, timeout time.Duration, log *zap.Logger) []string {
	deadline := time.Now().Add(timeout)
	missing := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		missing[s] = struct{}{}
	}
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for {
		for s := range missing {
			if book.Has(s) {
				delete(missing, s)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			out := make([]string, 0, len(missing))
			for s := range missing {
				out = append(out, s)
			}
			sort.Strings(out)
			return out
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

// wsCEX serves top-of-book reads from the WS-fed cache so the poll
// loop never hits the REST rate limit.
type wsCEX struct{ book *BookCache }

func (w *wsCEX) BestBidAsk(_ context.Context, symbol string) (float64, float64, error) {
	return w.book.BestBidAsk(symbol)
}

func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.MessageKey = "msg"
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	return cfg.Build()
}
