package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ziptalk/proton-arb/internal/config"
	"github.com/ziptalk/proton-arb/internal/dex/duality"
	"github.com/ziptalk/proton-arb/internal/token"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	interval := flag.Duration("interval", 0, "refresh interval; 0 prints once and exits")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}
	base, ok := token.BySymbol(token.Symbol(cfg.Base))
	if !ok {
		panic("unknown base token: " + cfg.Base)
	}
	quote, ok := token.BySymbol(token.Symbol(cfg.Quote))
	if !ok {
		panic("unknown quote token: " + cfg.Quote)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
		<-ch
		cancel()
	}()

	api := duality.NewAPI(cfg.Chain.LCDURL, cfg.Duality.PageLimit, zap.NewNop())

	printBook(ctx, api, base, quote, cfg.Duality.Depth)
	if *interval <= 0 {
		return
	}

	t := time.NewTicker(*interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			printBook(ctx, api, base, quote, cfg.Duality.Depth)
		}
	}
}

func printBook(ctx context.Context, api *duality.API, base, quote token.Token, depth int) {
	book, err := api.FetchOrderBook(ctx, base, quote, depth)
	if err != nil {
		fmt.Println("book fetch error:", err)
		return
	}

	fmt.Printf("--- %s/%s %s ---\n", base.Symbol, quote.Symbol, time.Now().Format(time.RFC3339))
	for i := len(book.Asks) - 1; i >= 0; i-- {
		fmt.Printf("  ask %10.6f  x %14.4f\n", book.Asks[i].Price, book.Asks[i].Quantity)
	}
	for _, b := range book.Bids {
		fmt.Printf("  bid %10.6f  x %14.4f\n", b.Price, b.Quantity)
	}
	if book.Empty() {
		fmt.Println("  (empty book)")
	}
}
