package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/sim"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	seed := flag.Int64("seed", time.Now().UnixNano(), "price walk random seed")
	portfolioID := flag.String("portfolio", "demo", "portfolio id to create")
	cash := flag.String("cash", "10000", "starting cash for the portfolio")
	symbols := flag.String("symbols", "BTC-USD=65000,ETH-USD=3200", "comma-separated symbol=price pairs to stream")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	startingCash, err := decimal.NewFromString(*cash)
	if err != nil {
		slog.Error("invalid cash amount", "cash", *cash)
		os.Exit(1)
	}

	prices := sim.NewPriceGen(*seed, nil)
	for _, pair := range strings.Split(*symbols, ",") {
		sym, priceStr, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			slog.Error("invalid symbol pair, want SYMBOL=PRICE", "pair", pair)
			os.Exit(1)
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			slog.Error("invalid seed price", "symbol", sym, "price", priceStr)
			os.Exit(1)
		}
		prices.Seed(sym, price)
	}

	ledger := sim.NewLedger()
	ledger.CreatePortfolio(*portfolioID, startingCash)

	server := sim.NewServer(ledger, prices, sim.NewAdvisor(nil, prices.Current), nil)

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("simulator listening", "addr", *addr, "portfolio", *portfolioID, "symbols", prices.Symbols())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "err", err)
	}
}
