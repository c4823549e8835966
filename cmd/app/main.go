package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/app"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/domain"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	demoAmount := flag.String("demo-buy", "", "submit one market buy for this quote amount of the first watch symbol, then wait out the feedback window")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(*configPath)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	subs, err := a.Start(ctx)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}

	for sym, sub := range subs {
		sub.OnTick(func(tick domain.PriceTick) {
			slog.Debug("tick", "symbol", tick.Symbol, "price", tick.Price.String())
		})
		slog.Info("watching", "symbol", sym)
	}

	if *demoAmount != "" {
		runDemo(ctx, a, *demoAmount)
		return
	}

	<-ctx.Done()
	slog.Info("shutting down")
}

// runDemo executes one scripted trade end to end and prints the advisory
// feedback it produced.
func runDemo(ctx context.Context, a *app.App, amount string) {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		slog.Error("invalid demo amount", "amount", amount)
		os.Exit(1)
	}
	symbol := a.Config.Watch.Symbols[0]

	res, err := a.Coordinator.Confirm(ctx, domain.TradeIntent{
		Side:   domain.SideBuy,
		Symbol: symbol,
		Amount: amt,
	})
	if err != nil {
		slog.Error("trade failed", "err", err)
		os.Exit(1)
	}

	slog.Info("trade confirmed",
		"order", res.Order.ID,
		"quantity", res.Order.Quantity.String(),
		"price", res.Order.Price.String(),
		"cash", res.Snapshot.Cash.String())

	select {
	case <-res.Feedback.Done():
	case <-ctx.Done():
		res.Feedback.Close()
	}

	for _, ev := range res.Feedback.Events() {
		slog.Info("feedback", "kind", string(ev.Kind), "message", ev.Message)
	}
}
