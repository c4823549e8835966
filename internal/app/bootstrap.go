package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/api"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/feed"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/infra"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/portfolio"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/storage"
	"github.com/Jalter-ego/react-project-criptoactivos-sub000/internal/trade"
)

// App is the assembled client: transport, snapshot store, coordinator and
// their shared configuration, built once at startup and torn down in
// reverse order by Close.
type App struct {
	Config      *infra.Config
	Client      *api.Client
	Transport   *feed.Transport
	Store       *portfolio.Store
	Coordinator *trade.Coordinator
	Journal     *storage.Journal
}

// New loads configuration and wires every component. A .env file, when
// present, seeds the environment before the config file is read, so env
// overrides keep working in development.
func New(configPath string) (*App, error) {
	if err := godotenv.Load(); err == nil {
		slog.Debug("loaded environment from .env")
	}

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(infra.NewLogger(cfg))
	slog.Info("starting", "app", cfg.App.Name, "version", cfg.App.Version, "portfolio", cfg.Portfolio.ID)

	var journal *storage.Journal
	if cfg.Journal.Path != "" {
		journal, err = storage.OpenJournal(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
	}

	client := api.NewClient(cfg.API.BaseURL)
	transport := feed.NewTransport(cfg.API.FeedWSURL)
	store := portfolio.NewStore(client)

	return &App{
		Config:    cfg,
		Client:    client,
		Transport: transport,
		Store:     store,
		Journal:   journal,
	}, nil
}

// Start connects the feed, subscribes the watch symbols, loads the initial
// snapshot and builds the coordinator for the configured portfolio. The
// returned subscriptions are keyed by symbol; the first watch symbol is the
// coordinator's price source.
func (a *App) Start(ctx context.Context) (map[string]*feed.Subscription, error) {
	a.Transport.Start(ctx)

	subs := make(map[string]*feed.Subscription, len(a.Config.Watch.Symbols))
	for _, sym := range a.Config.Watch.Symbols {
		subs[sym] = a.Transport.Subscribe(sym)
	}

	if err := a.Store.Load(ctx, a.Config.Portfolio.ID); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	a.Coordinator = trade.New(trade.Config{
		PortfolioID:  a.Config.Portfolio.ID,
		PollInterval: time.Duration(a.Config.Feedback.PollIntervalMS) * time.Millisecond,
		Window:       time.Duration(a.Config.Feedback.WindowMS) * time.Millisecond,
	}, a.Store, subs[a.Config.Watch.Symbols[0]], a.Client, a.Client, a.Journal, nil)

	return subs, nil
}

// Close releases held resources.
func (a *App) Close() {
	a.Transport.Stop()
	if a.Journal != nil {
		if err := a.Journal.Close(); err != nil {
			slog.Warn("failed to close journal", "err", err)
		}
	}
}
