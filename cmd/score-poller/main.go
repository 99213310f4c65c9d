package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bookieverse/platform/internal/guard"
	"github.com/bookieverse/platform/internal/infra"
	"github.com/bookieverse/platform/internal/ledger"
	"github.com/bookieverse/platform/internal/provider"
	"github.com/bookieverse/platform/internal/repository"
	"github.com/bookieverse/platform/internal/service"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("score poller failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := infra.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.ScoreFeedURL == "" {
		return fmt.Errorf("SCORE_FEED_URL is required")
	}

	pool, err := infra.NewPostgresPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	logger.Info("score-poller connected to postgres")

	// Repositories and the settlement path the feed drives
	accountRepo := repository.NewAccountRepository()
	entryRepo := repository.NewLedgerEntryRepository()
	marketRepo := repository.NewMarketRepository()
	offerRepo := repository.NewOfferRepository()
	wagerRepo := repository.NewWagerRepository()
	outboxRepo := repository.NewOutboxRepository()

	ledgerEngine := ledger.NewEngine(accountRepo, entryRepo, outboxRepo)
	settleSvc := service.NewSettleService(pool, ledgerEngine, wagerRepo, offerRepo, outboxRepo, logger)
	marketSvc := service.NewMarketService(pool, marketRepo, outboxRepo, settleSvc, guard.NewReplayGuard(), logger)

	breaker := guard.NewCircuitBreaker(5, 30*time.Second)
	feed := provider.NewScoreFeedClient(cfg.ScoreFeedURL, cfg.ScoreFeedAPIKey, breaker, logger)

	logger.Info("score-poller starting", "interval", cfg.ScorePollEvery, "sports", cfg.ScoreFeedSports)

	ticker := time.NewTicker(cfg.ScorePollEvery)
	defer ticker.Stop()

	// Run one cycle immediately so a fresh deploy does not wait a full interval.
	pollOnce(ctx, cfg.ScoreFeedSports, feed, marketSvc, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("score-poller shutting down")
			return nil
		case <-ticker.C:
			pollOnce(ctx, cfg.ScoreFeedSports, feed, marketSvc, logger)
		}
	}
}

func pollOnce(ctx context.Context, sports []string, feed *provider.ScoreFeedClient, markets *service.MarketService, logger *slog.Logger) {
	for _, sport := range sports {
		upcoming, err := feed.FetchMarkets(ctx, sport)
		if err != nil {
			logger.Error("fetch markets", "sport", sport, "error", err)
		} else if err := markets.SyncMarkets(ctx, upcoming); err != nil {
			logger.Error("sync markets", "sport", sport, "error", err)
		}

		updates, err := feed.FetchScores(ctx, sport)
		if err != nil {
			logger.Error("fetch scores", "sport", sport, "error", err)
			continue
		}
		for _, update := range updates {
			if err := markets.ApplyScoreUpdate(ctx, update); err != nil {
				logger.Error("apply score update", "market_id", update.MarketID, "error", err)
			}
		}
	}
}
