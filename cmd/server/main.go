package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kmehta/nivesh-backend/internal/adapter/auth"
	"github.com/kmehta/nivesh-backend/internal/adapter/httpapi"
	"github.com/kmehta/nivesh-backend/internal/adapter/pricesource"
	"github.com/kmehta/nivesh-backend/internal/adapter/repository/postgres"
	"github.com/kmehta/nivesh-backend/internal/config"
	"github.com/kmehta/nivesh-backend/internal/domain"
	"github.com/kmehta/nivesh-backend/internal/usecase/buckets"
	"github.com/kmehta/nivesh-backend/internal/usecase/holdings"
	"github.com/kmehta/nivesh-backend/internal/usecase/portfolio"
	"github.com/kmehta/nivesh-backend/internal/usecase/pricing"
	"github.com/kmehta/nivesh-backend/internal/usecase/seeder"
	"github.com/kmehta/nivesh-backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New(logger.Config{})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	logger.SetGlobalLogger(log)

	// Give Postgres a moment when starting together under Docker
	time.Sleep(2 * time.Second)

	db, err := postgres.NewDB(cfg.DBConnStr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	listener, err := postgres.NewListener(cfg.DBConnStr, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start notification listener")
	}
	defer listener.Close()

	tradeRepo := postgres.NewTradeRepository(db, listener)
	bucketRepo := postgres.NewBucketRepository(db)
	holdingRepo := postgres.NewHoldingRepository(db)

	// Price sources are tried in order per asset type
	sources := []domain.PriceSource{
		pricesource.NewNAVSource(cfg.NAVFeedURL, log),
		pricesource.NewSheetSource(cfg.StockSheetURL, log),
		pricesource.NewSpotSource(),
	}
	cache := pricing.NewCache(pricing.Config{
		TTL:        cfg.PriceTTL,
		MaxRetries: cfg.MaxPriceRetries,
	}, sources, log)
	scheduler := pricing.NewScheduler(cache, pricing.SchedulerConfig{
		BatchSize:  cfg.RefreshBatch,
		BatchDelay: cfg.BatchDelay,
	}, log)

	holdingsAgg := holdings.NewAggregator(cache, log)
	bucketsAgg := buckets.NewAggregator(log)
	bucketSeeder := seeder.NewBucketSeeder(bucketRepo)

	sessions := httpapi.NewSessionRegistry(func(userID string) *portfolio.Service {
		// Seeding is best-effort: the bucket aggregator applies defaults for
		// any label missing from storage anyway
		if err := bucketSeeder.Seed(context.Background(), userID); err != nil {
			log.Warn().Err(err).Str("user", userID).Msg("bucket seeding failed")
		}
		return portfolio.NewService(userID, tradeRepo, bucketRepo, holdingRepo,
			cache, scheduler, holdingsAgg, bucketsAgg,
			portfolio.Config{RefreshCooldown: cfg.RefreshCooldown}, log)
	}, log)
	defer sessions.Close()

	authSvc := auth.NewService(cfg.OTPTTL, log)

	// Background refresh keeps prices warm for every live session
	var scheduledRefresh *cron.Cron
	if cfg.RefreshSchedule != "" {
		scheduledRefresh = cron.New()
		_, err := scheduledRefresh.AddFunc(cfg.RefreshSchedule, func() {
			sessions.Each(func(userID string, svc *portfolio.Service) {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
				defer cancel()
				svc.RefreshPrices(ctx)
			})
		})
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.RefreshSchedule).Msg("invalid refresh schedule")
		}
		scheduledRefresh.Start()
	}

	server := httpapi.New(httpapi.Config{
		Addr:     cfg.HTTPAddr,
		Log:      log,
		Auth:     authSvc,
		Sessions: sessions,
	})

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(server, scheduledRefresh, log)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(server *httpapi.Server, scheduledRefresh *cron.Cron, log zerolog.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	if scheduledRefresh != nil {
		<-scheduledRefresh.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}

	log.Info().Msg("server stopped")
}
