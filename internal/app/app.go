package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"cryptoalerts/internal/config"
	"cryptoalerts/internal/delivery/httpapi"
	"cryptoalerts/internal/delivery/telegram"
	"cryptoalerts/internal/infra/cache"
	"cryptoalerts/internal/infra/db"
	"cryptoalerts/internal/infra/log"
	"cryptoalerts/internal/infra/pricing"
	"cryptoalerts/internal/usecase"
)

type App struct {
	server        *http.Server
	monitor       *usecase.Monitor
	limiter       *httpapi.IPRateLimiter
	priceCache    *cache.PriceCache
	logger        *zap.Logger
	checkInterval time.Duration
	cleanupFn     func() error
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := log.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	alertRepo := db.NewAlertRepository(dbConn)

	primary := pricing.NewCoinMarketCapClient(cfg.CoinMarketCapBaseURL, cfg.CoinMarketCapAPIKey, cfg.ProviderTimeout, logger)
	secondary := pricing.NewCoinGeckoClient(cfg.CoinGeckoBaseURL, cfg.ProviderTimeout, logger)
	priceSource := pricing.NewSource(primary, secondary, logger)

	priceCache, err := cache.New(ctx, cfg.RedisAddr, cfg.PriceCacheTTL, logger)
	if err != nil {
		return nil, err
	}

	notifier, err := telegram.New(cfg.TelegramBotToken, logger)
	if err != nil {
		return nil, err
	}

	hub := httpapi.NewPriceStreamHub(logger)
	monitor := usecase.NewMonitor(alertRepo, priceSource, notifier, hub, logger)

	alertUC := usecase.NewAlertUsecase(alertRepo, notifier)
	handlers := httpapi.NewHandlers(alertUC, priceSource, priceCache, logger)
	limiter := httpapi.NewIPRateLimiter(cfg.RateLimitRPM)
	router := httpapi.NewRouter(handlers, hub, limiter, logger)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	cleanup := func() error {
		sqlDB, err := dbConn.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return &App{
		server:        server,
		monitor:       monitor,
		limiter:       limiter,
		priceCache:    priceCache,
		logger:        logger,
		checkInterval: cfg.CheckInterval,
		cleanupFn:     cleanup,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("crypto alerts service starting",
		zap.String("addr", a.server.Addr),
		zap.Duration("check_interval", a.checkInterval),
	)

	go a.monitor.Start(ctx)
	go a.runScheduler(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// runScheduler is the external timer of the evaluation engine: it only asks
// for cycles, the monitor serializes and runs them.
func (a *App) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.monitor.Trigger()
		}
	}
}

func (a *App) Shutdown() {
	a.logger.Info("crypto alerts service shutting down")
	a.limiter.Stop()
	if err := a.priceCache.Close(); err != nil {
		a.logger.Warn("failed to close price cache", zap.Error(err))
	}
	if a.cleanupFn != nil {
		if err := a.cleanupFn(); err != nil {
			a.logger.Warn("failed to close database", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
