package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/aurasignal/signal-dashboard/internal/analysis"
	"github.com/aurasignal/signal-dashboard/internal/api"
	"github.com/aurasignal/signal-dashboard/internal/auth"
	"github.com/aurasignal/signal-dashboard/internal/cache"
	"github.com/aurasignal/signal-dashboard/internal/config"
	"github.com/aurasignal/signal-dashboard/internal/engine"
	"github.com/aurasignal/signal-dashboard/internal/notify"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("signal-dashboard starting",
		slog.String("port", cfg.Server.Port),
		slog.String("auth_backend", cfg.Auth.Backend),
		slog.Duration("tick_interval", cfg.Market.TickInterval),
	)

	// Account store
	var authStore auth.Store
	switch cfg.Auth.Backend {
	case "postgres":
		pg, err := auth.NewPostgresStore(cfg.Database.ConnectionString())
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pg.Close()
		if err := pg.Migrate("db/migrations"); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		authStore = pg
	default:
		authStore = auth.NewMemoryStore()
	}

	// Analysis client is optional; without it manual and automatic analysis
	// are disabled and the dashboard runs market-data only.
	var analyzer analysis.Analyzer
	if cfg.Analysis.BaseURL != "" && cfg.Analysis.APIKey != "" {
		analyzer = analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.APIKey, cfg.Analysis.Model)
	} else {
		logger.Warn("analysis client not configured, analysis disabled")
	}

	eng := engine.New(engine.Options{
		TickInterval:     cfg.Market.TickInterval,
		Analyzer:         analyzer,
		AutoScanInterval: cfg.Analysis.AutoScanInterval,
		Logger:           logger,
	})

	// Optional Redis snapshot mirror
	var snapCache *cache.SnapshotCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		snapCache = cache.NewSnapshotCache(client, logger)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := snapCache.Ping(ctx); err != nil {
			logger.Warn("redis unreachable, snapshot cache disabled", slog.Any("error", err))
			snapCache = nil
		} else {
			eng.Subscribe(snapCache.OnTickBatch)
		}
		cancel()
	}

	// Optional Kafka alert-event export
	if len(cfg.Kafka.Brokers) > 0 {
		sink := notify.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer sink.Close()
		eng.AddNotificationSink(sink)
		logger.Info("kafka alert export enabled", slog.String("topic", cfg.Kafka.Topic))
	}

	handler := api.NewHandler(eng, authStore, snapCache, logger)
	router := api.SetupRoutes(handler)

	eng.Start()
	defer eng.Stop()

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.Any("error", err))
		}
		close(done)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	<-done
	logger.Info("bye")
}
