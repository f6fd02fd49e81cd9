package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/playperu/starhunt/internal/config"
	"github.com/playperu/starhunt/internal/database"
	"github.com/playperu/starhunt/internal/feed"
	"github.com/playperu/starhunt/internal/handler/health"
	"github.com/playperu/starhunt/internal/hunt"
	"github.com/playperu/starhunt/internal/metrics"
	"github.com/playperu/starhunt/internal/migrations"
	"github.com/playperu/starhunt/internal/server"
	"github.com/playperu/starhunt/internal/starhunt"
	"github.com/playperu/starhunt/internal/store"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	out := stdout
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}
		defer lj.Close()
		out = lj
	}
	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- SQLite ---
	if dir := filepath.Dir(cfg.DBPath); dir != "." && cfg.DBPath != database.Memory {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating data dir: %w", err)
		}
	}
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	if err := migrations.Run(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	version, err := migrations.Version(ctx, db)
	if err != nil {
		return err
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath, "schema_version", version)

	checks := map[string]health.Checker{"sqlite": health.SQL(db)}

	// --- Feed ---
	broker := feed.NewBroker()
	broker.OnDrop = func(topic string) {
		metrics.FeedDropped.Inc()
		logger.Warn("feed event dropped for slow subscriber", "topic", topic)
	}

	g, gctx := errgroup.WithContext(ctx)

	var pub feed.Publisher = broker
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer rdb.Close()
		logger.Info("connected to redis")

		bridge := feed.NewRedisBridge(broker, rdb, logger)
		pub = bridge
		checks["redis"] = health.Redis(rdb)
		g.Go(func() error { return bridge.Run(gctx) })
	}

	// --- Hunt ---
	svc := hunt.New(
		store.WithFeed(store.NewSQLiteStore(db), pub),
		starhunt.DefaultCatalog(),
		logger,
		hunt.Options{CompareAndSwap: cfg.CompareAndSwap},
	)
	if cfg.AdminPin != "" {
		if err := svc.EnsureAdmin(ctx, cfg.AdminPin); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
	} else {
		logger.Warn("ADMIN_PIN is not set, admin account is not seeded")
	}

	// --- Metrics ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics.Register(reg)

	// --- HTTP Server ---
	loginRate, loginBurst := cfg.LoginLimit()
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Hunt:       svc,
		Broker:     broker,
		Checks:     checks,
		Gatherer:   reg,
		LoginRate:  loginRate,
		LoginBurst: loginBurst,
	})

	// --- Run ---
	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}

func openRedis(ctx context.Context, rawURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return rdb, nil
}
