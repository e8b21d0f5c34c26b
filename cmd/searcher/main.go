// Command searcher serves one or more documentation search indexes over
// HTTP and RPC.
//
// It loads every configured collection, optionally watches the index files
// for changes, reloads collections when an index-published event arrives on
// Kafka, caches results in Redis and records search analytics.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/collector"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/catalog"
	reloadconsumer "github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/apikey"
	publishhandler "github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/history"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/publish/publisher"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/router"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/rpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/grpc"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"collections", len(cfg.Index.Collections),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		if cfg.Metrics.Port > 0 && cfg.Metrics.Port != cfg.Server.Port {
			shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
			defer shutdownMetrics(context.Background())
		}
	}

	cat := catalog.New(cfg.Index, m)
	defer cat.Close()
	if err := cat.LoadAll(ctx); err != nil {
		slog.Error("failed to load collections", "error", err)
		os.Exit(1)
	}
	if cfg.Index.Watch {
		if err := cat.Watch(ctx); err != nil {
			slog.Error("failed to watch index files", "error", err)
			os.Exit(1)
		}
	}

	// Redis result cache. A nil backend keeps the cache type usable but
	// disabled.
	var redisClient *pkgredis.Client
	var backend cache.Backend
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			backend = redisClient
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	queryCache := cache.New(backend, cfg.Redis, m)

	// Analytics: the in-process aggregator always sees events; with Kafka
	// enabled they are also shipped to the analytics service.
	agg := analytics.NewAggregator()
	var tracker analytics.Tracker = agg
	var indexProducer kafka.Publisher
	if cfg.Kafka.Enabled {
		analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer analyticsProducer.Close()
		if cfg.Analytics.BatchSize > 1 {
			bc := collector.NewBatchCollector(analyticsProducer, cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval)
			bc.Start(ctx)
			defer bc.Close()
			tracker = analytics.Trackers{agg, bc}
		} else {
			c := analytics.NewCollector(analyticsProducer, cfg.Analytics.BufferSize)
			c.Start(ctx)
			defer c.Close()
			tracker = analytics.Trackers{agg, c}
		}

		p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexPublished)
		defer p.Close()
		indexProducer = p

		// Every replica must see every event, so each process joins its
		// own consumer group.
		group := fmt.Sprintf("%s-reload-%s", cfg.Kafka.ConsumerGroup, uuid.NewString()[:8])
		rc := reloadconsumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexPublished, group,
			reloadconsumer.HandleIndexPublished(cat)))
		go func() {
			if err := rc.Start(ctx); err != nil {
				slog.Error("reload consumer error", "error", err)
			}
		}()
		slog.Info("kafka wiring enabled",
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
			"index_topic", cfg.Kafka.Topics.IndexPublished,
			"group", group,
		)
	}
	cat.OnReload(handler.InvalidateOnReload(queryCache, tracker))

	// Postgres keeps the build history and analytics snapshots.
	var db *postgres.Client
	var builds *history.Store
	var snapshots *aggregator.Store
	if cfg.Postgres.Enabled {
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, history disabled", "error", err)
		} else {
			defer db.Close()
			builds = history.New(db)
			snapshots = aggregator.NewStore(db, "searcher")
			if err := builds.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create build history schema", "error", err)
				os.Exit(1)
			}
			if err := snapshots.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create snapshot schema", "error", err)
				os.Exit(1)
			}
			snapshots.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		}
	}

	// Write routes need an API key when auth is enabled: unscoped keys from
	// the config, scoped keys from Postgres.
	var keys apikey.Validator
	if cfg.Auth.Enabled {
		var chain apikey.Chain
		if static := apikey.NewStatic(cfg.Auth.Keys); static.Len() > 0 {
			chain = append(chain, static)
		}
		if db != nil {
			keyStore := apikey.NewStore(db)
			if err := keyStore.EnsureSchema(ctx); err != nil {
				slog.Error("failed to create api key schema", "error", err)
				os.Exit(1)
			}
			chain = append(chain, keyStore)
		}
		if len(chain) == 0 {
			slog.Error("auth enabled but no api keys configured and postgres unavailable")
			os.Exit(1)
		}
		keys = chain
		slog.Info("api key auth enabled for write routes", "static_keys", len(cfg.Auth.Keys), "postgres", db != nil)
	}

	analyzer := tokenizer.Analyzer{MinLength: cfg.Search.MinTokenLength}
	exec := executor.NewCatalog(cat, executor.Options{
		Weights: ranker.Weights{
			Term:         cfg.Search.Weights.Term,
			PartialTerm:  cfg.Search.Weights.PartialTerm,
			Title:        cfg.Search.Weights.Title,
			PartialTitle: cfg.Search.Weights.PartialTitle,
		},
		PartialMatch: cfg.Search.PartialMatch,
	})

	searchH := handler.New(cat, exec, analyzer, handler.Options{
		Search:  cfg.Search,
		Cache:   queryCache,
		Tracker: tracker,
		Metrics: m,
		Tracing: cfg.Tracing.Enabled,
	})

	pubOpts := publisher.Options{Producer: indexProducer}
	var buildLister publishhandler.BuildLister
	if builds != nil {
		pubOpts.History = builds
		buildLister = builds
	}
	pub := publisher.New(func(collection string) (string, error) {
		e, err := cat.Get(collection)
		if err != nil {
			return "", err
		}
		return e.Path(), nil
	}, pubOpts)
	publishH := publishhandler.New(pub, buildLister, func(ctx context.Context, collection string) error {
		e, err := cat.Get(collection)
		if err != nil {
			return err
		}
		_, err = e.Reload(ctx)
		return err
	})

	var snapshotLister analytics.SnapshotLister
	if snapshots != nil {
		snapshotLister = snapshots
	}

	checker := health.NewChecker()
	checker.Register("collections", func(ctx context.Context) health.ComponentHealth {
		loaded := 0
		for _, e := range cat.Engines() {
			if _, err := e.Store(); err == nil {
				loaded++
			}
		}
		if loaded == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no collection loaded"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d collections loaded", loaded)}
	})
	checker.Register("redis", health.PingCheck(redisPing(redisClient), "not configured"))
	checker.Register("postgres", health.PingCheck(postgresPing(db), "not configured"))

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router.New(router.Deps{
			Search:    searchH,
			Publish:   publishH,
			Analytics: analytics.NewHandler(agg, snapshotLister),
			Keys:      keys,
			Health:    checker,
			Limiter:   limiter,
			Metrics:   m,
			CORS:      middleware.CORSConfigFor(cfg.Server.CORSOrigins),
			Timeout:   cfg.Server.WriteTimeout,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var rpcServer *grpc.Server
	if cfg.RPC.Port > 0 {
		rpcServer = grpc.NewServer()
		rpc.NewService(cat, exec, analyzer, cfg.Search.DefaultLimit, cfg.Search.MaxResults).Register(rpcServer)
		go func() {
			if err := rpcServer.ListenAndServe(fmt.Sprintf(":%d", cfg.RPC.Port)); err != nil {
				slog.Error("rpc server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if rpcServer != nil {
			rpcServer.Stop()
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}

func redisPing(c *pkgredis.Client) func(context.Context) error {
	if c == nil {
		return nil
	}
	return c.Ping
}

func postgresPing(c *postgres.Client) func(context.Context) error {
	if c == nil {
		return nil
	}
	return c.Ping
}
