package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/riskibarqy/contest-feed/internal/config"
	"github.com/riskibarqy/contest-feed/internal/domain/feedcache"
	memoryrepo "github.com/riskibarqy/contest-feed/internal/infrastructure/repository/memory"
	postgresrepo "github.com/riskibarqy/contest-feed/internal/infrastructure/repository/postgres"
	redisrepo "github.com/riskibarqy/contest-feed/internal/infrastructure/repository/redis"
	"github.com/riskibarqy/contest-feed/internal/interfaces/httpapi"
	"github.com/riskibarqy/contest-feed/internal/observability"
	basecache "github.com/riskibarqy/contest-feed/internal/platform/cache"
	idgen "github.com/riskibarqy/contest-feed/internal/platform/id"
	"github.com/riskibarqy/contest-feed/internal/platform/logging"
	"github.com/riskibarqy/contest-feed/internal/platform/resilience"
	"github.com/riskibarqy/contest-feed/internal/usecase"
)

const redisPingTimeout = 3 * time.Second

// App holds the HTTP server and the background work bound to it.
type App struct {
	Server       *http.Server
	warmer       *usecase.ContestWarmer
	warmInterval time.Duration
	logger       *logging.Logger
	closers      []func() error
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	app := &App{warmInterval: cfg.WarmInterval, logger: logger}

	var (
		metrics        *observability.ContestMetrics
		feedMetrics    usecase.FeedMetrics
		onCircuit      resilience.StateChangeFunc
		metricsHandler http.Handler
	)
	if cfg.MetricsEnabled {
		metrics = observability.NewContestMetrics()
		feedMetrics = metrics
		onCircuit = metrics.ObserveCircuit
		metricsHandler = metrics.Handler()
	}

	sources := newSourceFactory(cfg, logger, onCircuit).build()
	aggregator := usecase.NewAggregator(sources, usecase.NewFetchStatsRegistry(), usecase.AggregatorConfig{
		SourceTimeout: cfg.SourceTimeout,
		Logger:        logger,
		Metrics:       feedMetrics,
		IDGenerator:   idgen.NewTimeOrderedGenerator(),
	})

	repo, purger, err := app.buildCacheRepository(cfg)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	cache := usecase.NewFeedCache(repo, cfg.CacheTTL, logger, feedMetrics)

	service := usecase.NewContestService(aggregator, cache, usecase.ContestServiceConfig{
		DefaultSources: defaultSources(cfg, sources),
		Logger:         logger,
	})
	warmer := usecase.NewContestWarmer(service, cfg.WarmWorkers, logger)
	if purger != nil {
		warmer = warmer.WithPurger(purger)
	}
	app.warmer = warmer

	handler := httpapi.NewHandler(service, warmer, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalJobToken:   cfg.InternalJobToken,
		MetricsHandler:     metricsHandler,
	})

	app.Server = &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	logger.Info("contest feed configured",
		"sources", service.Sources(),
		"default_sources", service.DefaultSources(),
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL.String(),
		"warm_interval", cfg.WarmInterval.String(),
	)
	return app, nil
}

// buildCacheRepository returns the selected backend and, when the backend
// keeps expired rows around, the purger the warmer should call.
func (a *App) buildCacheRepository(cfg config.Config) (feedcache.Repository, feedcache.Purger, error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)

		repo := redisrepo.NewFeedCacheRepository(client)
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := repo.Ping(ctx); err != nil {
			a.logger.Warn("redis cache unreachable, requests will bypass cache until it recovers",
				"addr", cfg.RedisAddr,
				"error", err,
			)
		}
		return repo, nil, nil

	case config.CacheBackendPostgres:
		db, err := openCacheDB(cfg)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, db.Close)

		repo := postgresrepo.NewFeedCacheRepository(db)
		return repo, repo, nil

	default:
		repo := memoryrepo.NewFeedCacheRepository(basecache.NewStore(cfg.CacheMaxEntries))
		return repo, repo, nil
	}
}

// RunBackground starts the periodic cache warmer when an interval is set and
// blocks until ctx is done.
func (a *App) RunBackground(ctx context.Context) {
	if a.warmInterval <= 0 || a.warmer == nil {
		return
	}
	a.logger.Info("contest warmer starting", "interval", a.warmInterval.String())
	a.warmer.Run(ctx, a.warmInterval)
}

func (a *App) Close() error {
	var firstErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	a.closers = nil
	return firstErr
}
