package di

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/wire"
	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/admin-listing-engine/internal/app"
	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/gateway"
	"github.com/sandeepkv93/admin-listing-engine/internal/health"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/handler"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/middleware"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/router"
	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
	"github.com/sandeepkv93/admin-listing-engine/internal/service"
)

var ConfigSet = wire.NewSet(config.Load)

var ObservabilitySet = wire.NewSet(
	provideObservabilityRuntime,
	provideAppLogger,
)

var RuntimeInfraSet = wire.NewSet(
	provideRedisClient,
	provideUpstreamClient,
	provideReadinessProbeRunner,
)

var SecuritySet = wire.NewSet(provideJWTManager)

var ListingSet = wire.NewSet(
	provideListingResultStore,
	provideJobPostingListing,
	provideStudentListing,
	provideListingRegistry,
	provideInvalidationBus,
	provideInvalidationPublisher,
	provideInvalidationSubscriber,
)

var HTTPSet = wire.NewSet(
	handler.NewListingHandler,
	provideGlobalRateLimiter,
	provideRefreshRateLimiter,
	provideRouterDependencies,
	router.NewRouter,
	provideHTTPServer,
)

var AppSet = wire.NewSet(provideApp)

func provideObservabilityRuntime(cfg *config.Config) (*observability.Runtime, error) {
	bootstrapLogger := observability.NewBootstrapLogger(cfg)
	return observability.InitRuntime(context.Background(), cfg, bootstrapLogger)
}

func provideAppLogger(cfg *config.Config, runtime *observability.Runtime) *slog.Logger {
	return observability.InitLogger(cfg, runtime.LoggerProvider)
}

// provideRedisClient returns nil unless the shared result store is enabled;
// the rate limiters and the invalidation bus follow the same switch.
func provideRedisClient(cfg *config.Config, logger *slog.Logger) redis.UniversalClient {
	if !cfg.ListingCacheRedisEnabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	observability.InstrumentRedisClient(client, logger)
	return client
}

func provideUpstreamClient(cfg *config.Config) (*gateway.Client, error) {
	return gateway.New(gateway.Options{
		BaseURL:    cfg.UpstreamBaseURL,
		APIToken:   cfg.UpstreamAPIToken,
		HealthPath: cfg.UpstreamHealthPath,
		Timeout:    cfg.UpstreamTimeout,
	})
}

func provideJWTManager(cfg *config.Config) *security.JWTManager {
	return security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
}

func provideListingResultStore(cfg *config.Config, redisClient redis.UniversalClient) service.ListingResultStore {
	if cfg.ListingCacheTTL <= 0 {
		return service.NewNoopListingResultStore()
	}
	if cfg.ListingCacheRedisEnabled && redisClient != nil {
		return service.NewRedisListingResultStore(redisClient, cfg.ListingCacheRedisPrefix)
	}
	return service.NewInMemoryListingResultStore(cfg.ListingCacheMaxEntries)
}

func engineOptions(cfg *config.Config, store service.ListingResultStore, logger *slog.Logger) listing.EngineOptions {
	return listing.EngineOptions{
		Store:    store,
		StoreTTL: cfg.ListingCacheTTL,
		Logger:   logger,
		Coordinator: listing.CoordinatorOptions{
			MaxEntries:   cfg.ListingCacheMaxEntries,
			IdleTTL:      cfg.ListingCacheIdleTTL,
			StaleWait:    cfg.ListingStaleWait,
			FetchTimeout: cfg.ListingFetchTimeout,
		},
	}
}

func provideJobPostingListing(cfg *config.Config, upstream *gateway.Client, store service.ListingResultStore, logger *slog.Logger) *service.Listing[domain.JobPosting] {
	engine := listing.NewEngine(service.JobPostingEntity(cfg), upstream, engineOptions(cfg, store, logger))
	return service.NewListing(engine)
}

func provideStudentListing(cfg *config.Config, upstream *gateway.Client, store service.ListingResultStore, logger *slog.Logger) *service.Listing[domain.EnrolledStudent] {
	engine := listing.NewEngine(service.StudentEntity(cfg), upstream, engineOptions(cfg, store, logger))
	return service.NewListing(engine)
}

func provideListingRegistry(jobs *service.Listing[domain.JobPosting], students *service.Listing[domain.EnrolledStudent]) *service.ListingRegistry {
	return service.NewListingRegistry(jobs, students)
}

func provideInvalidationBus(cfg *config.Config, redisClient redis.UniversalClient, logger *slog.Logger) *service.RedisInvalidationBus {
	if !cfg.ListingCacheRedisEnabled || redisClient == nil {
		return nil
	}
	return service.NewRedisInvalidationBus(redisClient, cfg.ListingInvalidationChannel, logger)
}

func provideInvalidationPublisher(bus *service.RedisInvalidationBus) service.InvalidationPublisher {
	if bus == nil {
		return service.NoopInvalidationPublisher{}
	}
	return bus
}

func provideInvalidationSubscriber(bus *service.RedisInvalidationBus) app.InvalidationSubscriber {
	if bus == nil {
		return nil
	}
	return bus
}

func provideGlobalRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, jwt *security.JWTManager) router.GlobalRateLimiterFunc {
	keyFunc := middleware.SubjectOrIPKeyFunc(jwt)
	if cfg.ListingCacheRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.ListingCacheRedisPrefix+":rl")
		return middleware.NewDistributedRateLimiterWithKey(
			redisLimiter,
			cfg.APIRateLimitPerMin,
			time.Minute,
			middleware.FailOpen,
			"api",
			keyFunc,
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.APIRateLimitPerMin, time.Minute, "api", keyFunc).Middleware()
}

// provideRefreshRateLimiter fails closed: a refresh always reaches the
// upstream, so an unmetered burst is what the limit exists to stop.
func provideRefreshRateLimiter(cfg *config.Config, redisClient redis.UniversalClient, jwt *security.JWTManager) router.RefreshRateLimiterFunc {
	keyFunc := middleware.SubjectOrIPKeyFunc(jwt)
	if cfg.ListingCacheRedisEnabled && redisClient != nil {
		redisLimiter := middleware.NewRedisFixedWindowLimiter(redisClient, cfg.ListingCacheRedisPrefix+":rl")
		return middleware.NewDistributedRateLimiterWithKey(
			redisLimiter,
			cfg.RefreshRateLimitPerMin,
			time.Minute,
			middleware.FailClosed,
			"refresh",
			keyFunc,
		).Middleware()
	}
	return middleware.NewRateLimiter(cfg.RefreshRateLimitPerMin, time.Minute, "refresh", keyFunc).Middleware()
}

func provideRouterDependencies(
	listingHandler *handler.ListingHandler,
	jwt *security.JWTManager,
	globalRateLimiter router.GlobalRateLimiterFunc,
	refreshRateLimiter router.RefreshRateLimiterFunc,
	readiness *health.ProbeRunner,
	cfg *config.Config,
) router.Dependencies {
	return router.Dependencies{
		ListingHandler:      listingHandler,
		JWTManager:          jwt,
		CORSOrigins:         cfg.CORSAllowedOrigins,
		APIRateLimitRPM:     cfg.APIRateLimitPerMin,
		RefreshRateLimitRPM: cfg.RefreshRateLimitPerMin,
		GlobalRateLimiter:   globalRateLimiter,
		RefreshRateLimiter:  refreshRateLimiter,
		Readiness:           readiness,
		EnableOTelHTTP:      cfg.OTELMetricsEnabled || cfg.OTELTracingEnabled,
	}
}

func provideHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.ListingFetchTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func provideReadinessProbeRunner(cfg *config.Config, redisClient redis.UniversalClient, upstream *gateway.Client) *health.ProbeRunner {
	checkers := make([]health.Checker, 0, 2)
	if cfg.ListingCacheRedisEnabled {
		checkers = append(checkers, health.NewRedisChecker(redisClient))
	}
	if upstream != nil {
		checkers = append(checkers, health.NewUpstreamChecker(upstream))
	}
	return health.NewProbeRunner(cfg.ReadinessProbeTimeout, cfg.ServerStartGracePeriod, checkers...)
}

func provideApp(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	registry *service.ListingRegistry,
	subscriber app.InvalidationSubscriber,
) *app.App {
	return app.New(cfg, logger, server, runtime, redisClient, readiness, registry, subscriber)
}
