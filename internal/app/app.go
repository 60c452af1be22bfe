package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/health"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
	"github.com/sandeepkv93/admin-listing-engine/internal/service"
)

// InvalidationSubscriber delivers invalidations published by other
// instances until ctx is done.
type InvalidationSubscriber interface {
	Run(ctx context.Context, apply func(ctx context.Context, msg service.InvalidationMessage)) error
}

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner
	Registry      *service.ListingRegistry
	Subscriber    InvalidationSubscriber
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
	registry *service.ListingRegistry,
	subscriber InvalidationSubscriber,
) *App {
	return &App{
		Config:        cfg,
		Logger:        logger,
		Server:        server,
		Observability: runtime,
		Redis:         redisClient,
		Readiness:     readiness,
		Registry:      registry,
		Subscriber:    subscriber,
	}
}

// Run serves HTTP and consumes remote invalidations until ctx is done or the
// server fails, then shuts down in stages: HTTP drain, subscriber,
// observability flush, redis.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", a.Server.Addr)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	subCtx, stopSub := context.WithCancel(context.Background())
	var subWG sync.WaitGroup
	if a.Subscriber != nil && a.Registry != nil {
		subWG.Add(1)
		go func() {
			defer subWG.Done()
			if err := a.Subscriber.Run(subCtx, a.applyRemoteInvalidation); err != nil {
				a.Logger.Error("listing invalidation subscriber stopped", "error", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown requested")
	case err, ok := <-serveErr:
		if ok && err != nil {
			a.Logger.Error("http server failed", "error", err)
			runErr = err
		}
	}

	a.shutdown(stopSub, &subWG)
	return runErr
}

func (a *App) applyRemoteInvalidation(ctx context.Context, msg service.InvalidationMessage) {
	n, err := a.Registry.InvalidateLocal(ctx, msg.Entity, msg.Role, "bus")
	if err != nil {
		a.Logger.WarnContext(ctx, "remote listing invalidation failed",
			"entity", msg.Entity,
			"origin", msg.Origin,
			"error", err,
		)
		return
	}
	a.Logger.InfoContext(ctx, "remote listing invalidation applied",
		"entity", msg.Entity,
		"role", string(msg.Role),
		"origin", msg.Origin,
		"invalidated", n,
	)
}

func (a *App) shutdown(stopSub context.CancelFunc, subWG *sync.WaitGroup) {
	totalTimeout := 20 * time.Second
	httpTimeout := 10 * time.Second
	obsTimeout := 8 * time.Second
	if a.Config != nil {
		if a.Config.ShutdownTimeout > 0 {
			totalTimeout = a.Config.ShutdownTimeout
		}
		if a.Config.ShutdownHTTPDrainTimeout > 0 {
			httpTimeout = a.Config.ShutdownHTTPDrainTimeout
		}
		if a.Config.ShutdownObservabilityTimeout > 0 {
			obsTimeout = a.Config.ShutdownObservabilityTimeout
		}
	}
	totalCtx, totalCancel := context.WithTimeout(context.Background(), totalTimeout)
	defer totalCancel()

	httpCtx, httpCancel := context.WithTimeout(totalCtx, httpTimeout)
	if err := a.Server.Shutdown(httpCtx); err != nil {
		a.Logger.Error("failed to shutdown http server", "error", err)
	}
	httpCancel()

	stopSub()
	subWG.Wait()

	if a.Observability != nil {
		obsCtx, obsCancel := context.WithTimeout(totalCtx, obsTimeout)
		if err := a.Observability.Shutdown(obsCtx); err != nil {
			a.Logger.Error("failed to shutdown observability", "error", err)
		}
		obsCancel()
	}

	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Error("failed to close redis client", "error", err)
		}
	}
	a.Logger.Info("shutdown complete")
}
