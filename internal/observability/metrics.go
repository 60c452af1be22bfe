package observability

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/exemplar"
)

type AppMetrics struct {
	listingCacheCounter      metric.Int64Counter
	listingReqDuration       metric.Float64Histogram
	listingReconcileCounter  metric.Int64Counter
	listingPageSize          metric.Float64Histogram
	listingStoreAge          metric.Float64Histogram
	gatewayReqDuration       metric.Float64Histogram
	invalidationCounter      metric.Int64Counter
	accessTokenValidation    metric.Int64Counter
	roleAuthorizationCounter metric.Int64Counter
	rateLimitDecisionCounter metric.Int64Counter
	rateLimitRetryAfter      metric.Float64Histogram
	middlewareValidation     metric.Int64Counter
	healthCheckResultCounter metric.Int64Counter
	healthCheckDuration      metric.Float64Histogram
	toolCommandRuns          metric.Int64Counter
	toolCommandDuration      metric.Float64Histogram
}

var (
	metricsMu  sync.RWMutex
	appMetrics *AppMetrics
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5}

func InitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*sdkmetric.MeterProvider, error) {
	if !cfg.OTELMetricsEnabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		logger.Info("otel metrics disabled")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTELExporterOTLPEndpoint)}
	if cfg.OTELExporterOTLPInsecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp metric exporter: %w", err)
	}

	res, err := serviceResource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.OTELMetricsExportInterval))
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
		sdkmetric.WithExemplarFilter(exemplar.TraceBasedFilter),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "listing.request.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationBuckets},
			},
		)),
		sdkmetric.WithView(sdkmetric.NewView(
			sdkmetric.Instrument{Name: "listing.gateway.duration"},
			sdkmetric.Stream{
				Aggregation: sdkmetric.AggregationExplicitBucketHistogram{Boundaries: durationBuckets},
			},
		)),
	)
	otel.SetMeterProvider(mp)

	m, err := newAppMetrics(mp.Meter("admin-listing-engine"))
	if err != nil {
		return nil, err
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()

	logger.Info("otel metrics initialized", "endpoint", cfg.OTELExporterOTLPEndpoint)
	return mp, nil
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	listingCacheCounter, err := meter.Int64Counter("listing.cache.events")
	if err != nil {
		return nil, err
	}
	listingReqDuration, err := meter.Float64Histogram(
		"listing.request.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of listing requests in seconds"),
	)
	if err != nil {
		return nil, err
	}
	listingReconcileCounter, err := meter.Int64Counter("listing.reconcile.mode")
	if err != nil {
		return nil, err
	}
	listingPageSize, err := meter.Float64Histogram(
		"listing.page_size",
		metric.WithDescription("Normalized page size of listing requests"),
	)
	if err != nil {
		return nil, err
	}
	listingStoreAge, err := meter.Float64Histogram(
		"listing.store.age",
		metric.WithUnit("s"),
		metric.WithDescription("Age of results served from the shared result store in seconds"),
	)
	if err != nil {
		return nil, err
	}
	gatewayReqDuration, err := meter.Float64Histogram(
		"listing.gateway.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of upstream listing calls in seconds"),
	)
	if err != nil {
		return nil, err
	}
	invalidationCounter, err := meter.Int64Counter("listing.invalidations")
	if err != nil {
		return nil, err
	}
	accessTokenValidation, err := meter.Int64Counter("auth.access_token.validation.events")
	if err != nil {
		return nil, err
	}
	roleAuthorizationCounter, err := meter.Int64Counter("auth.role.authorization.events")
	if err != nil {
		return nil, err
	}
	rateLimitDecisionCounter, err := meter.Int64Counter("http.rate_limit.decisions")
	if err != nil {
		return nil, err
	}
	rateLimitRetryAfter, err := meter.Float64Histogram(
		"http.rate_limit.retry_after",
		metric.WithUnit("s"),
		metric.WithDescription("Retry-after duration in seconds for throttled requests"),
	)
	if err != nil {
		return nil, err
	}
	middlewareValidation, err := meter.Int64Counter("http.middleware.validation.events")
	if err != nil {
		return nil, err
	}
	healthCheckResultCounter, err := meter.Int64Counter("health.check.results")
	if err != nil {
		return nil, err
	}
	healthCheckDuration, err := meter.Float64Histogram(
		"health.check.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of health dependency checks in seconds"),
	)
	if err != nil {
		return nil, err
	}
	toolCommandRuns, err := meter.Int64Counter("tool.command.runs")
	if err != nil {
		return nil, err
	}
	toolCommandDuration, err := meter.Float64Histogram(
		"tool.command.duration",
		metric.WithUnit("s"),
		metric.WithDescription("Duration of operator tool commands in seconds"),
	)
	if err != nil {
		return nil, err
	}
	return &AppMetrics{
		listingCacheCounter:      listingCacheCounter,
		listingReqDuration:       listingReqDuration,
		listingReconcileCounter:  listingReconcileCounter,
		listingPageSize:          listingPageSize,
		listingStoreAge:          listingStoreAge,
		gatewayReqDuration:       gatewayReqDuration,
		invalidationCounter:      invalidationCounter,
		accessTokenValidation:    accessTokenValidation,
		roleAuthorizationCounter: roleAuthorizationCounter,
		rateLimitDecisionCounter: rateLimitDecisionCounter,
		rateLimitRetryAfter:      rateLimitRetryAfter,
		middlewareValidation:     middlewareValidation,
		healthCheckResultCounter: healthCheckResultCounter,
		healthCheckDuration:      healthCheckDuration,
		toolCommandRuns:          toolCommandRuns,
		toolCommandDuration:      toolCommandDuration,
	}, nil
}

func currentMetrics() *AppMetrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return appMetrics
}

// RecordListingCacheEvent counts coordinator and store outcomes such as hit,
// miss, shared, stale_served, superseded, l2_hit, l2_write_skipped and error.
func RecordListingCacheEvent(ctx context.Context, entity, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listingCacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("outcome", outcome),
	))
}

func RecordListingRequestDuration(ctx context.Context, entity, status string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listingReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("status", status),
	))
}

func RecordListingReconcileMode(ctx context.Context, entity, mode string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listingReconcileCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("mode", mode),
	))
}

func RecordListingPageSize(ctx context.Context, entity string, pageSize int) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listingPageSize.Record(ctx, float64(pageSize), metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

// RecordListingStoreAge records how old a shared-store result was when served.
func RecordListingStoreAge(ctx context.Context, entity string, age time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.listingStoreAge.Record(ctx, age.Seconds(), metric.WithAttributes(
		attribute.String("entity", entity),
	))
}

func RecordGatewayRequestDuration(ctx context.Context, resource, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.gatewayReqDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("resource", resource),
		attribute.String("outcome", outcome),
	))
}

func RecordListingInvalidation(ctx context.Context, entity, source string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.invalidationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("source", source),
	))
}

func RecordAccessTokenValidation(ctx context.Context, outcome, source string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.accessTokenValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordRoleAuthorizationEvent(ctx context.Context, role, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.roleAuthorizationCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", role),
		attribute.String("outcome", outcome),
	))
}

func RecordRateLimitDecision(ctx context.Context, scope, outcome, mode, keyType string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitDecisionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("outcome", outcome),
		attribute.String("mode", mode),
		attribute.String("key_type", keyType),
	))
}

func RecordRateLimitRetryAfter(ctx context.Context, scope, reason string, retryAfter time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.rateLimitRetryAfter.Record(ctx, retryAfter.Seconds(), metric.WithAttributes(
		attribute.String("scope", scope),
		attribute.String("reason", reason),
	))
}

// RecordMiddlewareValidationEvent counts request checks that are not
// authentication, such as CORS origin decisions and body limits.
func RecordMiddlewareValidationEvent(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.middlewareValidation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckResult(ctx context.Context, check, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckResultCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("check", check),
		attribute.String("outcome", outcome),
	))
}

func RecordHealthCheckDuration(ctx context.Context, check string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.healthCheckDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("check", check),
	))
}

func RecordToolCommandRun(ctx context.Context, tool, command, outcome string) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}

func RecordToolCommandDuration(ctx context.Context, tool, command, outcome string, duration time.Duration) {
	m := currentMetrics()
	if m == nil {
		return
	}
	m.toolCommandDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("command", command),
		attribute.String("outcome", outcome),
	))
}
