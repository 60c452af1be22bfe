package observability

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func recordEveryHelper(ctx context.Context) {
	RecordListingCacheEvent(ctx, "job_postings", "hit")
	RecordListingRequestDuration(ctx, "students", "success", 20*time.Millisecond)
	RecordListingReconcileMode(ctx, "job_postings", "client")
	RecordListingPageSize(ctx, "students", 25)
	RecordListingStoreAge(ctx, "students", 3*time.Second)
	RecordGatewayRequestDuration(ctx, "/students", "success", 12*time.Millisecond)
	RecordListingInvalidation(ctx, "students", "admin")
	RecordAccessTokenValidation(ctx, "ok", "header")
	RecordRoleAuthorizationEvent(ctx, "admin", "allow")
	RecordRateLimitDecision(ctx, "refresh", "allow", "distributed", "subject")
	RecordRateLimitRetryAfter(ctx, "refresh", "window", time.Second)
	RecordMiddlewareValidationEvent(ctx, "cors", "allow_origin")
	RecordHealthCheckResult(ctx, "redis", "ready")
	RecordHealthCheckDuration(ctx, "upstream", 5*time.Millisecond)
	RecordToolCommandRun(ctx, "listingctl", "probe", "success")
	RecordToolCommandDuration(ctx, "listingctl", "churn", "success", 30*time.Millisecond)
}

func TestRecordMetricHelpersNoPanicWhenUninitialized(t *testing.T) {
	metricsMu.Lock()
	appMetrics = nil
	metricsMu.Unlock()

	recordEveryHelper(context.Background())
}

func TestRecordMetricHelpersEmitExpectedLabelCardinality(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := newAppMetrics(provider.Meter("observability-test"))
	if err != nil {
		t.Fatalf("create metrics: %v", err)
	}
	metricsMu.Lock()
	appMetrics = m
	metricsMu.Unlock()
	defer func() {
		metricsMu.Lock()
		appMetrics = nil
		metricsMu.Unlock()
	}()

	recordEveryHelper(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}

	expected := map[string]int{
		"listing.cache.events":                2,
		"listing.request.duration":            2,
		"listing.reconcile.mode":              2,
		"listing.page_size":                   1,
		"listing.store.age":                   1,
		"listing.gateway.duration":            2,
		"listing.invalidations":               2,
		"auth.access_token.validation.events": 2,
		"auth.role.authorization.events":      2,
		"http.rate_limit.decisions":           4,
		"http.rate_limit.retry_after":         2,
		"http.middleware.validation.events":   2,
		"health.check.results":                2,
		"health.check.duration":               1,
		"tool.command.runs":                   3,
		"tool.command.duration":               3,
	}

	observed := collectLabelCardinality(t, rm)
	for metricName, want := range expected {
		got, ok := observed[metricName]
		if !ok {
			t.Fatalf("missing metric datapoint for %s", metricName)
		}
		if got != want {
			t.Fatalf("metric %s label cardinality mismatch: got=%d want=%d", metricName, got, want)
		}
	}
}

func TestInitMetricsDisabledReturnsProvider(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{OTELMetricsEnabled: false}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	mp, err := InitMetrics(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("init metrics disabled: %v", err)
	}
	if mp == nil {
		t.Fatal("expected non-nil meter provider")
	}
	_ = mp.Shutdown(ctx)
}

func collectLabelCardinality(t *testing.T, rm metricdata.ResourceMetrics) map[string]int {
	t.Helper()
	out := map[string]int{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Sum[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[int64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			case metricdata.Histogram[float64]:
				if len(data.DataPoints) > 0 {
					out[m.Name] = data.DataPoints[0].Attributes.Len()
				}
			}
		}
	}
	return out
}
