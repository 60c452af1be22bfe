package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/service"
	servicegomock "github.com/sandeepkv93/admin-listing-engine/internal/service/gomock"
)

type scriptedSubscriber struct {
	messages []service.InvalidationMessage
	applied  chan struct{}
	stopped  chan struct{}
}

func (s *scriptedSubscriber) Run(ctx context.Context, apply func(context.Context, service.InvalidationMessage)) error {
	for _, m := range s.messages {
		apply(ctx, m)
	}
	close(s.applied)
	<-ctx.Done()
	close(s.stopped)
	return nil
}

func TestAppRunAppliesRemoteInvalidationsAndShutsDown(t *testing.T) {
	ctrl := gomock.NewController(t)
	engine := servicegomock.NewMockListingEngine(ctrl)
	engine.EXPECT().Name().Return("students").AnyTimes()
	engine.EXPECT().Invalidate(gomock.Any(), domain.RoleOwner).Return(1, nil)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	sub := &scriptedSubscriber{
		messages: []service.InvalidationMessage{
			{Entity: "students", Role: domain.RoleOwner, Origin: "peer-1"},
			{Entity: "courses", Origin: "peer-1"},
		},
		applied: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	a := New(
		&config.Config{ShutdownTimeout: 2 * time.Second, ShutdownHTTPDrainTimeout: time.Second, ShutdownObservabilityTimeout: time.Second},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		&http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler(), ReadHeaderTimeout: time.Second},
		nil,
		client,
		nil,
		service.NewListingRegistry(engine),
		sub,
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	select {
	case <-sub.applied:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber was not started")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("app did not shut down")
	}
	select {
	case <-sub.stopped:
	default:
		t.Fatal("expected subscriber to be stopped before Run returned")
	}
	if err := client.Ping(context.Background()).Err(); err == nil {
		t.Fatal("expected redis client to be closed on shutdown")
	}
}

func TestAppRunReturnsServeError(t *testing.T) {
	a := New(
		&config.Config{},
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		&http.Server{Addr: "256.0.0.1:bad", ReadHeaderTimeout: time.Second},
		nil, nil, nil, nil, nil,
	)
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("expected listen error to be returned")
	}
}
