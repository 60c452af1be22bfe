package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

func TestRedisInvalidationBusDeliversToOtherInstances(t *testing.T) {
	_, client := newTestRedis(t)
	local := NewRedisInvalidationBus(client, "listing:invalidate", nil)
	remote := NewRedisInvalidationBus(client, "listing:invalidate", nil)
	if local.Origin() == remote.Origin() {
		t.Fatal("expected distinct origins")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []InvalidationMessage
	done := make(chan error, 1)
	go func() {
		done <- local.Run(ctx, func(_ context.Context, m InvalidationMessage) {
			mu.Lock()
			got = append(got, m)
			mu.Unlock()
		})
	}()

	// Subscription is asynchronous; publish until the subscriber sees one.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := local.Publish(ctx, "students", ""); err != nil {
			t.Fatalf("publish own: %v", err)
		}
		if err := remote.Publish(ctx, "job_postings", domain.RoleOwner); err != nil {
			t.Fatalf("publish remote: %v", err)
		}
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for invalidation message")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run returned error: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, m := range got {
		if m.Origin == local.Origin() {
			t.Fatalf("expected own messages to be skipped, got %+v", m)
		}
		if m.Entity != "job_postings" || m.Role != domain.RoleOwner {
			t.Fatalf("unexpected message %+v", m)
		}
	}
}

func TestRedisInvalidationBusPublishFailsWhenRedisDown(t *testing.T) {
	m, client := newTestRedis(t)
	bus := NewRedisInvalidationBus(client, "listing:invalidate", nil)
	m.Close()
	if err := bus.Publish(context.Background(), "students", ""); err == nil {
		t.Fatal("expected publish error")
	}
}
