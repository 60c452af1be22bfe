package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, client
}

func TestRedisListingResultStoreRoundTrip(t *testing.T) {
	_, client := newTestRedis(t)
	store := NewRedisListingResultStore(client, "test_listing")
	ctx := context.Background()

	if _, ok, _, err := store.GetWithAge(ctx, "job_postings", "k1"); err != nil || ok {
		t.Fatalf("expected initial miss, ok=%v err=%v", ok, err)
	}
	mustStore(t, store, "job_postings", "k1", `{"items":[]}`, time.Minute)
	got, ok, age, err := store.GetWithAge(ctx, "job_postings", "k1")
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if string(got) != `{"items":[]}` {
		t.Fatalf("unexpected payload %s", string(got))
	}
	if age < 0 {
		t.Fatalf("expected non-negative age, got %v", age)
	}
}

func TestRedisListingResultStoreInvalidateBumpsEpoch(t *testing.T) {
	m, client := newTestRedis(t)
	store := NewRedisListingResultStore(client, "test_listing")
	ctx := context.Background()

	mustStore(t, store, "students", "k1", `1`, time.Minute)
	mustStore(t, store, "job_postings", "k1", `2`, time.Minute)
	if err := store.InvalidateNamespace(ctx, "students"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, ok, _, _ := store.GetWithAge(ctx, "students", "k1"); ok {
		t.Fatal("expected miss after epoch bump")
	}
	if _, ok, _, _ := store.GetWithAge(ctx, "job_postings", "k1"); !ok {
		t.Fatal("expected other namespace to survive")
	}
	if got, err := m.Get("test_listing:epoch:students"); err != nil || got != "1" {
		t.Fatalf("expected epoch 1, got %q err=%v", got, err)
	}
	if gen, err := store.Generation(ctx, "students"); err != nil || gen != 1 {
		t.Fatalf("expected generation 1, got %d err=%v", gen, err)
	}

	mustStore(t, store, "students", "k1", `3`, time.Minute)
	got, ok, _, err := store.GetWithAge(ctx, "students", "k1")
	if err != nil || !ok || string(got) != "3" {
		t.Fatalf("expected fresh write under new epoch, ok=%v payload=%s err=%v", ok, string(got), err)
	}
}

func TestRedisListingResultStoreRejectsStaleEpoch(t *testing.T) {
	m, client := newTestRedis(t)
	store := NewRedisListingResultStore(client, "test_listing")
	ctx := context.Background()

	gen, err := store.Generation(ctx, "students")
	if err != nil {
		t.Fatalf("generation: %v", err)
	}
	if err := store.InvalidateNamespace(ctx, "students"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	stored, err := store.Set(ctx, "students", "k1", []byte(`old`), time.Minute, gen)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if stored {
		t.Fatal("write under a superseded epoch must be refused")
	}
	if _, ok, _, _ := store.GetWithAge(ctx, "students", "k1"); ok {
		t.Fatal("refused write must not be readable")
	}
	for _, k := range m.Keys() {
		if k != "test_listing:epoch:students" {
			t.Fatalf("refused write must not leave keys behind, found %s", k)
		}
	}
}

func TestRedisListingResultStoreExpiry(t *testing.T) {
	m, client := newTestRedis(t)
	store := NewRedisListingResultStore(client, "")
	ctx := context.Background()

	mustStore(t, store, "students", "k", `1`, 5*time.Second)
	m.FastForward(6 * time.Second)
	if _, ok, _, _ := store.GetWithAge(ctx, "students", "k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestRedisListingResultStoreReportsRedisFailure(t *testing.T) {
	m, client := newTestRedis(t)
	store := NewRedisListingResultStore(client, "test_listing")
	m.Close()
	ctx := context.Background()
	if _, _, _, err := store.GetWithAge(ctx, "students", "k"); err == nil {
		t.Fatal("expected read error when redis is down")
	}
	if _, err := store.Generation(ctx, "students"); err == nil {
		t.Fatal("expected generation error when redis is down")
	}
	if _, err := store.Set(ctx, "students", "k", []byte(`1`), time.Minute, 0); err == nil {
		t.Fatal("expected write error when redis is down")
	}
}
