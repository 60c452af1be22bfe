package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/gateway"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/handler"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/router"
	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
	"github.com/sandeepkv93/admin-listing-engine/internal/service"
	"github.com/sandeepkv93/admin-listing-engine/internal/tools/listingctl"
)

const testSecret = "abcdefghijklmnopqrstuvwxyz123456"

type trackingListingResultStore struct {
	delegate service.ListingResultStore

	mu              sync.Mutex
	getCalls        int
	setCalls        int
	written         int
	invalidateCalls int
}

func newTrackingListingResultStore(delegate service.ListingResultStore) *trackingListingResultStore {
	return &trackingListingResultStore{delegate: delegate}
}

func (s *trackingListingResultStore) Generation(ctx context.Context, namespace string) (uint64, error) {
	return s.delegate.Generation(ctx, namespace)
}

func (s *trackingListingResultStore) GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error) {
	s.mu.Lock()
	s.getCalls++
	s.mu.Unlock()
	return s.delegate.GetWithAge(ctx, namespace, key)
}

func (s *trackingListingResultStore) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, generation uint64) (bool, error) {
	stored, err := s.delegate.Set(ctx, namespace, key, value, ttl, generation)
	s.mu.Lock()
	s.setCalls++
	if stored {
		s.written++
	}
	s.mu.Unlock()
	return stored, err
}

func (s *trackingListingResultStore) InvalidateNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	s.invalidateCalls++
	s.mu.Unlock()
	return s.delegate.InvalidateNamespace(ctx, namespace)
}

func (s *trackingListingResultStore) Snapshot() (getCalls, setCalls, invalidateCalls int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls, s.setCalls, s.invalidateCalls
}

// Written counts Set calls that actually stored a result.
func (s *trackingListingResultStore) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// fixtureUpstream is the seeded upstream with a call counter in front.
type fixtureUpstream struct {
	URL   string
	calls atomic.Int64

	mu   sync.Mutex
	hold *heldCall
}

type heldCall struct {
	entered chan struct{}
	release chan struct{}
}

// holdNext parks the next listing call after the upstream has rendered it,
// until release is called.
func (u *fixtureUpstream) holdNext() (entered <-chan struct{}, release func()) {
	h := &heldCall{entered: make(chan struct{}), release: make(chan struct{})}
	u.mu.Lock()
	u.hold = h
	u.mu.Unlock()
	var once sync.Once
	return h.entered, func() { once.Do(func() { close(h.release) }) }
}

func (u *fixtureUpstream) takeHold() *heldCall {
	u.mu.Lock()
	defer u.mu.Unlock()
	h := u.hold
	u.hold = nil
	return h
}

func newFixtureUpstream(t *testing.T, opts listingctl.FixtureOptions) *fixtureUpstream {
	t.Helper()
	if opts.JobPostings == 0 {
		opts.JobPostings = 120
	}
	if opts.Students == 0 {
		opts.Students = 300
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	up := &fixtureUpstream{}
	h := listingctl.NewFixtureUpstream(opts)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			h.ServeHTTP(w, r)
			return
		}
		up.calls.Add(1)
		held := up.takeHold()
		if held == nil {
			h.ServeHTTP(w, r)
			return
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		close(held.entered)
		<-held.release
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	}))
	t.Cleanup(srv.Close)
	up.URL = srv.URL
	return up
}

func testConfig(upstreamURL string) *config.Config {
	return &config.Config{
		Env:                    "test",
		CORSAllowedOrigins:     []string{"http://localhost:3000"},
		JWTIssuer:              "iss",
		JWTAudience:            "aud",
		JWTAccessSecret:        testSecret,
		UpstreamBaseURL:        upstreamURL,
		UpstreamTimeout:        2 * time.Second,
		ListingDefaultPageSize: 10,
		ListingMaxPageSize:     50,
		ListingSearchMinLength: 3,
		ListingStaleWait:       50 * time.Millisecond,
		ListingFetchTimeout:    3 * time.Second,
		ListingCacheMaxEntries: 64,
		ListingCacheIdleTTL:    time.Minute,
		ListingCacheTTL:        time.Minute,
		APIRateLimitPerMin:     10_000,
		RefreshRateLimitPerMin: 10_000,
	}
}

type instance struct {
	URL      string
	Registry *service.ListingRegistry
	jwt      *security.JWTManager
}

// newInstance assembles one API process the way the injector does, minus
// config loading and telemetry.
func newInstance(t *testing.T, cfg *config.Config, store service.ListingResultStore, bus service.InvalidationPublisher) *instance {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	upstream, err := gateway.New(gateway.Options{BaseURL: cfg.UpstreamBaseURL, Timeout: cfg.UpstreamTimeout})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	opts := listing.EngineOptions{
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
	registry := service.NewListingRegistry(
		service.NewListing(listing.NewEngine(service.JobPostingEntity(cfg), upstream, opts)),
		service.NewListing(listing.NewEngine(service.StudentEntity(cfg), upstream, opts)),
	)
	jwtMgr := security.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTAccessSecret)
	h := router.NewRouter(router.Dependencies{
		ListingHandler:      handler.NewListingHandler(registry, bus, logger),
		JWTManager:          jwtMgr,
		CORSOrigins:         cfg.CORSAllowedOrigins,
		APIRateLimitRPM:     cfg.APIRateLimitPerMin,
		RefreshRateLimitRPM: cfg.RefreshRateLimitPerMin,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &instance{URL: srv.URL, Registry: registry, jwt: jwtMgr}
}

type listingBody struct {
	Success bool `json:"success"`
	Data    struct {
		Items      []map[string]any   `json:"items"`
		Pagination listing.Pagination `json:"pagination"`
		State      struct {
			IsStale    bool   `json:"is_stale"`
			IsFetching bool   `json:"is_fetching"`
			Error      bool   `json:"error"`
			Mode       string `json:"mode"`
		} `json:"state"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (in *instance) do(t *testing.T, method, path, subject, role string, q url.Values) (int, listingBody) {
	t.Helper()
	token, err := in.jwt.SignAccessToken(subject, role, time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	u := in.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var body listingBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, body
}

func (in *instance) list(t *testing.T, entity, subject, role string, q url.Values) (int, listingBody) {
	return in.do(t, http.MethodGet, "/api/v1/listings/"+entity, subject, role, q)
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}
