package listing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

// Gateway performs one upstream listing call and returns the raw body.
type Gateway interface {
	FetchPage(ctx context.Context, resource string, desc RequestDescriptor) ([]byte, error)
}

// ResultStore is an optional shared store of reconciled results, namespaced
// by entity. InvalidateNamespace advances the namespace generation and Set
// reports false without writing when generation is no longer current.
type ResultStore interface {
	Generation(ctx context.Context, namespace string) (uint64, error)
	GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, generation uint64) (bool, error)
	InvalidateNamespace(ctx context.Context, namespace string) error
}

// Result is the reconciled page handed to the rendering layer.
type Result[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
	Mode       string     `json:"mode"`
	FetchedAt  time.Time  `json:"fetched_at"`
}

type Query struct {
	ViewID   string
	State    FilterState
	Role     domain.Role
	Page     int
	PageSize int
}

type EngineOptions struct {
	Store       ResultStore
	StoreTTL    time.Duration
	Coordinator CoordinatorOptions
	Logger      *slog.Logger
}

// Engine runs the whole pipeline for one entity: validate, normalize, fetch,
// filter, reconcile and cache.
type Engine[T any] struct {
	entity   *Entity[T]
	gateway  Gateway
	store    ResultStore
	storeTTL time.Duration
	coord    *Coordinator[T]
	logger   *slog.Logger
}

func NewEngine[T any](entity *Entity[T], gw Gateway, opts EngineOptions) *Engine[T] {
	copts := opts.Coordinator
	if copts.Name == "" {
		copts.Name = entity.Name
	}
	if copts.Logger == nil {
		copts.Logger = opts.Logger
	}
	return &Engine[T]{
		entity:   entity,
		gateway:  gw,
		store:    opts.Store,
		storeTTL: opts.StoreTTL,
		coord:    NewCoordinator[T](copts),
		logger:   observability.ComponentLogger(opts.Logger, "listing_engine").With("entity", entity.Name),
	}
}

func (e *Engine[T]) Name() string { return e.entity.Name }

func (e *Engine[T]) Entity() *Entity[T] { return e.entity }

// List validates q and returns what q.ViewID should display for it. Only
// invalid filter input is returned as an error; upstream failures travel in
// Snapshot.Err.
func (e *Engine[T]) List(ctx context.Context, q Query) (Snapshot[T], error) {
	start := time.Now()
	if err := e.entity.Validate(q.State); err != nil {
		observability.RecordListingRequestDuration(ctx, e.entity.Name, "invalid", time.Since(start))
		return Snapshot[T]{}, err
	}
	cf := canonicalize(e.entity, q.State)
	desc := e.entity.normalize(cf, q.Role, q.Page, q.PageSize)
	key := e.entity.key(cf, desc, q.Role)
	observability.RecordListingPageSize(ctx, e.entity.Name, desc.PageSize)

	snap := e.coord.Observe(ctx, q.ViewID, key, e.fetcher(key, cf, desc, q.Role))
	observability.RecordListingRequestDuration(ctx, e.entity.Name, snapshotOutcome(snap), time.Since(start))
	return snap, nil
}

// Refresh silently refetches the view's current key. It reports false when the
// view has never listed anything.
func (e *Engine[T]) Refresh(ctx context.Context, viewID string) (Snapshot[T], bool) {
	return e.coord.Refresh(ctx, viewID)
}

// Current returns what viewID displays now without starting a fetch.
func (e *Engine[T]) Current(viewID string) (Snapshot[T], bool) {
	return e.coord.Current(viewID)
}

// Invalidate marks matching coordinator entries for refetch and clears the
// entity's namespace in the shared store, which is not keyed finely enough
// to be cleared selectively.
func (e *Engine[T]) Invalidate(ctx context.Context, match func(CacheKey) bool) (int, error) {
	n := e.coord.Invalidate(match)
	if e.store == nil {
		return n, nil
	}
	if err := e.store.InvalidateNamespace(ctx, e.entity.Name); err != nil {
		return n, fmt.Errorf("invalidate %s result store: %w", e.entity.Name, err)
	}
	return n, nil
}

// ForgetView drops viewID's key and fallback. Cached entries are kept.
func (e *Engine[T]) ForgetView(viewID string) {
	e.coord.ForgetView(viewID)
}

func (e *Engine[T]) fetcher(key CacheKey, cf canonicalFilter, desc RequestDescriptor, role domain.Role) Fetcher[T] {
	storeKey := key.String()
	return func(ctx context.Context, refresh bool) (res Result[T], err error) {
		ctx, end := observability.StartListingFetch(ctx, e.entity.Name, desc.Page, desc.PageSize, refresh)
		defer func() { end(res.Mode, err) }()
		gen, storable := e.storeGeneration(ctx)
		if storable && !refresh {
			if stored, ok := e.loadStored(ctx, storeKey); ok {
				return stored, nil
			}
		}
		raw, err := e.gateway.FetchPage(ctx, e.entity.Resource, desc)
		if err != nil {
			return Result[T]{}, fmt.Errorf("fetch %s: %w", e.entity.Resource, err)
		}
		res = e.reconcile(ctx, raw, cf, desc, role)
		if storable {
			e.saveStored(ctx, storeKey, gen, res)
		}
		return res, nil
	}
}

func (e *Engine[T]) reconcile(ctx context.Context, raw []byte, cf canonicalFilter, desc RequestDescriptor, role domain.Role) Result[T] {
	page := DecodeRemotePage[T](raw)
	if page.Malformed {
		e.logger.WarnContext(ctx, "malformed upstream listing payload",
			"resource", e.entity.Resource,
			"items", len(page.Items),
			"has_pagination", page.Pagination != nil,
		)
	}
	items, overruled := e.entity.filter(page.Items, cf, role)
	clientOnly := append(e.entity.activeClientOnly(cf), overruled...)
	mode := ReconcileMode(page, clientOnly)
	observability.RecordListingReconcileMode(ctx, e.entity.Name, mode)
	return Result[T]{
		Items:      items,
		Pagination: Reconcile(page, items, clientOnly, desc.Page, desc.PageSize),
		Mode:       mode,
		FetchedAt:  time.Now().UTC(),
	}
}

// storeGeneration reads the namespace generation a fetch writes under. It is
// read before going upstream, so a result fetched across an invalidation is
// never written back.
func (e *Engine[T]) storeGeneration(ctx context.Context) (uint64, bool) {
	if e.store == nil || e.storeTTL <= 0 {
		return 0, false
	}
	gen, err := e.store.Generation(ctx, e.entity.Name)
	if err != nil {
		e.logger.WarnContext(ctx, "listing result store unavailable", "error", err)
		return 0, false
	}
	return gen, true
}

func (e *Engine[T]) loadStored(ctx context.Context, key string) (Result[T], bool) {
	raw, ok, age, err := e.store.GetWithAge(ctx, e.entity.Name, key)
	if err != nil {
		e.logger.WarnContext(ctx, "listing result store read failed", "error", err)
		return Result[T]{}, false
	}
	if !ok {
		return Result[T]{}, false
	}
	var res Result[T]
	if err := json.Unmarshal(raw, &res); err != nil {
		e.logger.WarnContext(ctx, "listing result store entry unreadable", "error", err)
		return Result[T]{}, false
	}
	observability.RecordListingCacheEvent(ctx, e.entity.Name, "l2_hit")
	observability.RecordListingStoreAge(ctx, e.entity.Name, age)
	e.logger.DebugContext(ctx, "listing served from result store", "store_age_ms", age.Milliseconds(), "items", len(res.Items))
	return res, true
}

func (e *Engine[T]) saveStored(ctx context.Context, key string, gen uint64, res Result[T]) {
	raw, err := json.Marshal(res)
	if err != nil {
		e.logger.WarnContext(ctx, "listing result encode failed", "error", err)
		return
	}
	stored, err := e.store.Set(ctx, e.entity.Name, key, raw, e.storeTTL, gen)
	if err != nil {
		e.logger.WarnContext(ctx, "listing result store write failed", "error", err)
		return
	}
	if !stored {
		observability.RecordListingCacheEvent(ctx, e.entity.Name, "l2_write_skipped")
		e.logger.DebugContext(ctx, "listing result store moved on during fetch", "generation", gen)
	}
}

func snapshotOutcome[T any](s Snapshot[T]) string {
	switch {
	case s.Err != nil && s.Result == nil:
		return "error"
	case s.Err != nil:
		return "degraded"
	case s.Result == nil:
		return "pending"
	case s.IsStale:
		return "stale"
	default:
		return "success"
	}
}

// IsValidation reports whether err is rejected filter input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidFilter)
}
