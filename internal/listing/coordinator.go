package listing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

const (
	defaultMaxEntries   = 2048
	defaultIdleTTL      = 10 * time.Minute
	defaultStaleWait    = 150 * time.Millisecond
	defaultFetchTimeout = 10 * time.Second
)

// Fetcher produces the reconciled result for one key. refresh asks it to skip
// any shared result store and go to the upstream.
type Fetcher[T any] func(ctx context.Context, refresh bool) (Result[T], error)

type Status int

const (
	StatusIdle Status = iota
	StatusFetching
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusFetching:
		return "fetching"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "idle"
	}
}

// entry is the per-key state machine. lastGood survives errors and refetches;
// it is only ever replaced by a newer successful result.
type entry[T any] struct {
	key         CacheKey
	status      Status
	lastGood    *Result[T]
	err         error
	invalidated bool
	gen         uint64
	// flight identifies the fetch currently running for the entry.
	flight uint64
}

// view tracks what one consumer is looking at. fallback is what it displayed
// before its last key change.
type view[T any] struct {
	key      string
	cacheKey CacheKey
	fetch    Fetcher[T]
	fallback *Result[T]
	seq      uint64
}

// Snapshot is what a view displays at one point in time.
type Snapshot[T any] struct {
	ViewID string
	Key    CacheKey
	// Result is nil when nothing has ever resolved for the view.
	Result     *Result[T]
	Status     Status
	IsStale    bool
	IsLoading  bool
	IsFetching bool
	// Superseded is set when the view changed key while this call waited.
	Superseded bool
	Err        error
}

type CoordinatorOptions struct {
	Name         string
	MaxEntries   int
	IdleTTL      time.Duration
	StaleWait    time.Duration
	FetchTimeout time.Duration
	Logger       *slog.Logger
}

// Coordinator owns every cached result of one entity. All state changes go
// through GetOrFetch, Observe, Refresh and Invalidate.
type Coordinator[T any] struct {
	name         string
	staleWait    time.Duration
	fetchTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	entries *expirable.LRU[string, *entry[T]]
	views   *expirable.LRU[string, *view[T]]
	group   singleflight.Group
	flights uint64
}

func NewCoordinator[T any](opts CoordinatorOptions) *Coordinator[T] {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultMaxEntries
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = defaultIdleTTL
	}
	if opts.StaleWait < 0 {
		opts.StaleWait = 0
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}
	return &Coordinator[T]{
		name:         opts.Name,
		staleWait:    opts.StaleWait,
		fetchTimeout: opts.FetchTimeout,
		logger:       observability.ComponentLogger(opts.Logger, "listing_coordinator"),
		entries:      expirable.NewLRU[string, *entry[T]](opts.MaxEntries, nil, opts.IdleTTL),
		views:        expirable.NewLRU[string, *view[T]](opts.MaxEntries, nil, opts.IdleTTL),
	}
}

// GetOrFetch returns the cached result for key, fetching it when there is none
// or it was invalidated. Concurrent calls for one key share a single fetch. On
// failure the last good result, if any, is returned with isStale set together
// with the error.
func (c *Coordinator[T]) GetOrFetch(ctx context.Context, key CacheKey, fetch Fetcher[T]) (Result[T], bool, error) {
	k := key.String()
	c.mu.Lock()
	ch, fresh := c.beginLocked(ctx, k, key, fetch, false)
	c.mu.Unlock()
	if fresh != nil {
		return *fresh, false, nil
	}

	select {
	case res := <-ch:
		if res.Err == nil {
			if r, ok := res.Val.(Result[T]); ok {
				return r, false, nil
			}
		}
		last := c.lastGood(k)
		err := res.Err
		if err == nil {
			err = fmt.Errorf("listing %s: unexpected fetch result %T", c.name, res.Val)
		}
		if last != nil {
			return *last, true, err
		}
		return Result[T]{}, false, err
	case <-ctx.Done():
		if last := c.lastGood(k); last != nil {
			return *last, true, ctx.Err()
		}
		return Result[T]{}, false, ctx.Err()
	}
}

// Observe moves viewID to key and returns what it should display. When the view
// has something to show it waits at most the stale wait for the new result;
// otherwise it waits for the fetch or ctx.
func (c *Coordinator[T]) Observe(ctx context.Context, viewID string, key CacheKey, fetch Fetcher[T]) Snapshot[T] {
	k := key.String()
	c.mu.Lock()
	v, ok := c.views.Get(viewID)
	if !ok {
		v = &view[T]{}
	}
	if v.key != k {
		if shown := c.displayLocked(v); shown != nil {
			v.fallback = shown
		}
		v.key, v.cacheKey = k, key
		v.seq++
	}
	v.fetch = fetch
	seq := v.seq
	ch, _ := c.beginLocked(ctx, k, key, fetch, false)
	displayable := c.displayLocked(v) != nil
	c.views.Add(viewID, v)
	c.mu.Unlock()

	c.wait(ctx, ch, displayable)
	return c.snapshot(ctx, viewID, seq)
}

// Refresh refetches the view's current key in the background of what is
// already displayed. It reports false for an unknown view.
func (c *Coordinator[T]) Refresh(ctx context.Context, viewID string) (Snapshot[T], bool) {
	c.mu.Lock()
	v, ok := c.views.Get(viewID)
	if !ok || v.fetch == nil {
		c.mu.Unlock()
		return Snapshot[T]{}, false
	}
	seq := v.seq
	ch, _ := c.beginLocked(ctx, v.key, v.cacheKey, v.fetch, true)
	displayable := c.displayLocked(v) != nil
	c.mu.Unlock()

	c.wait(ctx, ch, displayable)
	return c.snapshot(ctx, viewID, seq), true
}

// Current returns what viewID displays right now without fetching.
func (c *Coordinator[T]) Current(viewID string) (Snapshot[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.views.Peek(viewID)
	if !ok {
		return Snapshot[T]{}, false
	}
	return c.snapshotLocked(viewID, v, false), true
}

// Invalidate marks every entry whose key matches for refetch. Cached results
// stay displayable until the refetch succeeds. It returns how many entries
// were marked.
func (c *Coordinator[T]) Invalidate(match func(CacheKey) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.entries.Keys() {
		e, ok := c.entries.Peek(k)
		if !ok || (match != nil && !match(e.key)) {
			continue
		}
		e.invalidated = true
		e.gen++
		n++
	}
	return n
}

// ForgetView drops viewID. Callers still waiting on it get a superseded
// snapshot.
func (c *Coordinator[T]) ForgetView(viewID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.views.Remove(viewID)
}

func (c *Coordinator[T]) Len() int {
	return c.entries.Len()
}

// beginLocked returns the fresh cached result for k, or the channel of the
// fetch that will produce it. Every flight gets its own singleflight key, and
// an entry only reports fetching between starting a flight and resolving it,
// so callers never join a flight that already resolved.
func (c *Coordinator[T]) beginLocked(ctx context.Context, k string, key CacheKey, fetch Fetcher[T], refresh bool) (<-chan singleflight.Result, *Result[T]) {
	e, ok := c.entries.Get(k)
	if !ok {
		e = &entry[T]{key: key}
		c.entries.Add(k, e)
	}
	if !refresh && e.status == StatusSuccess && !e.invalidated && e.lastGood != nil {
		observability.RecordListingCacheEvent(ctx, c.name, "hit")
		r := *e.lastGood
		return nil, &r
	}
	if e.status == StatusFetching {
		observability.RecordListingCacheEvent(ctx, c.name, "shared")
	} else {
		observability.RecordListingCacheEvent(ctx, c.name, "miss")
		c.flights++
		e.status = StatusFetching
		e.flight = c.flights
	}
	gen, flight := e.gen, e.flight
	refresh = refresh || e.invalidated
	// Joiners pass the same closure; singleflight ignores it while the flight
	// is registered.
	return c.group.DoChan(flightKey(k, flight), func() (any, error) {
		return c.run(ctx, k, key, gen, flight, fetch, refresh)
	}), nil
}

func flightKey(k string, flight uint64) string {
	return k + "#" + strconv.FormatUint(flight, 10)
}

func (c *Coordinator[T]) run(ctx context.Context, k string, key CacheKey, gen, flight uint64, fetch Fetcher[T], refresh bool) (res Result[T], err error) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()
	defer func() {
		if p := recover(); p != nil {
			res, err = Result[T]{}, fmt.Errorf("listing %s: fetch panicked: %v", c.name, p)
		}
		c.resolve(fctx, k, key, gen, flight, res, err)
	}()
	return fetch(fctx, refresh)
}

func (c *Coordinator[T]) resolve(ctx context.Context, k string, key CacheKey, gen, flight uint64, res Result[T], err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(k)
	if !ok {
		// Evicted while fetching; keep the result anyway.
		e = &entry[T]{key: key, flight: flight}
	}
	if e.flight != flight {
		// The entry was evicted and recreated and a newer flight owns it.
		if err == nil && e.lastGood == nil {
			r := res
			e.lastGood = &r
		}
		return
	}
	if err != nil {
		e.status = StatusError
		e.err = err
		observability.RecordListingCacheEvent(ctx, c.name, "error")
		c.logger.WarnContext(ctx, "listing fetch failed", "entity", c.name, "has_last_good", e.lastGood != nil, "error", err)
	} else {
		r := res
		e.status = StatusSuccess
		e.lastGood = &r
		e.err = nil
		if e.gen == gen {
			e.invalidated = false
		}
	}
	c.entries.Add(k, e)
}

func (c *Coordinator[T]) wait(ctx context.Context, ch <-chan singleflight.Result, displayable bool) {
	if ch == nil {
		return
	}
	var timeout <-chan time.Time
	if displayable {
		t := time.NewTimer(c.staleWait)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-ch:
	case <-timeout:
	case <-ctx.Done():
	}
}

func (c *Coordinator[T]) snapshot(ctx context.Context, viewID string, seq uint64) Snapshot[T] {
	c.mu.Lock()
	v, ok := c.views.Peek(viewID)
	if !ok {
		c.mu.Unlock()
		return Snapshot[T]{ViewID: viewID, Superseded: true}
	}
	superseded := v.seq != seq
	s := c.snapshotLocked(viewID, v, superseded)
	c.mu.Unlock()

	if superseded {
		observability.RecordListingCacheEvent(ctx, c.name, "superseded")
		c.logger.DebugContext(ctx, "listing view moved on while waiting", "entity", c.name, "view_id", viewID)
	}
	if s.IsStale && s.Result != nil {
		observability.RecordListingCacheEvent(ctx, c.name, "stale_served")
	}
	return s
}

func (c *Coordinator[T]) snapshotLocked(viewID string, v *view[T], superseded bool) Snapshot[T] {
	shown := c.displayLocked(v)
	s := Snapshot[T]{ViewID: viewID, Key: v.cacheKey, Superseded: superseded}
	e, ok := c.entries.Peek(v.key)
	if ok {
		s.Status = e.status
		s.IsFetching = e.status == StatusFetching
		if e.status == StatusError {
			s.Err = e.err
		}
	}
	if shown != nil {
		r := *shown
		s.Result = &r
		current := ok && e.lastGood == shown
		s.IsStale = !current || e.invalidated || e.status != StatusSuccess
	}
	s.IsLoading = shown == nil && s.IsFetching
	return s
}

// displayLocked returns the current key's result when there is one, dropping
// the fallback for good, and the fallback otherwise. The two are never merged.
func (c *Coordinator[T]) displayLocked(v *view[T]) *Result[T] {
	if e, ok := c.entries.Peek(v.key); ok && e.lastGood != nil {
		v.fallback = nil
		return e.lastGood
	}
	return v.fallback
}

func (c *Coordinator[T]) lastGood(k string) *Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries.Peek(k)
	if !ok || e.lastGood == nil {
		return nil
	}
	r := *e.lastGood
	return &r
}
