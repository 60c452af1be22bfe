package service

//go:generate mockgen -source=interfaces.go -destination=gomock/interfaces_mock.go -package=servicegomock

import (
	"context"
	"net/url"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
)

// ListRequest is one listing call as the HTTP layer sees it.
type ListRequest struct {
	ViewID   string
	Role     domain.Role
	Params   url.Values
	Page     int
	PageSize int
}

// ListingView is a listing snapshot with the record type erased. Items holds
// the entity's record slice when HasResult is set.
type ListingView struct {
	Items      any
	Pagination listing.Pagination
	Mode       string
	FetchedAt  time.Time
	HasResult  bool
	IsStale    bool
	IsLoading  bool
	IsFetching bool
	Superseded bool
	Err        error
}

type ListingEngine interface {
	Name() string
	List(ctx context.Context, req ListRequest) (ListingView, error)
	Refresh(ctx context.Context, viewID string) (ListingView, bool)
	// Current reports what viewID displays without fetching.
	Current(viewID string) (ListingView, bool)
	ForgetView(viewID string)
	// Invalidate marks cached results for refetch. An empty role matches all.
	Invalidate(ctx context.Context, role domain.Role) (int, error)
}

type InvalidationPublisher interface {
	Publish(ctx context.Context, entity string, role domain.Role) error
}

// ListingResultStore is the shared result layer. Set only writes while the
// namespace is still at the generation the caller read before fetching.
type ListingResultStore interface {
	Generation(ctx context.Context, namespace string) (uint64, error)
	GetWithAge(ctx context.Context, namespace, key string) ([]byte, bool, time.Duration, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration, generation uint64) (bool, error)
	InvalidateNamespace(ctx context.Context, namespace string) error
}
