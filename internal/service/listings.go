package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sandeepkv93/admin-listing-engine/internal/config"
	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

const (
	JobPostingsEntity = "job_postings"
	StudentsEntity    = "students"
)

func pagingFrom(cfg *config.Config) listing.Paging {
	return listing.Paging{DefaultPageSize: cfg.ListingDefaultPageSize, MaxPageSize: cfg.ListingMaxPageSize}
}

func JobPostingEntity(cfg *config.Config) *listing.Entity[domain.JobPosting] {
	status := func(p domain.JobPosting) string { return p.Status }
	return &listing.Entity[domain.JobPosting]{
		Name:     JobPostingsEntity,
		Resource: "/job-postings",
		Status:   status,
		Policy: listing.Policy{
			ByRole: map[domain.Role][]string{
				domain.RoleAdmin:       {domain.JobStatusDraft, domain.JobStatusPublished, domain.JobStatusClosed, domain.JobStatusArchived},
				domain.RoleOwner:       {domain.JobStatusDraft, domain.JobStatusPublished, domain.JobStatusClosed},
				domain.RoleOperational: {domain.JobStatusPublished, domain.JobStatusClosed, domain.JobStatusArchived},
			},
			Minimal: []string{domain.JobStatusPublished},
		},
		Dimensions: []listing.Dimension[domain.JobPosting]{
			{Name: "status", Kind: listing.KindStatus, Support: listing.SupportExact, Param: "status", Value: status},
			{Name: "company", Kind: listing.KindExact, Support: listing.SupportCoarse, Param: "company",
				Value: func(p domain.JobPosting) string { return p.Company }},
			{Name: "location", Kind: listing.KindExact, Support: listing.SupportNone,
				Value: func(p domain.JobPosting) string { return p.Location }},
			{Name: "city", Kind: listing.KindMember, Support: listing.SupportNone,
				Value: func(p domain.JobPosting) string { return p.City }},
			{Name: "search", Kind: listing.KindSearch, Support: listing.SupportCoarse, Param: "q",
				Fields: []func(domain.JobPosting) string{
					func(p domain.JobPosting) string { return p.Title },
					func(p domain.JobPosting) string { return p.Company },
					func(p domain.JobPosting) string { return p.Code },
				}},
		},
		Paging:          pagingFrom(cfg),
		MinSearchLength: cfg.ListingSearchMinLength,
	}
}

func StudentEntity(cfg *config.Config) *listing.Entity[domain.EnrolledStudent] {
	status := func(s domain.EnrolledStudent) string { return s.Status }
	return &listing.Entity[domain.EnrolledStudent]{
		Name:     StudentsEntity,
		Resource: "/students",
		Status:   status,
		Policy: listing.Policy{
			ByRole: map[domain.Role][]string{
				domain.RoleAdmin:       {domain.StudentStatusPreEnrolled, domain.StudentStatusActive, domain.StudentStatusCompleted, domain.StudentStatusCancelled},
				domain.RoleOwner:       {domain.StudentStatusPreEnrolled, domain.StudentStatusActive, domain.StudentStatusCompleted},
				domain.RoleOperational: {domain.StudentStatusActive, domain.StudentStatusCompleted, domain.StudentStatusCancelled},
			},
			Minimal: []string{domain.StudentStatusActive},
		},
		Dimensions: []listing.Dimension[domain.EnrolledStudent]{
			{Name: "status", Kind: listing.KindStatus, Support: listing.SupportExact, Param: "status", Value: status},
			{Name: "course", Kind: listing.KindSelect, Support: listing.SupportExact, Param: "courseId",
				Value: func(s domain.EnrolledStudent) string { return s.CourseID.String() }},
			{Name: "class", Kind: listing.KindSelect, Support: listing.SupportExact, Param: "classId",
				Value: func(s domain.EnrolledStudent) string { return s.ClassID.String() }},
			{Name: "city", Kind: listing.KindMember, Support: listing.SupportNone,
				Value: func(s domain.EnrolledStudent) string { return s.City }},
			{Name: "search", Kind: listing.KindSearch, Support: listing.SupportNone,
				Fields: []func(domain.EnrolledStudent) string{
					func(s domain.EnrolledStudent) string { return s.Name },
					func(s domain.EnrolledStudent) string { return s.Email },
					func(s domain.EnrolledStudent) string { return s.RegistrationCode },
				}},
		},
		Paging:          pagingFrom(cfg),
		MinSearchLength: cfg.ListingSearchMinLength,
	}
}

// Listing exposes a typed engine through the ListingEngine interface.
type Listing[T any] struct {
	engine *listing.Engine[T]
}

func NewListing[T any](engine *listing.Engine[T]) *Listing[T] {
	return &Listing[T]{engine: engine}
}

func (l *Listing[T]) Name() string { return l.engine.Name() }

func (l *Listing[T]) List(ctx context.Context, req ListRequest) (ListingView, error) {
	snap, err := l.engine.List(ctx, listing.Query{
		ViewID:   req.ViewID,
		State:    l.engine.Entity().FilterFromQuery(req.Params),
		Role:     req.Role,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return ListingView{}, err
	}
	return viewOf(snap), nil
}

func (l *Listing[T]) Refresh(ctx context.Context, viewID string) (ListingView, bool) {
	snap, ok := l.engine.Refresh(ctx, viewID)
	if !ok {
		return ListingView{}, false
	}
	return viewOf(snap), true
}

func (l *Listing[T]) Current(viewID string) (ListingView, bool) {
	snap, ok := l.engine.Current(viewID)
	if !ok {
		return ListingView{}, false
	}
	return viewOf(snap), true
}

func (l *Listing[T]) ForgetView(viewID string) {
	l.engine.ForgetView(viewID)
}

func (l *Listing[T]) Invalidate(ctx context.Context, role domain.Role) (int, error) {
	return l.engine.Invalidate(ctx, func(k listing.CacheKey) bool {
		return role == "" || k.Role == role
	})
}

func viewOf[T any](snap listing.Snapshot[T]) ListingView {
	v := ListingView{
		IsStale:    snap.IsStale,
		IsLoading:  snap.IsLoading,
		IsFetching: snap.IsFetching,
		Superseded: snap.Superseded,
		Err:        snap.Err,
	}
	if snap.Result != nil {
		v.Items = snap.Result.Items
		v.Pagination = snap.Result.Pagination
		v.Mode = snap.Result.Mode
		v.FetchedAt = snap.Result.FetchedAt
		v.HasResult = true
	}
	return v
}

var ErrUnknownListing = errors.New("unknown listing")

// ListingRegistry resolves listing engines by entity name. URL slugs such as
// job-postings resolve to job_postings.
type ListingRegistry struct {
	engines map[string]ListingEngine
}

func NewListingRegistry(engines ...ListingEngine) *ListingRegistry {
	r := &ListingRegistry{engines: make(map[string]ListingEngine, len(engines))}
	for _, e := range engines {
		r.engines[e.Name()] = e
	}
	return r
}

func (r *ListingRegistry) Lookup(name string) (ListingEngine, bool) {
	e, ok := r.engines[strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")]
	return e, ok
}

func (r *ListingRegistry) Names() []string {
	out := make([]string, 0, len(r.engines))
	for name := range r.engines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// InvalidateLocal applies an invalidation to this instance only. source is
// "api" for admin calls and "bus" for messages from other instances.
func (r *ListingRegistry) InvalidateLocal(ctx context.Context, entity string, role domain.Role, source string) (int, error) {
	e, ok := r.Lookup(entity)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownListing, entity)
	}
	n, err := e.Invalidate(ctx, role)
	observability.RecordListingInvalidation(ctx, e.Name(), source)
	return n, err
}
