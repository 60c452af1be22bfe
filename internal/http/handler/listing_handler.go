package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/middleware"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/response"
	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
	"github.com/sandeepkv93/admin-listing-engine/internal/service"
)

const maxViewIDLength = 64

type ListingHandler struct {
	registry *service.ListingRegistry
	bus      service.InvalidationPublisher
	logger   *slog.Logger
}

func NewListingHandler(registry *service.ListingRegistry, bus service.InvalidationPublisher, logger *slog.Logger) *ListingHandler {
	if bus == nil {
		bus = service.NoopInvalidationPublisher{}
	}
	return &ListingHandler{
		registry: registry,
		bus:      bus,
		logger:   observability.ComponentLogger(logger, "listing_handler"),
	}
}

type listingState struct {
	IsStale    bool       `json:"is_stale"`
	IsLoading  bool       `json:"is_loading"`
	IsFetching bool       `json:"is_fetching"`
	Superseded bool       `json:"superseded"`
	Error      bool       `json:"error"`
	Mode       string     `json:"mode,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
}

type listingPayload struct {
	Items      any                `json:"items"`
	Pagination listing.Pagination `json:"pagination"`
	State      listingState       `json:"state"`
}

func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	engine, claims, ok := h.resolve(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	viewID := viewKey(claims, engine.Name(), r)
	ctx := observability.WithListingScope(r.Context(), engine.Name(), viewID)
	view, err := engine.List(ctx, service.ListRequest{
		ViewID:   viewID,
		Role:     claims.ActorRole(),
		Params:   q,
		Page:     atoiOrZero(q.Get("page")),
		PageSize: atoiOrZero(q.Get("page_size")),
	})
	if listing.IsValidation(err) {
		details := map[string]string{}
		message := "invalid filter input"
		var verr *listing.ValidationError
		if errors.As(err, &verr) {
			message = verr.Message
			details["field"] = verr.Field
		}
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_FAILED", message, details)
		return
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "listing failed", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to list records", nil)
		return
	}
	h.render(w, r, engine.Name(), view)
}

// Refresh silently refetches what the caller's view currently shows.
func (h *ListingHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	engine, claims, ok := h.resolve(w, r)
	if !ok {
		return
	}
	viewID := viewKey(claims, engine.Name(), r)
	view, found := engine.Refresh(observability.WithListingScope(r.Context(), engine.Name(), viewID), viewID)
	if !found {
		response.Error(w, r, http.StatusNotFound, "VIEW_NOT_FOUND", "nothing to refresh for this view", nil)
		return
	}
	h.render(w, r, engine.Name(), view)
}

// View returns what the caller's view shows right now without fetching.
func (h *ListingHandler) View(w http.ResponseWriter, r *http.Request) {
	engine, claims, ok := h.resolve(w, r)
	if !ok {
		return
	}
	view, found := engine.Current(viewKey(claims, engine.Name(), r))
	if !found {
		response.Error(w, r, http.StatusNotFound, "VIEW_NOT_FOUND", "nothing listed for this view", nil)
		return
	}
	h.render(w, r, engine.Name(), view)
}

// CloseView drops the caller's view state, e.g. when a dashboard tab closes.
// Cached results stay shared with other views.
func (h *ListingHandler) CloseView(w http.ResponseWriter, r *http.Request) {
	engine, claims, ok := h.resolve(w, r)
	if !ok {
		return
	}
	engine.ForgetView(viewKey(claims, engine.Name(), r))
	response.JSON(w, r, http.StatusOK, map[string]any{"entity": engine.Name(), "closed": true})
}

type invalidateRequest struct {
	Role string `json:"role"`
}

// Invalidate drops cached results for the entity on this instance and asks
// every other instance to do the same.
func (h *ListingHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	engine, claims, ok := h.resolve(w, r)
	if !ok {
		return
	}
	var body invalidateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	role := domain.Role("")
	if strings.TrimSpace(body.Role) != "" {
		role = domain.ParseRole(body.Role)
	}

	audit := observability.AuditInput{
		EventName:  "admin.listing.invalidated",
		ActorID:    claims.Subject,
		ActorRole:  string(claims.ActorRole()),
		TargetType: "listing",
		TargetID:   engine.Name(),
		Action:     "invalidate",
		Reason:     string(role),
	}
	n, err := h.registry.InvalidateLocal(r.Context(), engine.Name(), role, "api")
	if err != nil {
		audit.Outcome = "failure"
		observability.Audit(r, audit)
		h.logger.ErrorContext(r.Context(), "listing invalidation failed", "entity", engine.Name(), "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INVALIDATION_FAILED", "failed to invalidate cached results", nil)
		return
	}
	broadcast := true
	if err := h.bus.Publish(r.Context(), engine.Name(), role); err != nil {
		broadcast = false
		h.logger.WarnContext(r.Context(), "listing invalidation broadcast failed", "entity", engine.Name(), "error", err)
	}
	audit.Outcome = "success"
	observability.Audit(r, audit)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"entity":      engine.Name(),
		"role":        string(role),
		"invalidated": n,
		"broadcast":   broadcast,
	})
}

func (h *ListingHandler) resolve(w http.ResponseWriter, r *http.Request) (service.ListingEngine, *security.Claims, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing auth context", nil)
		return nil, nil, false
	}
	engine, ok := h.registry.Lookup(chi.URLParam(r, "entity"))
	if !ok {
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "unknown listing", map[string]any{"available": h.registry.Names()})
		return nil, nil, false
	}
	return engine, claims, true
}

func (h *ListingHandler) render(w http.ResponseWriter, r *http.Request, entity string, view service.ListingView) {
	if !view.HasResult && view.Err != nil {
		h.logger.WarnContext(r.Context(), "listing has no data to show", "entity", entity, "error", view.Err)
		response.Error(w, r, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE", "listing source is unavailable", nil)
		return
	}
	payload := listingPayload{
		Items: view.Items,
		State: listingState{
			IsStale:    view.IsStale,
			IsLoading:  view.IsLoading,
			IsFetching: view.IsFetching,
			Superseded: view.Superseded,
			Error:      view.Err != nil,
			Mode:       view.Mode,
		},
	}
	if view.HasResult {
		payload.Pagination = view.Pagination
		fetchedAt := view.FetchedAt
		payload.State.FetchedAt = &fetchedAt
	} else {
		payload.Items = []any{}
		payload.Pagination = listing.Pagination{Page: listing.DefaultPage, TotalPages: 1}
	}
	response.JSON(w, r, http.StatusOK, payload)
}

// viewKey scopes last-key-wins to one subject, entity and dashboard tab.
func viewKey(claims *security.Claims, entity string, r *http.Request) string {
	tab := strings.TrimSpace(r.Header.Get(middleware.ViewIDHeader))
	if len(tab) > maxViewIDLength {
		tab = tab[:maxViewIDLength]
	}
	if tab == "" {
		tab = "default"
	}
	return claims.Subject + ":" + entity + ":" + tab
}

func atoiOrZero(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
