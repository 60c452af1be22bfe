package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
	"github.com/sandeepkv93/admin-listing-engine/internal/health"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/handler"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/middleware"
	"github.com/sandeepkv93/admin-listing-engine/internal/http/response"
	"github.com/sandeepkv93/admin-listing-engine/internal/security"
)

type Dependencies struct {
	ListingHandler      *handler.ListingHandler
	JWTManager          *security.JWTManager
	CORSOrigins         []string
	APIRateLimitRPM     int
	RefreshRateLimitRPM int
	GlobalRateLimiter   GlobalRateLimiterFunc
	RefreshRateLimiter  RefreshRateLimiterFunc
	Readiness           *health.ProbeRunner
	EnableOTelHTTP      bool
}

type GlobalRateLimiterFunc func(http.Handler) http.Handler
type RefreshRateLimiterFunc func(http.Handler) http.Handler

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(dep.CORSOrigins))
	r.Use(middleware.BodyLimit(64 << 10))
	if dep.GlobalRateLimiter != nil {
		r.Use(dep.GlobalRateLimiter)
	} else {
		r.Use(middleware.NewRateLimiter(dep.APIRateLimitRPM, time.Minute, "api", middleware.IPKeyFunc).Middleware())
	}

	refreshLimiter := dep.RefreshRateLimiter
	if refreshLimiter == nil {
		refreshLimiter = middleware.NewRateLimiter(dep.RefreshRateLimitRPM, time.Minute, "refresh", middleware.SubjectOrIPKeyFunc(dep.JWTManager)).Middleware()
	}

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.Readiness == nil {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": []any{}})
			return
		}
		ready, results := dep.Readiness.Ready(r.Context())
		if ready {
			response.JSON(w, r, http.StatusOK, map[string]any{"status": "ready", "checks": results})
			return
		}
		response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]any{"checks": results})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(dep.JWTManager))

		r.Route("/listings/{entity}", func(r chi.Router) {
			r.Get("/", dep.ListingHandler.List)
			r.Get("/view", dep.ListingHandler.View)
			r.With(middleware.CSRFMiddleware).Delete("/view", dep.ListingHandler.CloseView)
			r.With(middleware.CSRFMiddleware, refreshLimiter).Post("/refresh", dep.ListingHandler.Refresh)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleAdmin))
			r.Use(middleware.CSRFMiddleware)
			r.Post("/listings/{entity}/invalidate", dep.ListingHandler.Invalidate)
		})
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
