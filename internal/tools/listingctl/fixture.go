package listingctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

// Response shapes the fixture upstream can answer with.
const (
	ShapeEnvelope = "envelope"
	ShapeMeta     = "meta"
	ShapeBare     = "bare"
)

type FixtureOptions struct {
	Seed        uint64
	JobPostings int
	Students    int
	Shape       string
	Latency     time.Duration
	// FailEvery makes every nth listing request answer 503. Zero disables it.
	FailEvery int
}

var (
	fixtureCompanies = []string{"Acme", "Acme Labs", "Globex", "Initech", "Umbrella"}
	fixtureTitles    = []string{"Backend Engineer", "Data Analyst", "Product Designer", "Support Engineer", "Recruiter"}
	fixtureCities    = []string{"Pune", "Delhi", "Lisbon", "Porto", "Berlin"}
	fixtureNames     = []string{"Ana Souza", "Ravi Kumar", "Joana Lima", "Mia Weber", "Tiago Alves", "Priya Nair"}
	jobStatuses      = []string{domain.JobStatusDraft, domain.JobStatusPublished, domain.JobStatusClosed, domain.JobStatusArchived}
	studentStatuses  = []string{domain.StudentStatusPreEnrolled, domain.StudentStatusActive, domain.StudentStatusCompleted, domain.StudentStatusCancelled}
)

type fixtureData struct {
	jobs     []domain.JobPosting
	students []domain.EnrolledStudent
}

func seedFixtures(opts FixtureOptions) fixtureData {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	pick := func(vals []string) string { return vals[rng.IntN(len(vals))] }

	data := fixtureData{
		jobs:     make([]domain.JobPosting, 0, opts.JobPostings),
		students: make([]domain.EnrolledStudent, 0, opts.Students),
	}
	for i := 1; i <= opts.JobPostings; i++ {
		city := pick(fixtureCities)
		data.jobs = append(data.jobs, domain.JobPosting{
			ID:        domain.ID(strconv.Itoa(i)),
			Title:     pick(fixtureTitles),
			Company:   pick(fixtureCompanies),
			Location:  city + " office",
			City:      city,
			Status:    jobStatuses[i%len(jobStatuses)],
			Code:      fmt.Sprintf("JOB-%04d", i),
			CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour).Format(time.RFC3339),
		})
	}
	for i := 1; i <= opts.Students; i++ {
		name := pick(fixtureNames)
		data.students = append(data.students, domain.EnrolledStudent{
			ID:               domain.ID(strconv.Itoa(i)),
			Name:             name,
			Email:            strings.ReplaceAll(strings.ToLower(name), " ", ".") + strconv.Itoa(i) + "@example.test",
			RegistrationCode: fmt.Sprintf("REG-%05d", i),
			CourseID:         domain.ID(strconv.Itoa(1 + rng.IntN(4))),
			ClassID:          domain.ID(strconv.Itoa(1 + rng.IntN(9))),
			City:             pick(fixtureCities),
			Status:           studentStatuses[i%len(studentStatuses)],
		})
	}
	return data
}

// NewFixtureUpstream serves seeded records the way a loosely behaved admin
// API would: status and ids filter exactly, company and q only by prefix or
// substring, and city not at all.
func NewFixtureUpstream(opts FixtureOptions) http.Handler {
	if opts.Shape == "" {
		opts.Shape = ShapeEnvelope
	}
	data := seedFixtures(opts)
	var calls atomic.Int64
	failing := func(w http.ResponseWriter) bool {
		n := calls.Add(1)
		if opts.FailEvery > 0 && n%int64(opts.FailEvery) == 0 {
			http.Error(w, `{"message":"temporarily unavailable"}`, http.StatusServiceUnavailable)
			return true
		}
		return false
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if opts.Latency > 0 {
					select {
					case <-time.After(opts.Latency):
					case <-req.Context().Done():
						return
					}
				}
				next.ServeHTTP(w, req)
			})
		})
		r.Get("/job-postings", func(w http.ResponseWriter, req *http.Request) {
			if failing(w) {
				return
			}
			q := req.URL.Query()
			out := slices.DeleteFunc(slices.Clone(data.jobs), func(j domain.JobPosting) bool {
				return !inList(q.Get("status"), j.Status) ||
					!hasPrefixFold(j.Company, q.Get("company")) ||
					!containsFold(j.Title, q.Get("q"))
			})
			writePage(w, req, opts.Shape, out)
		})
		r.Get("/students", func(w http.ResponseWriter, req *http.Request) {
			if failing(w) {
				return
			}
			q := req.URL.Query()
			out := slices.DeleteFunc(slices.Clone(data.students), func(s domain.EnrolledStudent) bool {
				return !inList(q.Get("status"), s.Status) ||
					!inList(q.Get("courseId"), s.CourseID.String()) ||
					!inList(q.Get("classId"), s.ClassID.String())
			})
			writePage(w, req, opts.Shape, out)
		})
	})
	return r
}

func writePage[T any](w http.ResponseWriter, r *http.Request, shape string, all []T) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	start := min((page-1)*size, len(all))
	end := min(start+size, len(all))
	items := all[start:end]

	var body any
	switch shape {
	case ShapeBare:
		body = items
	case ShapeMeta:
		body = map[string]any{
			"items": items,
			"meta":  map[string]any{"currentPage": page, "per_page": size, "count": strconv.Itoa(len(all))},
		}
	default:
		body = map[string]any{
			"data": items,
			"pagination": map[string]any{
				"page":       page,
				"pageSize":   size,
				"total":      len(all),
				"totalPages": (len(all) + size - 1) / size,
			},
		}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func inList(csv, v string) bool {
	if strings.TrimSpace(csv) == "" {
		return true
	}
	for _, part := range strings.Split(csv, ",") {
		if strings.EqualFold(strings.TrimSpace(part), v) {
			return true
		}
	}
	return false
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), strings.ToLower(prefix))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func newFixtureUpstreamCommand(_ *options) *cobra.Command {
	fopts := FixtureOptions{}
	var addr string
	cmd := &cobra.Command{
		Use:   "fixture-upstream",
		Short: "Serve seeded job postings and students as a local upstream API",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch fopts.Shape {
			case ShapeEnvelope, ShapeMeta, ShapeBare:
			default:
				return fmt.Errorf("unknown shape %q", fopts.Shape)
			}
			srv := &http.Server{Addr: addr, Handler: NewFixtureUpstream(fopts), ReadHeaderTimeout: 5 * time.Second}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
			fmt.Fprintf(cmd.OutOrStdout(), "fixture upstream listening on %s (shape=%s jobs=%d students=%d)\n", addr, fopts.Shape, fopts.JobPostings, fopts.Students)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:9090", "listen address")
	cmd.Flags().Uint64Var(&fopts.Seed, "seed", 42, "random seed")
	cmd.Flags().IntVar(&fopts.JobPostings, "job-postings", 120, "number of seeded job postings")
	cmd.Flags().IntVar(&fopts.Students, "students", 300, "number of seeded students")
	cmd.Flags().StringVar(&fopts.Shape, "shape", ShapeEnvelope, "response shape: envelope|meta|bare")
	cmd.Flags().DurationVar(&fopts.Latency, "latency", 0, "artificial latency per listing request")
	cmd.Flags().IntVar(&fopts.FailEvery, "fail-every", 0, "answer 503 on every nth listing request")
	return cmd
}
