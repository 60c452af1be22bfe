package listingctl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
)

type ChurnConfig struct {
	Entity      string
	Duration    time.Duration
	RPS         int
	Concurrency int
	// Views is how many dashboard tabs share the traffic. Each worker pins
	// one view, so filter changes on that view race each other.
	Views   int
	Filters []url.Values
}

type ChurnResult struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
	Superseded    int64
	Stale         int64
	ClientMode    int64
}

var defaultChurnFilters = map[string][]url.Values{
	"job_postings": {
		{},
		{"status": {"published"}},
		{"status": {"published,closed"}},
		{"company": {"acme"}},
		{"search": {"engineer"}},
		{"city": {"Pune,Delhi"}, "page": {"2"}},
	},
	"students": {
		{},
		{"status": {"active"}},
		{"course": {"3"}},
		{"class": {"7"}, "status": {"active,completed"}},
		{"search": {"ana"}},
		{"city": {"Lisbon"}, "page_size": {"25"}},
	},
}

// RunChurn switches filters on a small set of views as fast as the rate
// allows and tallies what the engine reported back.
func RunChurn(ctx context.Context, c *apiClient, cfg ChurnConfig) (ChurnResult, error) {
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.Views <= 0 {
		cfg.Views = 1
	}
	if len(cfg.Filters) == 0 {
		cfg.Filters = defaultChurnFilters[strings.ToLower(cfg.Entity)]
	}
	if len(cfg.Filters) == 0 {
		return ChurnResult{}, fmt.Errorf("no filter set for entity %q", cfg.Entity)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var res ChurnResult
	jobs := make(chan url.Values, cfg.Concurrency*2)
	wg := sync.WaitGroup{}

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		worker := *c
		worker.viewID = fmt.Sprintf("%s-%d", c.viewID, i%cfg.Views)
		go func() {
			defer wg.Done()
			for q := range jobs {
				status, body, err := worker.list(ctx, cfg.Entity, q)
				if err != nil {
					if ctx.Err() == nil {
						atomic.AddInt64(&res.Failures, 1)
					}
					continue
				}
				atomic.AddInt64(&res.TotalRequests, 1)
				switch {
				case status >= 200 && status < 300:
					atomic.AddInt64(&res.Status2xx, 1)
				case status >= 400 && status < 500:
					atomic.AddInt64(&res.Status4xx, 1)
				case status >= 500:
					atomic.AddInt64(&res.Status5xx, 1)
				}
				if body.Data.State.Superseded {
					atomic.AddInt64(&res.Superseded, 1)
				}
				if body.Data.State.IsStale {
					atomic.AddInt64(&res.Stale, 1)
				}
				if body.Data.State.Mode == "client" {
					atomic.AddInt64(&res.ClientMode, 1)
				}
			}
		}()
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return res, nil
		case <-ticker.C:
			select {
			case jobs <- cfg.Filters[i%len(cfg.Filters)]:
				i++
			case <-ctx.Done():
			}
		}
	}
}

func newChurnCommand(opts *options) *cobra.Command {
	var (
		duration    time.Duration
		rps         int
		concurrency int
		views       int
	)
	cmd := &cobra.Command{
		Use:   "churn <entity>",
		Short: "Generate rapid filter changes to exercise coalescing and supersession",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "churn", func(ctx context.Context) ([]string, error) {
				token, err := opts.accessToken()
				if err != nil {
					return nil, err
				}
				res, err := RunChurn(ctx, newAPIClient(opts.baseURL, token, opts.viewID), ChurnConfig{
					Entity:      args[0],
					Duration:    duration,
					RPS:         rps,
					Concurrency: concurrency,
					Views:       views,
				})
				if err != nil {
					return nil, err
				}
				return churnDetails(res), nil
			})
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 15*time.Second, "traffic duration")
	cmd.Flags().IntVar(&rps, "rps", 20, "requests per second")
	cmd.Flags().IntVar(&concurrency, "concurrency", 6, "concurrent workers")
	cmd.Flags().IntVar(&views, "views", 2, "distinct view ids sharing the traffic")
	return cmd
}

func churnDetails(res ChurnResult) []string {
	return []string{
		fmt.Sprintf("total_requests=%d", res.TotalRequests),
		fmt.Sprintf("failures=%d", res.Failures),
		fmt.Sprintf("status_2xx=%d", res.Status2xx),
		fmt.Sprintf("status_4xx=%d", res.Status4xx),
		fmt.Sprintf("status_5xx=%d", res.Status5xx),
		fmt.Sprintf("superseded=%d", res.Superseded),
		fmt.Sprintf("stale=%d", res.Stale),
		fmt.Sprintf("client_mode=%d", res.ClientMode),
	}
}
