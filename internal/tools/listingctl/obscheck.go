package listingctl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type obscheckOptions struct {
	grafanaURL      string
	grafanaUser     string
	grafanaPassword string
	serviceName     string
	entity          string
	window          time.Duration
}

func newObscheckCommand(opts *options) *cobra.Command {
	o := &obscheckOptions{}
	cmd := &cobra.Command{
		Use:   "obscheck",
		Short: "Generate listing traffic and verify the exemplar to trace to log path",
		RunE: func(cmd *cobra.Command, args []string) error {
			return execute(cmd, opts, "obscheck", func(ctx context.Context) ([]string, error) {
				token, err := opts.accessToken()
				if err != nil {
					return nil, err
				}
				res, err := RunChurn(ctx, newAPIClient(opts.baseURL, token, opts.viewID), ChurnConfig{
					Entity:      o.entity,
					Duration:    6 * time.Second,
					RPS:         20,
					Concurrency: 6,
					Views:       3,
				})
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", res.TotalRequests, res.Failures)}
				select {
				case <-time.After(8 * time.Second):
				case <-ctx.Done():
					return details, ctx.Err()
				}

				traceID, err := fetchTraceIDFromExemplar(ctx, o)
				if err != nil {
					return details, err
				}
				details = append(details, "exemplar trace_id="+traceID)
				if err := verifyTempoTrace(ctx, o, traceID); err != nil {
					return details, err
				}
				details = append(details, "tempo trace lookup: ok")
				if err := verifyLokiTraceLogs(ctx, o, traceID); err != nil {
					return details, err
				}
				details = append(details, "loki trace correlation: ok")
				return details, nil
			})
		},
	}
	cmd.Flags().StringVar(&o.grafanaURL, "grafana-url", "http://localhost:3000", "Grafana base URL")
	cmd.Flags().StringVar(&o.grafanaUser, "grafana-user", "admin", "Grafana username")
	cmd.Flags().StringVar(&o.grafanaPassword, "grafana-password", "admin", "Grafana password")
	cmd.Flags().StringVar(&o.serviceName, "service-name", "admin-listing-engine", "OTel service name")
	cmd.Flags().StringVar(&o.entity, "entity", "students", "listing to drive traffic against")
	cmd.Flags().DurationVar(&o.window, "window", 20*time.Minute, "query lookback window")
	return cmd
}

func grafanaGET(ctx context.Context, o *obscheckOptions, path string) ([]byte, error) {
	u, err := url.Parse(o.grafanaURL)
	if err != nil {
		return nil, err
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(o.grafanaUser, o.grafanaPassword)
	resp, err := (&http.Client{Timeout: 20 * time.Second}).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("grafana request failed: %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func fetchTraceIDFromExemplar(ctx context.Context, o *obscheckOptions) (string, error) {
	end := time.Now()
	q := url.Values{
		"query": {"listing_request_duration_seconds_bucket"},
		"start": {fmt.Sprint(end.Add(-o.window).Unix())},
		"end":   {fmt.Sprint(end.Unix())},
	}
	body, err := grafanaGET(ctx, o, "/api/datasources/proxy/1/api/v1/query_exemplars?"+q.Encode())
	if err != nil {
		return "", err
	}
	var payload struct {
		Data []struct {
			Exemplars []struct {
				Labels map[string]string `json:"labels"`
			} `json:"exemplars"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	for _, series := range payload.Data {
		for _, e := range series.Exemplars {
			if tid := e.Labels["trace_id"]; len(tid) == 32 {
				return tid, nil
			}
		}
	}
	return "", fmt.Errorf("no trace_id exemplar found")
}

func verifyTempoTrace(ctx context.Context, o *obscheckOptions, traceID string) error {
	body, err := grafanaGET(ctx, o, "/api/datasources/proxy/3/api/traces/"+traceID)
	if err != nil {
		return err
	}
	var payload struct {
		Batches []json.RawMessage `json:"batches"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	if len(payload.Batches) == 0 {
		return fmt.Errorf("tempo trace has no batches")
	}
	return nil
}

func verifyLokiTraceLogs(ctx context.Context, o *obscheckOptions, traceID string) error {
	now := time.Now()
	q := url.Values{
		"query":     {fmt.Sprintf("{service_name=%q} |= %q", o.serviceName, "trace_id="+traceID)},
		"start":     {fmt.Sprint(now.Add(-30 * time.Minute).UnixNano())},
		"end":       {fmt.Sprint(now.UnixNano())},
		"limit":     {"1"},
		"direction": {"backward"},
	}
	body, err := grafanaGET(ctx, o, "/api/datasources/proxy/2/loki/api/v1/query_range?"+q.Encode())
	if err != nil {
		return err
	}
	var payload struct {
		Data struct {
			Result []json.RawMessage `json:"result"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	if len(payload.Data.Result) == 0 {
		return fmt.Errorf("no correlated loki logs found for trace_id %s", traceID)
	}
	return nil
}
