package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
	"github.com/sandeepkv93/admin-listing-engine/internal/observability"
)

const defaultMaxBodyBytes = 4 << 20

var ErrResponseTooLarge = errors.New("upstream response too large")

// StatusError is returned for any non-2xx upstream answer.
type StatusError struct {
	Resource   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream %s returned %d", e.Resource, e.StatusCode)
	}
	return fmt.Sprintf("upstream %s returned %d: %s", e.Resource, e.StatusCode, e.Body)
}

type Options struct {
	BaseURL      string
	APIToken     string
	HealthPath   string
	Timeout      time.Duration
	MaxBodyBytes int64
	Transport    http.RoundTripper
}

// Client talks to the upstream admin API. It implements listing.Gateway.
type Client struct {
	base       *url.URL
	token      string
	healthPath string
	maxBody    int64
	http       *http.Client
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base url %q", opts.BaseURL)
	}
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Client{
		base:       base,
		token:      opts.APIToken,
		healthPath: opts.HealthPath,
		maxBody:    maxBody,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: otelhttp.NewTransport(transport),
		},
	}, nil
}

// FetchPage requests one page of resource. List values are sent as a single
// comma-joined parameter.
func (c *Client) FetchPage(ctx context.Context, resource string, desc listing.RequestDescriptor) ([]byte, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(desc.Page))
	q.Set("pageSize", strconv.Itoa(desc.PageSize))
	for _, name := range desc.ParamNames() {
		v := desc.Params[name]
		if v.IsList() {
			q.Set(name, strings.Join(v.List, ","))
			continue
		}
		q.Set(name, v.Scalar)
	}

	start := time.Now()
	body, err := c.get(ctx, resource, q)
	observability.RecordGatewayRequestDuration(ctx, resource, outcome(ctx, err), time.Since(start))
	return body, err
}

// Ping checks that the upstream health endpoint answers 2xx.
func (c *Client) Ping(ctx context.Context) error {
	path := c.healthPath
	if path == "" {
		path = "/health"
	}
	_, err := c.get(ctx, path, nil)
	return err
}

func (c *Client) get(ctx context.Context, resource string, q url.Values) ([]byte, error) {
	u := c.base.JoinPath(resource)
	u.RawQuery = q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read upstream %s: %w", resource, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Resource: resource, StatusCode: resp.StatusCode, Body: snippet(body)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, fmt.Errorf("%w: %s", ErrResponseTooLarge, resource)
	}
	return body, nil
}

func snippet(body []byte) string {
	const limit = 256
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}

func outcome(ctx context.Context, err error) string {
	var statusErr *StatusError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &statusErr) && statusErr.StatusCode >= 500:
		return "http_5xx"
	case errors.As(err, &statusErr):
		return "http_4xx"
	case errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil:
		return "timeout"
	case errors.Is(err, ErrResponseTooLarge):
		return "too_large"
	default:
		return "transport_error"
	}
}
