package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/admin-listing-engine/internal/listing"
)

func TestFetchPageEncodesDescriptor(t *testing.T) {
	var gotQuery, gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"data":[],"pagination":{"page":2}}`))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL + "/api/", APIToken: "secret", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	body, err := c.FetchPage(context.Background(), "/job-postings", listing.RequestDescriptor{
		Page:     2,
		PageSize: 25,
		Params: map[string]listing.ParamValue{
			"status":  {List: []string{"closed", "published"}},
			"company": {Scalar: "Acme"},
		},
	})
	if err != nil {
		t.Fatalf("fetch page: %v", err)
	}
	if !strings.Contains(string(body), `"page":2`) {
		t.Fatalf("unexpected body %s", string(body))
	}
	if gotPath != "/api/job-postings" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotQuery != "company=Acme&page=2&pageSize=25&status=closed%2Cpublished" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
}

func TestFetchPageReturnsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	_, err = c.FetchPage(context.Background(), "/students", listing.RequestDescriptor{Page: 1, PageSize: 10})
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadGateway || statusErr.Body != "boom" {
		t.Fatalf("expected status error, got %v", err)
	}
	if got := outcome(context.Background(), err); got != "http_5xx" {
		t.Fatalf("unexpected outcome %q", got)
	}
}

func TestFetchPageRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, MaxBodyBytes: 16})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := c.FetchPage(context.Background(), "/students", listing.RequestDescriptor{Page: 1, PageSize: 10}); !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
}

func TestFetchPageHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.FetchPage(ctx, "/students", listing.RequestDescriptor{Page: 1, PageSize: 10})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if got := outcome(ctx, err); got != "timeout" {
		t.Fatalf("unexpected outcome %q", got)
	}
}

func TestPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Options{BaseURL: srv.URL, HealthPath: "/status"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	if _, err := New(Options{BaseURL: "not a url"}); err == nil {
		t.Fatal("expected bad base url to fail")
	}
}
