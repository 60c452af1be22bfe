package listingctl

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

func getFixture(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestFixtureUpstreamEnvelopeFiltersStatusExactly(t *testing.T) {
	h := NewFixtureUpstream(FixtureOptions{Seed: 7, JobPostings: 40, Students: 10})
	rr := getFixture(t, h, "/job-postings?status=published,closed&page=2&pageSize=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body struct {
		Data       []domain.JobPosting `json:"data"`
		Pagination map[string]int      `json:"pagination"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Pagination["total"] != 20 || body.Pagination["totalPages"] != 4 || body.Pagination["page"] != 2 {
		t.Fatalf("unexpected pagination %+v", body.Pagination)
	}
	if len(body.Data) != 5 {
		t.Fatalf("expected 5 records, got %d", len(body.Data))
	}
	for _, j := range body.Data {
		if j.Status != domain.JobStatusPublished && j.Status != domain.JobStatusClosed {
			t.Fatalf("unexpected status %q", j.Status)
		}
	}
}

func TestFixtureUpstreamCoarseFiltersOverMatch(t *testing.T) {
	h := NewFixtureUpstream(FixtureOptions{Seed: 7, JobPostings: 200})
	rr := getFixture(t, h, "/job-postings?company=acme&pageSize=200")
	var body struct {
		Data []domain.JobPosting `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	companies := map[string]bool{}
	for _, j := range body.Data {
		if !strings.HasPrefix(j.Company, "Acme") {
			t.Fatalf("unexpected company %q", j.Company)
		}
		companies[j.Company] = true
	}
	if !companies["Acme"] || !companies["Acme Labs"] {
		t.Fatalf("expected prefix match to include both Acme companies, got %v", companies)
	}
}

func TestFixtureUpstreamIgnoresCity(t *testing.T) {
	h := NewFixtureUpstream(FixtureOptions{Seed: 1, Students: 30})
	all := getFixture(t, h, "/students?pageSize=100").Body.String()
	filtered := getFixture(t, h, "/students?pageSize=100&city=Pune").Body.String()
	if all != filtered {
		t.Fatal("expected city to be ignored by the fixture upstream")
	}
}

func TestFixtureUpstreamShapes(t *testing.T) {
	bare := getFixture(t, NewFixtureUpstream(FixtureOptions{Seed: 1, Students: 3, Shape: ShapeBare}), "/students")
	var arr []domain.EnrolledStudent
	if err := json.Unmarshal(bare.Body.Bytes(), &arr); err != nil || len(arr) != 3 {
		t.Fatalf("expected bare array of 3, got %d err=%v", len(arr), err)
	}

	meta := getFixture(t, NewFixtureUpstream(FixtureOptions{Seed: 1, Students: 3, Shape: ShapeMeta}), "/students")
	var obj struct {
		Items []domain.EnrolledStudent `json:"items"`
		Meta  map[string]any           `json:"meta"`
	}
	if err := json.Unmarshal(meta.Body.Bytes(), &obj); err != nil {
		t.Fatalf("decode meta shape: %v", err)
	}
	if len(obj.Items) != 3 || obj.Meta["count"] != "3" || obj.Meta["currentPage"] != float64(1) {
		t.Fatalf("unexpected meta shape %+v", obj)
	}
}

func TestFixtureUpstreamSeedIsDeterministic(t *testing.T) {
	a := getFixture(t, NewFixtureUpstream(FixtureOptions{Seed: 99, Students: 20}), "/students?pageSize=20").Body.String()
	b := getFixture(t, NewFixtureUpstream(FixtureOptions{Seed: 99, Students: 20}), "/students?pageSize=20").Body.String()
	if a != b {
		t.Fatal("expected identical fixtures for the same seed")
	}
}

func TestFixtureUpstreamFailEvery(t *testing.T) {
	h := NewFixtureUpstream(FixtureOptions{Seed: 1, JobPostings: 5, FailEvery: 3})
	var codes []int
	for i := 0; i < 6; i++ {
		codes = append(codes, getFixture(t, h, "/job-postings").Code)
	}
	for i, code := range codes {
		want := http.StatusOK
		if (i+1)%3 == 0 {
			want = http.StatusServiceUnavailable
		}
		if code != want {
			t.Fatalf("request %d: expected %d, got %d (all %v)", i+1, want, code, codes)
		}
	}
	if rr := getFixture(t, h, "/health"); rr.Code != http.StatusNoContent {
		t.Fatalf("expected health to bypass failures, got %d", rr.Code)
	}
}
