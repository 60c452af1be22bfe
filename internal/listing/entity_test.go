package listing

import (
	"reflect"
	"testing"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

type posting struct {
	ID       domain.ID `json:"id"`
	Title    string    `json:"title"`
	Company  string    `json:"company"`
	Location string    `json:"location"`
	City     string    `json:"city"`
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Team     string    `json:"team"`
}

func postingEntity() *Entity[posting] {
	return &Entity[posting]{
		Name:     "job_postings",
		Resource: "/job-postings",
		Status:   func(p posting) string { return p.Status },
		Policy: Policy{
			ByRole: map[domain.Role][]string{
				domain.RoleAdmin:       {"draft", "published", "closed", "archived"},
				domain.RoleOwner:       {"draft", "published", "closed"},
				domain.RoleOperational: {"published", "closed", "archived"},
			},
			Minimal: []string{"published"},
		},
		Dimensions: []Dimension[posting]{
			{Name: "status", Kind: KindStatus, Support: SupportExact, Param: "status", Value: func(p posting) string { return p.Status }},
			{Name: "company", Kind: KindExact, Support: SupportCoarse, Param: "company", Value: func(p posting) string { return p.Company }},
			{Name: "location", Kind: KindExact, Support: SupportNone, Value: func(p posting) string { return p.Location }},
			{Name: "city", Kind: KindMember, Support: SupportNone, Value: func(p posting) string { return p.City }},
			{Name: "team", Kind: KindSelect, Support: SupportExact, Param: "teamId", Value: func(p posting) string { return p.Team }},
			{
				Name: "search", Kind: KindSearch, Support: SupportCoarse, Param: "q",
				Fields: []func(posting) string{
					func(p posting) string { return p.Title },
					func(p posting) string { return p.Company },
					func(p posting) string { return p.Code },
				},
			},
		},
	}
}

func TestNormalizeSubstitutesRoleStatusesWhenAbsent(t *testing.T) {
	e := postingEntity()

	desc := e.Normalize(FilterState{}, domain.RoleOperational, 1, 10)

	got, ok := desc.Params["status"]
	if !ok {
		t.Fatalf("expected status param, got %+v", desc.Params)
	}
	want := []string{"archived", "closed", "published"}
	if !reflect.DeepEqual(got.Values(), want) {
		t.Fatalf("unexpected default statuses: got=%v want=%v", got.Values(), want)
	}
	for _, s := range got.Values() {
		if s == "draft" {
			t.Fatal("operational default must not include draft")
		}
	}
}

func TestNormalizeUnknownRoleGetsMinimalStatuses(t *testing.T) {
	e := postingEntity()
	for _, role := range []domain.Role{"", "guest"} {
		desc := e.Normalize(nil, role, 1, 10)
		if got := desc.Params["status"]; got.IsList() || got.Scalar != "published" {
			t.Fatalf("role %q: expected scalar published, got %+v", role, got)
		}
	}
}

func TestNormalizeCollapsesValues(t *testing.T) {
	e := postingEntity()

	t.Run("single value is scalar", func(t *testing.T) {
		desc := e.Normalize(FilterState{"company": {" Acme "}}, domain.RoleAdmin, 1, 10)
		if got := desc.Params["company"]; got.IsList() || got.Scalar != "Acme" {
			t.Fatalf("unexpected company param: %+v", got)
		}
	})

	t.Run("several values are a list", func(t *testing.T) {
		desc := e.Normalize(FilterState{"company": {"Zeta", "Acme"}}, domain.RoleAdmin, 1, 10)
		got := desc.Params["company"]
		if !got.IsList() || !reflect.DeepEqual(got.List, []string{"Acme", "Zeta"}) {
			t.Fatalf("unexpected company param: %+v", got)
		}
	})

	t.Run("empty set is omitted", func(t *testing.T) {
		desc := e.Normalize(FilterState{"company": {}, "team": {"  "}}, domain.RoleAdmin, 1, 10)
		if _, ok := desc.Params["company"]; ok {
			t.Fatal("empty company must be omitted")
		}
		if _, ok := desc.Params["teamId"]; ok {
			t.Fatal("blank team must be omitted")
		}
	})

	t.Run("unsupported dimensions are not forwarded", func(t *testing.T) {
		desc := e.Normalize(FilterState{"city": {"Recife"}, "location": {"Remote"}}, domain.RoleAdmin, 1, 10)
		for _, name := range desc.ParamNames() {
			if name == "city" || name == "location" {
				t.Fatalf("unexpected forwarded param %q", name)
			}
		}
	})

	t.Run("short search is dropped", func(t *testing.T) {
		desc := e.Normalize(FilterState{"search": {"ab"}}, domain.RoleAdmin, 1, 10)
		if _, ok := desc.Params["q"]; ok {
			t.Fatal("search below minimum length must be omitted")
		}
		desc = e.Normalize(FilterState{"search": {" golang "}}, domain.RoleAdmin, 1, 10)
		if got := desc.Params["q"]; got.Scalar != "golang" {
			t.Fatalf("unexpected search param: %+v", got)
		}
	})
}

func TestNormalizeClampsPaging(t *testing.T) {
	e := postingEntity()
	cases := []struct {
		page, size         int
		wantPage, wantSize int
	}{
		{0, 0, 1, DefaultPageSize},
		{-3, 25, 1, 25},
		{4, 500, 4, MaxPageSize},
	}
	for _, tc := range cases {
		desc := e.Normalize(nil, domain.RoleAdmin, tc.page, tc.size)
		if desc.Page != tc.wantPage || desc.PageSize != tc.wantSize {
			t.Fatalf("page=%d size=%d: got %d/%d want %d/%d", tc.page, tc.size, desc.Page, desc.PageSize, tc.wantPage, tc.wantSize)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	e := postingEntity()
	state := FilterState{
		"status":  {"Published", "closed"},
		"company": {"Acme"},
		"city":    {"Recife", "Natal"},
		"search":  {"engineer"},
	}
	a := e.Normalize(state, domain.RoleOwner, 2, 20)
	b := e.Normalize(state.Clone(), domain.RoleOwner, 2, 20)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("normalize not idempotent:\n%+v\n%+v", a, b)
	}
	if e.Key(state, domain.RoleOwner, 2, 20).String() != e.Key(state.Clone(), domain.RoleOwner, 2, 20).String() {
		t.Fatal("cache key not idempotent")
	}
}

func TestKeyIgnoresOrderCaseAndDuplicates(t *testing.T) {
	e := postingEntity()
	a := e.Key(FilterState{"city": {"Recife", " recife", "Natal"}, "status": {"CLOSED", "published"}}, domain.RoleAdmin, 1, 10)
	b := e.Key(FilterState{"city": {"Natal", "Recife"}, "status": {"published", "closed"}}, domain.RoleAdmin, 1, 10)
	if a.String() != b.String() {
		t.Fatalf("expected equal keys:\n%s\n%s", a, b)
	}
}

func TestKeySeparatesRolesAndClientDimensions(t *testing.T) {
	e := postingEntity()
	state := FilterState{"status": {"published"}}
	if e.Key(state, domain.RoleAdmin, 1, 10).String() == e.Key(state, domain.RoleOwner, 1, 10).String() {
		t.Fatal("keys for different roles must differ")
	}
	withCity := e.Key(FilterState{"status": {"published"}, "city": {"Recife"}}, domain.RoleAdmin, 1, 10)
	if withCity.String() == e.Key(state, domain.RoleAdmin, 1, 10).String() {
		t.Fatal("client-only dimension must be part of the key")
	}
	if got := withCity.Client["city"]; got.Scalar != "Recife" {
		t.Fatalf("unexpected client part of key: %+v", withCity.Client)
	}
}

func TestClientOnlyDimensions(t *testing.T) {
	e := postingEntity()
	got := e.ClientOnly(FilterState{
		"status":   {"published"},
		"company":  {"Acme"},
		"location": {"Remote"},
		"city":     {"Recife"},
		"team":     {"7"},
		"search":   {"engineer"},
	})
	want := []string{"company", "location", "city", "search"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected client-only dimensions: got=%v want=%v", got, want)
	}
	if got := e.ClientOnly(FilterState{"status": {"published"}, "team": {"7"}}); len(got) != 0 {
		t.Fatalf("exact dimensions must not be client-only: %v", got)
	}
}

func TestParamValueJSON(t *testing.T) {
	var v ParamValue
	if err := v.UnmarshalJSON([]byte(`["a","b"]`)); err != nil || !v.IsList() {
		t.Fatalf("expected list, got %+v err=%v", v, err)
	}
	if err := v.UnmarshalJSON([]byte(`"a"`)); err != nil || v.IsList() || v.Scalar != "a" {
		t.Fatalf("expected scalar, got %+v err=%v", v, err)
	}
	b, err := collapse([]string{"x", "y"}).MarshalJSON()
	if err != nil || string(b) != `["x","y"]` {
		t.Fatalf("unexpected marshal: %s err=%v", b, err)
	}
}
