package listing

import (
	"reflect"
	"testing"

	"github.com/sandeepkv93/admin-listing-engine/internal/domain"
)

func TestAllowedStatusesPerRole(t *testing.T) {
	p := postingEntity().Policy
	cases := map[domain.Role][]string{
		domain.RoleAdmin:       {"archived", "closed", "draft", "published"},
		domain.RoleOwner:       {"closed", "draft", "published"},
		domain.RoleOperational: {"archived", "closed", "published"},
		"":                     {"published"},
		"intruder":             {"published"},
	}
	for role, want := range cases {
		if got := p.AllowedStatuses(role); !reflect.DeepEqual(got, want) {
			t.Fatalf("role %q: got=%v want=%v", role, got, want)
		}
	}
}

func TestAllowedStatusesReturnsCopy(t *testing.T) {
	p := postingEntity().Policy
	got := p.AllowedStatuses(domain.RoleAdmin)
	got[0] = "mutated"
	if p.AllowedStatuses(domain.RoleAdmin)[0] == "mutated" {
		t.Fatal("allow-list must not be shared with callers")
	}
}

func TestIsSuppressedFailsClosedForUnknownRole(t *testing.T) {
	e := postingEntity()
	for _, status := range []string{"draft", "closed", "archived", "whatever", ""} {
		if !e.IsSuppressed(posting{Status: status}, "unknown") {
			t.Fatalf("status %q must be suppressed for an unknown role", status)
		}
	}
	if e.IsSuppressed(posting{Status: "Published"}, "unknown") {
		t.Fatal("minimal status must remain visible")
	}
}

func TestIsSuppressedByRole(t *testing.T) {
	e := postingEntity()
	if !e.IsSuppressed(posting{Status: "draft"}, domain.RoleOperational) {
		t.Fatal("operational must not see drafts")
	}
	if e.IsSuppressed(posting{Status: "draft"}, domain.RoleOwner) {
		t.Fatal("owner must see drafts")
	}
	if e.IsSuppressed(posting{Status: "archived"}, domain.RoleAdmin) {
		t.Fatal("admin sees everything")
	}
	if !e.IsSuppressed(posting{Status: ""}, domain.RoleAdmin) {
		t.Fatal("records without a status are suppressed")
	}
}

func TestIsSuppressedWithoutStatusGetter(t *testing.T) {
	e := postingEntity()
	e.Status = nil
	if !e.IsSuppressed(posting{Status: "published"}, domain.RoleAdmin) {
		t.Fatal("an entity that cannot read status must suppress")
	}
}
