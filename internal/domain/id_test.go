package domain

import (
	"encoding/json"
	"testing"
)

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	cases := map[string]ID{
		`{"id":42}`:     "42",
		`{"id":"a-17"}`: "a-17",
		`{"id":null}`:   "",
		`{"id":1.5}`:    "1.5",
	}
	for raw, want := range cases {
		var v struct {
			ID ID `json:"id"`
		}
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if v.ID != want {
			t.Fatalf("unmarshal %s: got %q want %q", raw, v.ID, want)
		}
	}
}

func TestParseRoleNormalizesKnownRoles(t *testing.T) {
	if got := ParseRole(" Operational "); got != RoleOperational {
		t.Fatalf("expected operational, got %q", got)
	}
	if got := ParseRole("auditor"); got.Known() {
		t.Fatalf("expected unknown role, got %q", got)
	}
	if got := ParseRole(""); got.Known() || got != "" {
		t.Fatalf("expected empty unknown role, got %q", got)
	}
}
